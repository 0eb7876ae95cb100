package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/okulov/classify-console/internal/bootstrap"
)

// HandoffAction stores a batch the way the crawler does, for a later
// `run` without a --file argument. The stored batch goes stale after 24h.
func HandoffAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), true, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer appCtx.Close()
	app := appCtx.App

	rows, err := app.Loader.Load(ctx, cmd.String("file"))
	if err != nil {
		return err
	}
	if err := app.Prefs.StoreHandoff(ctx, rows); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "stored hand-off with %d rows\n", len(rows))
	return nil
}
