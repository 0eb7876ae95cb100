package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/okulov/classify-console/internal/bootstrap"
	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/usecase"
)

// ModelsListAction prints the allowed models per provider alongside the
// sanitized current selections.
func ModelsListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), true, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer appCtx.Close()
	app := appCtx.App

	allowed, err := app.Backend.AllowedModels(ctx)
	if err != nil {
		return fmt.Errorf("query allowed models: %w", err)
	}
	selections, err := usecase.SanitizeSelections(ctx, allowed, app.Prefs, app.Logger)
	if err != nil {
		return err
	}

	for _, provider := range domain.KnownProviders() {
		models := allowed[provider]
		if len(models) == 0 {
			fmt.Fprintf(os.Stdout, "%s: disabled (no allowed models)\n", provider)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: selected %s\n", provider, selections[provider])
		for _, model := range models {
			marker := "  "
			if model == selections[provider] {
				marker = "* "
			}
			fmt.Fprintf(os.Stdout, "  %s%s\n", marker, model)
		}
	}
	return nil
}

// ModelsSetAction stores a model selection after checking it against the
// provider's allowed list.
func ModelsSetAction(ctx context.Context, cmd *cli.Command) error {
	provider := domain.ProviderKey(strings.ToLower(cmd.String("provider")))
	model := cmd.String("model")

	known := false
	for _, candidate := range domain.KnownProviders() {
		if candidate == provider {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown provider %q", provider)
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"), true, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer appCtx.Close()
	app := appCtx.App

	allowed, err := app.Backend.AllowedModels(ctx)
	if err != nil {
		return fmt.Errorf("query allowed models: %w", err)
	}
	found := false
	for _, candidate := range allowed[provider] {
		if candidate == model {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("model %q is not allowed for provider %s", model, provider)
	}

	if err := app.Prefs.SetModelSelection(ctx, provider, model); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s -> %s\n", provider, model)
	return nil
}
