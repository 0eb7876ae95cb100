package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/okulov/classify-console/internal/config"
	"github.com/okulov/classify-console/internal/infrastructure/repository/postgres"
)

// HistoryAction lists recent job summaries. Only Postgres is touched, so
// this skips the full application bootstrap.
func HistoryAction(ctx context.Context, cmd *cli.Command) error {
	if envFile := cmd.String("env"); envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
	}
	cfg := config.Load()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	summaries, err := postgres.NewHistoryRepository(db).RecentSummaries(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(os.Stdout, "no finished jobs recorded")
		return nil
	}

	for _, summary := range summaries {
		jobID := summary.JobID
		if jobID == "" {
			jobID = "-"
		}
		fmt.Fprintf(os.Stdout, "%s  %-8s  job=%s  ok=%d fail=%d switches=%d  took=%s\n",
			summary.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			summary.Outcome,
			jobID,
			summary.Successful,
			summary.Failed,
			summary.Switches,
			summary.Elapsed.Round(100*time.Millisecond),
		)
	}
	return nil
}
