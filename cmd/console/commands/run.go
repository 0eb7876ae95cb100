package commands

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/okulov/classify-console/internal/bootstrap"
	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/usecase"
)

// RunAction submits a batch and follows the stream to its terminal state.
// Enter forces a save of the current rows. Ctrl-C requests a cooperative stop
// and waits for the controller to settle; a second Ctrl-C abandons the wait
// after firing one best-effort save.
func RunAction(ctx context.Context, cmd *cli.Command) error {
	opts := bootstrap.Options{
		OnLog: func(entry domain.ProcessingLogEntry) {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", entry.Category, entry.Text)
		},
		OnNotice: func(text string) {
			fmt.Fprintf(os.Stdout, "! %s\n", text)
		},
		OnStatus: func(status domain.SaveStatus) {
			if status == domain.SaveError {
				fmt.Fprintln(os.Stdout, "! edit save failed, will retry on the next edit")
			}
		},
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("text-log"), opts)
	if err != nil {
		return err
	}
	defer appCtx.Close()
	app := appCtx.App

	rows, err := resolveBatch(ctx, app, cmd.String("file"))
	if err != nil {
		return err
	}
	if err := app.Controller.LoadBatch(rows); err != nil {
		return err
	}

	allowed, err := app.Backend.AllowedModels(ctx)
	if err != nil {
		return fmt.Errorf("query allowed models: %w", err)
	}
	selections, err := usecase.SanitizeSelections(ctx, allowed, app.Prefs, app.Logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Watchdog.Run(runCtx)
	go serveMetrics(runCtx, app)
	go manualSaveOnEnter(runCtx, app)

	if err := app.Controller.Submit(ctx, allowed, selections); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stdout, "stopping...")
		app.Controller.Stop()

		hard := make(chan os.Signal, 1)
		signal.Notify(hard, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(hard)
		select {
		case <-app.Controller.Done():
		case <-hard:
			// Give up waiting: push one last save without blocking and go.
			app.Controller.AbandonFast()
			fmt.Fprintln(os.Stdout, "aborted")
			return nil
		}
	case <-app.Controller.Done():
	}

	counts, switches := app.Controller.Stats()
	fmt.Fprintf(os.Stdout, "job finished: %s (switches: %d)\n", app.Controller.LastOutcome(), switches)
	for provider, count := range counts {
		if count > 0 {
			fmt.Fprintf(os.Stdout, "  %s: %d\n", provider, count)
		}
	}

	if results := app.Controller.OutputRows(); len(results) > 0 {
		path, err := app.Exporter.ExportResults(context.Background(), "", results)
		if err != nil {
			app.Logger.Error("export results failed", "error", err)
		} else {
			fmt.Fprintf(os.Stdout, "results written to %s\n", path)
		}
	}

	// Flush any pending edit save before exiting.
	return app.Controller.Teardown(context.Background())
}

func resolveBatch(ctx context.Context, app *bootstrap.App, file string) ([]domain.Product, error) {
	if file != "" {
		return app.Loader.Load(ctx, file)
	}
	rows, err := app.Prefs.TakeHandoff(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no batch file given and no fresh crawler hand-off available")
	}
	app.Logger.Info("consumed crawler hand-off", "rows", len(rows))
	return rows, nil
}

// manualSaveOnEnter turns an Enter press into an explicit save of the current
// rows, the console equivalent of a save shortcut.
func manualSaveOnEnter(ctx context.Context, app *bootstrap.App) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		app.Controller.ManualSave()
		fmt.Fprintln(os.Stdout, "save queued")
	}
}

func serveMetrics(ctx context.Context, app *bootstrap.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	server := &http.Server{Addr: ":" + app.Config.MetricsPort, Handler: mux}

	go func() {
		<-ctx.Done()
		server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.Logger.Warn("metrics server stopped", "error", err)
	}
}
