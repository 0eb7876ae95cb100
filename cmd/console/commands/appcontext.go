package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/okulov/classify-console/internal/bootstrap"
	"github.com/okulov/classify-console/internal/config"
	"github.com/okulov/classify-console/internal/observability/logging"
)

// AppContext is the shared command bootstrap: env file, config, logger and
// the fully wired application.
type AppContext struct {
	Config config.Config
	App    *bootstrap.App
}

func NewAppContext(ctx context.Context, envFile string, textLog bool, opts bootstrap.Options) (*AppContext, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
	}

	cfg := config.Load()
	logger := logging.NewLogger(os.Stderr, "classify-console", cfg.LogLevel, textLog)

	app, err := bootstrap.New(ctx, cfg, logger, opts)
	if err != nil {
		return nil, err
	}
	return &AppContext{Config: cfg, App: app}, nil
}

func (a *AppContext) Close() {
	a.App.Close()
}
