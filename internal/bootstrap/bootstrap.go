package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/okulov/classify-console/internal/config"
	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/ports"
	"github.com/okulov/classify-console/internal/core/usecase"
	"github.com/okulov/classify-console/internal/infrastructure/backend/httpstream"
	"github.com/okulov/classify-console/internal/infrastructure/batchload"
	"github.com/okulov/classify-console/internal/infrastructure/prefs/redisprefs"
	natsqueue "github.com/okulov/classify-console/internal/infrastructure/queue/nats"
	"github.com/okulov/classify-console/internal/infrastructure/repository/postgres"
	"github.com/okulov/classify-console/internal/infrastructure/resilience"
	"github.com/okulov/classify-console/internal/infrastructure/storage/localfs"
	"github.com/okulov/classify-console/internal/observability/metrics"
)

// App wires the console: streaming backend client, controller, synchronizer,
// watchdog and the supporting stores.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Backend    ports.Backend
	Prefs      ports.PreferencesStore
	Loader     ports.BatchLoader
	Exporter   ports.ResultExporter
	Controller *usecase.Controller
	Sync       *usecase.EditSynchronizer
	Watchdog   *usecase.Watchdog
	Metrics    *metrics.ControllerMetrics

	closeFn func()
}

// Options carries the per-run callbacks the config file cannot express.
type Options struct {
	// OnLog and OnNotice feed the interactive display; both may be nil.
	OnLog    func(domain.ProcessingLogEntry)
	OnNotice func(string)
	OnStatus func(domain.SaveStatus)
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultPolicy(), httpstream.ClassifyError, logger)

	backend := httpstream.New(cfg.BackendURL, logger, httpstream.Options{
		ModelsRefreshEvery: cfg.ModelsRefreshEvery,
		Executor:           executor,
	})

	prefs, err := redisprefs.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("init preferences store: %w", err)
	}

	var (
		db      *sql.DB
		history ports.JobHistory
	)
	if !cfg.HistoryDisabled {
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			prefs.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewHistoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			prefs.Close()
			db.Close()
			return nil, fmt.Errorf("ensure history schema: %w", err)
		}
		history = repo
	}

	var (
		notifier     ports.Notifier
		natsNotifier *natsqueue.Notifier
	)
	if !cfg.NATSDisabled {
		natsNotifier, err = natsqueue.New(cfg.NATSURL, cfg.NATSSubject, logger, natsqueue.Options{
			Executor: executor,
		})
		if err != nil {
			prefs.Close()
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("init notifier: %w", err)
		}
		notifier = natsNotifier
	}

	exporter, err := localfs.New(cfg.ResultsPath)
	if err != nil {
		prefs.Close()
		if db != nil {
			db.Close()
		}
		if natsNotifier != nil {
			natsNotifier.Close()
		}
		return nil, fmt.Errorf("init result exporter: %w", err)
	}

	rules := usecase.DefaultProviderRules()
	markers := usecase.DefaultSwitchMarkers()
	if cfg.ClassifierRulesPath != "" {
		rules, markers, err = usecase.LoadClassifierRules(cfg.ClassifierRulesPath)
		if err != nil {
			prefs.Close()
			if db != nil {
				db.Close()
			}
			if natsNotifier != nil {
				natsNotifier.Close()
			}
			return nil, fmt.Errorf("load classifier rules: %w", err)
		}
	}

	observer := metrics.NewControllerMetrics("classify-console")
	interp := usecase.NewInterpreter(usecase.NewModelClassifier(rules, markers), logger)

	editSync := usecase.NewEditSynchronizer(backend, logger, observer, usecase.SyncConfig{
		SaveTimeout: cfg.SaveTimeout,
		SavedRevert: cfg.SavedRevert,
		ErrorRevert: cfg.ErrorRevert,
		OnStatus:    opts.OnStatus,
	})

	controller := usecase.NewController(backend, history, notifier, interp, editSync, observer, logger, usecase.ControllerConfig{
		CacheLookup: cfg.CacheLookup,
		CacheStore:  cfg.CacheStore,
		OnLog:       opts.OnLog,
		OnNotice:    opts.OnNotice,
	})

	watchdog := usecase.NewWatchdog(controller, cfg.WatchdogWindow, logger, observer)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Backend:    backend,
		Prefs:      prefs,
		Loader:     batchload.New(cfg.BatchMaxRows),
		Exporter:   exporter,
		Controller: controller,
		Sync:       editSync,
		Watchdog:   watchdog,
		Metrics:    observer,

		closeFn: func() {
			if natsNotifier != nil {
				natsNotifier.Close()
			}
			if db != nil {
				_ = db.Close()
			}
			_ = prefs.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
