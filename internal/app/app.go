package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/common"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/pipeline"
	"github.com/ternarybob/dispatch/internal/services/distributor"
	"github.com/ternarybob/dispatch/internal/services/llm"
	"github.com/ternarybob/dispatch/internal/services/stages"
	"github.com/ternarybob/dispatch/internal/services/watcher"
	"github.com/ternarybob/dispatch/internal/storage/badger"
)

// App holds the wired application services. Construction order matters:
// storage first, then the LLM provider, then the pipeline built on both,
// then the watcher driving it.
type App struct {
	Config       *common.Config
	Logger       arbor.ILogger
	DB           *badger.BadgerDB
	Store        interfaces.DocumentStorage
	LLM          interfaces.LLMService
	Distributor  *distributor.Service
	Orchestrator *pipeline.Orchestrator
	Watcher      *watcher.Service
}

// New initializes the application from configuration. The store handle is
// constructed here and passed down explicitly; nothing below this layer
// reaches for process-wide state.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	store := badger.NewDocumentStorage(db, logger)

	llmService, err := llm.NewLLMService(config, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	stageTimeout, err := time.ParseDuration(config.Pipeline.StageTimeout)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid stage timeout '%s': %w", config.Pipeline.StageTimeout, err)
	}

	dist := distributor.NewService(&config.Distributor, logger)
	if err := dist.EnsureDirs(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare delivery directories: %w", err)
	}

	runner := pipeline.NewStageRunner(store, logger, stageTimeout)
	orchestrator := pipeline.NewOrchestrator(
		store,
		runner,
		stages.AllClassifiers(llmService, logger),
		stages.NewFinalizer(llmService, logger),
		dist,
		logger,
	)

	return &App{
		Config:       config,
		Logger:       logger,
		DB:           db,
		Store:        store,
		LLM:          llmService,
		Distributor:  dist,
		Orchestrator: orchestrator,
		Watcher:      watcher.NewService(&config.Watcher, orchestrator, logger),
	}, nil
}

// HealthCheck probes the LLM provider. Called at startup to fail fast on
// bad credentials instead of quarantining every artifact.
func (a *App) HealthCheck(ctx context.Context) error {
	return a.LLM.HealthCheck(ctx)
}

// Start begins watching the feed directory.
func (a *App) Start() error {
	return a.Watcher.Start()
}

// Close shuts down services in reverse construction order.
func (a *App) Close() {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.LLM != nil {
		if err := a.LLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
