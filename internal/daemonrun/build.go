package daemonrun

import (
	"fmt"
	"log/slog"

	"adgen/internal/broadcast"
	"adgen/internal/catalog"
	"adgen/internal/config"
	"adgen/internal/daemon"
	"adgen/internal/job"
	"adgen/internal/layout"
	"adgen/internal/logging"
	"adgen/internal/notifications"
	"adgen/internal/services/imaging"
	"adgen/internal/services/llm"
	"adgen/internal/services/renderer"
	"adgen/internal/stages"
	"adgen/internal/storage"
	"adgen/internal/workflow"
)

// Build opens the catalogue and wires the collaborators, pipeline, and run
// coordinator the daemon serves. The caller owns the returned catalogue.
func Build(cfg *config.Config, logger *slog.Logger) (daemon.Components, error) {
	if cfg == nil {
		return daemon.Components{}, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	bucket, err := storage.NewFromConfig(cfg)
	if err != nil {
		return daemon.Components{}, err
	}
	composer, err := layout.NewFromConfig(cfg)
	if err != nil {
		return daemon.Components{}, err
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return daemon.Components{}, fmt.Errorf("open catalog: %w", err)
	}

	images := imaging.NewFromConfig(cfg)
	captions := llm.NewFromConfig(cfg)
	stageList, err := stages.Build(stages.Dependencies{
		Assets:   store,
		Remover:  images,
		Fitter:   images,
		Scenes:   images,
		Captions: captions,
		Layouts:  composer,
		Renderer: renderer.NewFromConfig(cfg),
		Store:    bucket,
		History:  store,
		Logger:   logger,
	})
	if err != nil {
		store.Close()
		return daemon.Components{}, err
	}

	registry := job.NewRegistry()
	hub := broadcast.NewHub(registry.Snapshot, logger)
	pipeline, err := workflow.NewPipeline(stageList, hub, logger)
	if err != nil {
		store.Close()
		return daemon.Components{}, err
	}

	manager := workflow.NewManager(pipeline, registry, logger,
		workflow.WithContentChecker(store),
		workflow.WithArtifactJanitor(bucket),
		workflow.WithNotifier(notifications.NewService(cfg)),
		workflow.WithRetention(cfg.JobRetention()),
		workflow.WithShutdownGrace(cfg.ShutdownGrace()),
	)

	return daemon.Components{
		Catalog: store,
		Bucket:  bucket,
		Manager: manager,
		Hub:     hub,
	}, nil
}
