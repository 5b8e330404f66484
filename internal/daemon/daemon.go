package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"adgen/internal/broadcast"
	"adgen/internal/catalog"
	"adgen/internal/config"
	"adgen/internal/logging"
	"adgen/internal/storage"
	"adgen/internal/workflow"
)

// Components are the long-lived services the daemon serves.
type Components struct {
	Catalog *catalog.Store
	Bucket  *storage.Bucket
	Manager *workflow.Manager
	Hub     *broadcast.Hub
}

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *catalog.Store
	bucket  *storage.Bucket
	manager *workflow.Manager
	hub     *broadcast.Hub
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	CatalogPath  string
	LockFilePath string
	APIAddress   string
	Streams      int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comps.Catalog == nil || comps.Manager == nil || comps.Hub == nil {
		return nil, errors.New("daemon requires config, catalog, workflow manager, and broadcaster")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		catalog:  comps.Catalog,
		bucket:   comps.Bucket,
		manager:  comps.Manager,
		hub:      comps.Hub,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the run coordinator, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another adgen daemon instance is already running")
	}

	if d.bucket != nil {
		swept := d.bucket.CleanStale(ctx, d.cfg.JobRetention(), d.logger)
		if len(swept.Removed) > 0 || len(swept.Errors) > 0 {
			d.logger.Info("swept stale job artifacts",
				logging.Int("removed", len(swept.Removed)),
				logging.Int("errors", len(swept.Errors)),
				logging.String(logging.FieldEventType, "artifact_sweep"),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.manager.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.manager.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("adgen daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop stops serving, drains the run coordinator, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("adgen daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.manager.Status(ctx),
		CatalogPath:  d.catalog.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Streams:      d.hub.Topics(),
	}
}
