package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"adgen/internal/job"
	"adgen/internal/logging"
	"adgen/internal/notifications"
)

// ErrStopped is returned by Submit and Start once the manager has shut down.
var ErrStopped = errors.New("workflow manager stopped")

// ContentChecker confirms that a content item exists and belongs to a user.
// Implementations return an error wrapping services.ErrNotFound otherwise.
type ContentChecker interface {
	CheckContent(ctx context.Context, userID, contentID string) error
}

// ArtifactJanitor deletes the intermediate artifacts of an evicted job.
type ArtifactJanitor interface {
	RemoveJobArtifacts(ctx context.Context, jobID string) error
}

// Manager coordinates job submission and the background execution of the
// pipeline for every submitted job.
type Manager struct {
	pipeline *Pipeline
	registry *job.Registry
	contents ContentChecker
	janitor  ArtifactJanitor
	notifier notifications.Service
	logger   *slog.Logger

	newID         func() string
	now           func() time.Time
	retention     time.Duration
	pruneInterval time.Duration
	grace         time.Duration

	jobCtx    context.Context
	jobCancel context.CancelFunc

	mu         sync.RWMutex
	running    bool
	stopped    bool
	loopCancel context.CancelFunc
	handles    map[string]*Handle
	jobs       sync.WaitGroup
	loops      sync.WaitGroup
	lastErr    error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithContentChecker enables the ownership check performed on submission.
func WithContentChecker(checker ContentChecker) ManagerOption {
	return func(m *Manager) { m.contents = checker }
}

// WithArtifactJanitor removes a job's intermediate artifacts when the job is
// evicted by the retention loop.
func WithArtifactJanitor(janitor ArtifactJanitor) ManagerOption {
	return func(m *Manager) { m.janitor = janitor }
}

// WithNotifier sets the service that announces job outcomes.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithRetention sets how long terminal jobs stay registered. Zero keeps them
// until the process exits.
func WithRetention(retention time.Duration) ManagerOption {
	return func(m *Manager) { m.retention = retention }
}

// WithPruneInterval sets how often the retention loop runs.
func WithPruneInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.pruneInterval = interval
		}
	}
}

// WithShutdownGrace sets how long Stop waits for in-flight jobs before
// cancelling them.
func WithShutdownGrace(grace time.Duration) ManagerOption {
	return func(m *Manager) { m.grace = grace }
}

// WithIDGenerator overrides job id allocation.
func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithClock overrides the time source used for job timestamps and pruning.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a run coordinator for pipeline. Jobs are registered in
// registry, which the status endpoints and the broadcaster read from.
func NewManager(pipeline *Pipeline, registry *job.Registry, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if registry == nil {
		registry = job.NewRegistry()
	}
	jobCtx, jobCancel := context.WithCancel(context.Background())
	m := &Manager{
		pipeline:      pipeline,
		registry:      registry,
		notifier:      notifications.NewService(nil),
		logger:        logging.NewComponentLogger(logger, "workflow-manager"),
		newID:         uuid.NewString,
		now:           func() time.Time { return time.Now().UTC() },
		pruneInterval: 5 * time.Minute,
		jobCtx:        jobCtx,
		jobCancel:     jobCancel,
		handles:       make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the job registry the manager writes to.
func (m *Manager) Registry() *job.Registry {
	return m.registry
}

// Start launches the retention loop. Jobs may be submitted before Start.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if m.running {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.loopCancel = cancel
	m.running = true

	if m.retention > 0 {
		m.loops.Add(1)
		go m.retentionLoop(loopCtx)
	}
	m.logger.Info("workflow manager started",
		logging.String(logging.FieldEventType, "manager_start"),
		logging.Duration("job_retention", m.retention),
	)
	return nil
}

// Stop refuses new submissions, waits up to the shutdown grace for in-flight
// jobs, then cancels whatever is still running and waits for it to unwind.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.running = false
	loopCancel := m.loopCancel
	m.loopCancel = nil
	m.mu.Unlock()

	if loopCancel != nil {
		loopCancel()
	}
	m.loops.Wait()

	done := make(chan struct{})
	go func() {
		m.jobs.Wait()
		close(done)
	}()
	if m.grace > 0 {
		timer := time.NewTimer(m.grace)
		select {
		case <-done:
		case <-timer.C:
			m.logger.Warn("in-flight jobs outlived shutdown grace; cancelling",
				logging.String(logging.FieldEventType, "manager_shutdown_cancel"),
				logging.Int("active_jobs", m.Active()),
				logging.String(logging.FieldErrorHint, "raise workflow.shutdown_grace_seconds to let jobs finish"),
				logging.String(logging.FieldImpact, "cancelled jobs end as failed"),
			)
		}
		timer.Stop()
	}
	m.jobCancel()
	<-done
	m.logger.Info("workflow manager stopped", logging.String(logging.FieldEventType, "manager_stop"))
}

func (m *Manager) retentionLoop(ctx context.Context) {
	defer m.loops.Done()
	ticker := time.NewTicker(m.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}

// Prune evicts terminal jobs older than the retention window and returns
// their ids.
func (m *Manager) Prune() []string {
	evicted := m.registry.Prune(m.now(), m.retention)
	if len(evicted) == 0 {
		return nil
	}
	m.mu.Lock()
	for _, id := range evicted {
		delete(m.handles, id)
	}
	m.mu.Unlock()
	if m.janitor != nil {
		for _, id := range evicted {
			if err := m.janitor.RemoveJobArtifacts(context.Background(), id); err != nil {
				m.logger.Warn("failed to remove evicted job artifacts",
					logging.String(logging.FieldJobID, id),
					logging.Error(err),
					logging.String(logging.FieldEventType, "artifact_cleanup_failed"),
					logging.String(logging.FieldImpact, "intermediate images stay on disk until the stale sweep"),
				)
			}
		}
	}
	m.logger.Debug("evicted expired jobs",
		logging.String(logging.FieldEventType, "jobs_pruned"),
		logging.Int("count", len(evicted)),
	)
	return evicted
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
