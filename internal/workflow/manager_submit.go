package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adgen/internal/job"
	"adgen/internal/logging"
	"adgen/internal/notifications"
	"adgen/internal/services"
	"adgen/internal/stage"
)

const notifyTimeout = 15 * time.Second

// Submit validates req, registers a new pending job, and launches the
// pipeline for it in the background. It returns the initial snapshot without
// waiting for any stage to run. Unknown styles are rejected before any job
// state exists.
func (m *Manager) Submit(ctx context.Context, req job.Request) (job.State, error) {
	style, err := stage.ParseStyle(req.Style)
	if err != nil {
		return job.State{}, err
	}
	req.Style = string(style)
	req.UserID = strings.TrimSpace(req.UserID)
	req.ContentID = strings.TrimSpace(req.ContentID)
	if req.UserID == "" {
		return job.State{}, services.Wrap(services.ErrValidation, "", "submit", "user id is required", nil)
	}
	if req.ContentID == "" {
		return job.State{}, services.Wrap(services.ErrValidation, "", "submit", "content_id is required", nil)
	}
	if req.ModelIndex != nil && *req.ModelIndex < 0 {
		return job.State{}, services.Wrap(services.ErrValidation, "", "submit", "model_index must not be negative", nil)
	}
	if m.contents != nil {
		if err := m.contents.CheckContent(ctx, req.UserID, req.ContentID); err != nil {
			return job.State{}, err
		}
	}
	if m.pipeline == nil {
		return job.State{}, services.Wrap(services.ErrConfiguration, "", "submit", "no pipeline configured", nil)
	}

	j, err := job.Create(m.newID(), req, m.pipeline.Names(), job.WithClock(m.now))
	if err != nil {
		return job.State{}, services.Wrap(services.ErrValidation, "", "submit", "", err)
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return job.State{}, ErrStopped
	}
	if err := m.registry.Add(j); err != nil {
		m.mu.Unlock()
		return job.State{}, err
	}
	handle := newHandle(j.ID())
	m.handles[j.ID()] = handle
	m.jobs.Add(1)
	m.mu.Unlock()

	snapshot := j.Snapshot()
	go m.execute(j, handle)

	m.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldJobID, snapshot.JobID),
		logging.String(logging.FieldUserID, snapshot.UserID),
		logging.String("content_id", snapshot.ContentID),
		logging.String("style", snapshot.Style),
	)
	return snapshot, nil
}

func (m *Manager) execute(j *job.Job, handle *Handle) {
	defer m.jobs.Done()
	defer close(handle.done)

	ctx := services.WithUserID(services.WithJobID(m.jobCtx, j.ID()), j.UserID())
	logger := logging.WithContext(ctx, m.logger)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job goroutine panicked: %v", r)
			m.setLastError(err)
			m.pipeline.Abort(j, "internal error: "+err.Error())
			logging.ErrorWithContext(logger, "job crashed", "job_panic", logging.Error(err))
		}
		m.notify(ctx, j.Snapshot())
	}()

	if err := m.pipeline.Run(ctx, j); err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "job could not be driven", "job_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the job record and resubmit"),
		)
	}
}

func (m *Manager) notify(ctx context.Context, snap job.State) {
	if m.notifier == nil {
		return
	}
	var (
		event   notifications.Event
		payload notifications.Payload
	)
	switch snap.Status {
	case job.StatusSuccess:
		event = notifications.EventJobSucceeded
		payload = notifications.Payload{
			"jobID":         snap.JobID,
			"contentID":     snap.ContentID,
			"style":         snap.Style,
			"finalImageURL": snap.Artifacts.FinalImageURL,
		}
	case job.StatusFailed:
		event = notifications.EventJobFailed
		payload = notifications.Payload{
			"jobID": snap.JobID,
			"step":  snap.ErrorStep,
			"error": snap.Error,
		}
		if snap.ErrorStep > 0 && snap.ErrorStep <= len(snap.Order) {
			payload["stage"] = stage.Label(snap.Order[snap.ErrorStep-1])
		}
	default:
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := m.notifier.Publish(notifyCtx, event, payload); err != nil {
		m.logger.Debug("job notification failed",
			logging.String(logging.FieldJobID, snap.JobID),
			logging.Error(err),
		)
	}
}

// Query returns the snapshot of jobID when userID owns it.
func (m *Manager) Query(jobID, userID string) (job.State, error) {
	j, err := m.registry.Get(strings.TrimSpace(jobID))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return job.State{}, services.Wrap(services.ErrNotFound, "", "query", "job not found", nil)
		}
		return job.State{}, err
	}
	snap := j.Snapshot()
	if snap.UserID != userID {
		return job.State{}, services.Wrap(services.ErrForbidden, "", "query", "job belongs to another user", nil)
	}
	return snap, nil
}

// List returns the caller's jobs, newest first.
func (m *Manager) List(userID string) []job.State {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	return m.registry.List(userID)
}

// Handle returns the execution handle of a registered job.
func (m *Manager) Handle(jobID string) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[jobID]
	return h, ok
}

// Active returns the number of jobs whose goroutine is still running.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := 0
	for _, h := range m.handles {
		if !h.Finished() {
			active++
		}
	}
	return active
}
