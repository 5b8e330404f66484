package broadcast

import (
	"log/slog"
	"sync"

	"adgen/internal/api"
	"adgen/internal/job"
	"adgen/internal/logging"
)

// Observer receives encoded snapshots. Send must not block; an observer that
// cannot accept a frame returns an error and is dropped.
type Observer interface {
	Send(frame []byte) error
}

// SnapshotFunc looks up the current snapshot of a job.
type SnapshotFunc func(jobID string) (job.State, bool)

// Hub keeps the live observer set of every job and fans snapshots out to it.
type Hub struct {
	mu        sync.Mutex
	observers map[string]map[Observer]struct{}
	lookup    SnapshotFunc
	logger    *slog.Logger
}

// NewHub constructs a hub. lookup supplies the snapshot sent to new
// subscribers and may be nil.
func NewHub(lookup SnapshotFunc, logger *slog.Logger) *Hub {
	return &Hub{
		observers: make(map[string]map[Observer]struct{}),
		lookup:    lookup,
		logger:    logging.NewComponentLogger(logger, "broadcast"),
	}
}

// Subscribe registers obs for jobID and immediately sends the job's current
// snapshot when one exists. Registration and the initial send happen under
// the hub lock, so a concurrent publish cannot reach obs out of order.
func (h *Hub) Subscribe(jobID string, obs Observer) bool {
	if obs == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.observers[jobID]
	if !ok {
		set = make(map[Observer]struct{})
		h.observers[jobID] = set
	}
	set[obs] = struct{}{}

	if h.lookup == nil {
		return true
	}
	state, found := h.lookup(jobID)
	if !found {
		return true
	}
	frame, err := api.EncodeSnapshot(state)
	if err != nil {
		h.logger.Warn("initial snapshot encode failed", logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return true
	}
	if err := obs.Send(frame); err != nil {
		h.removeLocked(jobID, obs)
		return false
	}
	return true
}

// Unsubscribe removes obs. The job's entry disappears with its last observer.
func (h *Hub) Unsubscribe(jobID string, obs Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(jobID, obs)
}

// Publish sends one encoding of state to every observer of its job. Failed
// observers are dropped; the error never reaches the caller.
func (h *Hub) Publish(state job.State) {
	frame, err := api.EncodeSnapshot(state)
	if err != nil {
		h.logger.Warn("snapshot encode failed", logging.String(logging.FieldJobID, state.JobID), logging.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.observers[state.JobID]
	dropped := 0
	for obs := range set {
		if err := obs.Send(frame); err != nil {
			delete(set, obs)
			dropped++
		}
	}
	if len(set) == 0 {
		delete(h.observers, state.JobID)
	}
	if dropped > 0 {
		h.logger.Debug("dropped dead observers",
			logging.String(logging.FieldJobID, state.JobID),
			logging.Int("dropped", dropped),
		)
	}
}

// Count returns the number of observers registered for jobID.
func (h *Hub) Count(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers[jobID])
}

// Topics returns the number of jobs with at least one observer.
func (h *Hub) Topics() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

func (h *Hub) removeLocked(jobID string, obs Observer) {
	set, ok := h.observers[jobID]
	if !ok {
		return
	}
	delete(set, obs)
	if len(set) == 0 {
		delete(h.observers, jobID)
	}
}
