package job

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Registry is the keyed store of live jobs shared by the coordinator, the
// status endpoints, and the broadcaster.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Add registers j. Ids must be unique.
func (r *Registry) Add(j *Job) error {
	id := j.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		return fmt.Errorf("register job %s: already exists", id)
	}
	r.jobs[id] = j
	return nil
}

// Get returns the job with the given id.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// Snapshot returns the current snapshot of the job with the given id.
func (r *Registry) Snapshot(id string) (State, bool) {
	j, err := r.Get(id)
	if err != nil {
		return State{}, false
	}
	return j.Snapshot(), true
}

// Remove drops the job with the given id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// List returns snapshots of the jobs owned by userID, newest first. An empty
// userID lists every job.
func (r *Registry) List(userID string) []State {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.RUnlock()

	out := make([]State, 0, len(jobs))
	for _, j := range jobs {
		snap := j.Snapshot()
		if userID != "" && snap.UserID != userID {
			continue
		}
		out = append(out, snap)
	}
	slices.SortFunc(out, func(a, b State) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.JobID < b.JobID {
			return -1
		}
		if a.JobID > b.JobID {
			return 1
		}
		return 0
	})
	return out
}

// Prune evicts terminal jobs whose last update is older than retention and
// returns their ids. A non-positive retention keeps everything.
func (r *Registry) Prune(now time.Time, retention time.Duration) []string {
	if retention <= 0 {
		return nil
	}
	cutoff := now.Add(-retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []string
	for id, j := range r.jobs {
		snap := j.Snapshot()
		if !snap.Status.IsTerminal() {
			continue
		}
		if snap.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted = append(evicted, id)
		}
	}
	slices.Sort(evicted)
	return evicted
}
