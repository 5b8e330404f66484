package workflow

import "context"

// Handle observes the background execution of one job.
type Handle struct {
	jobID string
	done  chan struct{}
}

func newHandle(jobID string) *Handle {
	return &Handle{jobID: jobID, done: make(chan struct{})}
}

// JobID returns the id of the observed job.
func (h *Handle) JobID() string {
	return h.jobID
}

// Done is closed once the job's goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Finished reports whether the job's goroutine has exited.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the job's goroutine exits or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
