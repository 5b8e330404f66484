package job

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Job is the live record of one pipeline run. Its mutators are meant to be
// called only by the goroutine executing the job; any goroutine may read it
// through Snapshot.
type Job struct {
	mu    sync.RWMutex
	state State
	index map[string]int
	now   func() time.Time
}

// Option customizes job construction.
type Option func(*Job)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

// Create initializes a pending job with every stage of order pre-populated
// as pending and current step 0.
func Create(id string, req Request, order []string, opts ...Option) (*Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("create job: id required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, errors.New("create job: user id required")
	}
	if strings.TrimSpace(req.ContentID) == "" {
		return nil, errors.New("create job: content id required")
	}
	if len(order) == 0 {
		return nil, errors.New("create job: stage order required")
	}

	j := &Job{
		index: make(map[string]int, len(order)),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(j)
	}

	steps := make(map[string]StageState, len(order))
	for i, name := range order {
		if _, dup := j.index[name]; dup {
			return nil, fmt.Errorf("create job: duplicate stage %q", name)
		}
		j.index[name] = i + 1
		steps[name] = StageState{Status: StagePending}
	}

	created := j.now()
	j.state = State{
		JobID:      id,
		UserID:     strings.TrimSpace(req.UserID),
		ContentID:  strings.TrimSpace(req.ContentID),
		Style:      strings.TrimSpace(req.Style),
		UserPrompt: strings.TrimSpace(req.UserPrompt),
		AdInputs:   req.AdInputs.clone(),
		Status:     StatusPending,
		Order:      append([]string(nil), order...),
		Steps:      steps,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if req.ModelIndex != nil {
		idx := *req.ModelIndex
		j.state.ModelIndex = &idx
	}
	return j, nil
}

// ID returns the job identifier.
func (j *Job) ID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.JobID
}

// UserID returns the owning user.
func (j *Job) UserID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.UserID
}

// Status returns the current job-level status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.Status
}

// Snapshot returns a deep copy of the job taken under the read lock, so all
// fields reflect the same instant.
func (j *Job) Snapshot() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.clone()
}

// StepOf returns the 1-based position of the named stage.
func (j *Job) StepOf(name string) (int, bool) {
	step, ok := j.index[name]
	return step, ok
}

// StartStage moves the named stage from pending to running and makes it the
// current step.
func (j *Job) StartStage(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	step, err := j.prepareEntry(name)
	if err != nil {
		return err
	}
	st := j.state.Steps[name]
	if err := transition(name, st.Status, StageRunning); err != nil {
		return err
	}
	now := j.now()
	st.Status = StageRunning
	st.StartedAt = &now
	st.Error = ""
	j.state.Steps[name] = st
	j.state.CurrentStep = step
	j.state.Status = StatusRunning
	j.state.UpdatedAt = now
	return nil
}

// RejectStage records a failed pre-check. The stage goes straight from
// pending to failed without ever starting, and the job fails.
func (j *Job) RejectStage(name, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	step, err := j.prepareEntry(name)
	if err != nil {
		return err
	}
	st := j.state.Steps[name]
	if st.Status != StagePending {
		return fmt.Errorf("%w for %q: %s -> %s", ErrInvalidTransition, name, st.Status, StageFailed)
	}
	st.Status = StageFailed
	st.Error = reason
	j.state.Steps[name] = st
	j.state.CurrentStep = step
	j.fail(step, reason)
	return nil
}

// FailStage records a failure of a running stage and fails the job.
func (j *Job) FailStage(name, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Status.IsTerminal() {
		return ErrTerminal
	}
	step, ok := j.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	st := j.state.Steps[name]
	if err := transition(name, st.Status, StageFailed); err != nil {
		return err
	}
	now := j.now()
	st.Status = StageFailed
	st.Error = reason
	st.CompletedAt = &now
	j.state.Steps[name] = st
	j.fail(step, reason)
	return nil
}

// CompleteStage marks a running stage successful. resultURL may be empty for
// stages that produce no artifact.
func (j *Job) CompleteStage(name, resultURL string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Status.IsTerminal() {
		return ErrTerminal
	}
	if _, ok := j.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	st := j.state.Steps[name]
	if err := transition(name, st.Status, StageSuccess); err != nil {
		return err
	}
	now := j.now()
	st.Status = StageSuccess
	st.CompletedAt = &now
	st.ResultURL = strings.TrimSpace(resultURL)
	j.state.Steps[name] = st
	j.state.UpdatedAt = now
	return nil
}

// SetArtifacts replaces the intermediate outputs with the values a stage body
// produced.
func (j *Job) SetArtifacts(artifacts Artifacts) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Status.IsTerminal() {
		return ErrTerminal
	}
	j.state.Artifacts = artifacts
	j.state.UpdatedAt = j.now()
	return nil
}

// Succeed marks the job successful. Every stage must have succeeded.
func (j *Job) Succeed() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Status.IsTerminal() {
		return ErrTerminal
	}
	for _, name := range j.state.Order {
		if st := j.state.Steps[name].Status; st != StageSuccess {
			return fmt.Errorf("succeed job: stage %q is %s", name, st)
		}
	}
	j.state.Status = StatusSuccess
	j.state.UpdatedAt = j.now()
	return nil
}

// Abort fails a job that has not reached a terminal state, attributing the
// failure to the current step. It is used when execution stops outside any
// stage, such as a recovered panic.
func (j *Job) Abort(reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Status.IsTerminal() {
		return ErrTerminal
	}
	step := j.state.CurrentStep
	if step > 0 {
		name := j.state.Order[step-1]
		st := j.state.Steps[name]
		if st.Status == StageRunning {
			now := j.now()
			st.Status = StageFailed
			st.Error = reason
			st.CompletedAt = &now
			j.state.Steps[name] = st
		}
	}
	j.fail(step, reason)
	return nil
}

func (j *Job) prepareEntry(name string) (int, error) {
	if j.state.Status.IsTerminal() {
		return 0, ErrTerminal
	}
	step, ok := j.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	for _, prior := range j.state.Order[:step-1] {
		if j.state.Steps[prior].Status != StageSuccess {
			return 0, fmt.Errorf("%w: %q before %q finished", ErrOutOfOrder, name, prior)
		}
	}
	return step, nil
}

func (j *Job) fail(step int, reason string) {
	j.state.Status = StatusFailed
	j.state.Error = reason
	j.state.ErrorStep = step
	j.state.UpdatedAt = j.now()
}

func transition(name string, from, to StageStatus) error {
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("%w for %q: %s -> %s", ErrInvalidTransition, name, from, to)
	}
	return nil
}

func isAllowedTransition(from, to StageStatus) bool {
	switch from {
	case StagePending:
		return to == StageRunning
	case StageRunning:
		return to == StageSuccess || to == StageFailed
	default:
		return false
	}
}
