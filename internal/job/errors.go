package job

import "errors"

var (
	// ErrTerminal is returned when a mutation targets a job that already
	// reached success or failed.
	ErrTerminal = errors.New("job is terminal")
	// ErrUnknownStage is returned for stage names outside the job's order.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrInvalidTransition is returned for stage transitions the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid stage transition")
	// ErrOutOfOrder is returned when a stage starts before its predecessors succeeded.
	ErrOutOfOrder = errors.New("stage out of order")
	// ErrNotFound is returned by the registry for unknown job ids.
	ErrNotFound = errors.New("job not found")
)
