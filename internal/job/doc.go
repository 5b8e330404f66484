// Package job models one pipeline run and the registry that holds live runs.
//
// A Job owns its State behind a mutex. The goroutine executing the job is
// its only writer and drives it through StartStage, RejectStage, FailStage,
// CompleteStage, and Succeed; each mutator enforces the stage lifecycle
// (pending, running, then success or failed), the stage order, and the rule
// that nothing changes once the job is terminal. Readers receive deep copies
// through Snapshot, so a status query or broadcast never observes a
// half-applied transition.
package job
