// Package workflow drives ad generation jobs through the ordered stage
// pipeline.
//
// Pipeline runs the stages of one job strictly in sequence through the stage
// executor and halts on the first failure, leaving later stages pending. When
// the final stage passes its exit gate the job is marked successful.
//
// Manager is the run coordinator: it validates a submission, checks that the
// caller owns the referenced content, creates and registers the job, and
// launches the pipeline on a supervised goroutine before returning. Every
// launched job gets a Handle so shutdown can wait for in-flight work, and a
// retention loop evicts terminal jobs once they age out. Job outcomes are
// announced through the notifications service.
package workflow
