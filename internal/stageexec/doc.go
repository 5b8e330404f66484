// Package stageexec runs a single pipeline stage under the gate lifecycle.
//
// Run checks the stage's pre-condition, marks it running, invokes the body,
// applies the body's output, checks the post-condition, and marks the stage
// successful. Every transition is published to the configured Publisher. A
// failure at any point, including a panic in the body, is recorded on the job
// and stops there; it is never returned to the caller.
package stageexec
