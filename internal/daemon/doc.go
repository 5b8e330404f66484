// Package daemon coordinates the long-running adgen process.
//
// It wires configuration, the content catalogue, the object bucket, the run
// coordinator, and the status broadcaster into a single lifecycle with
// flock-based locking to prevent multiple instances, and serves the HTTP API
// and the websocket live stream on top of them.
//
// Keep orchestration logic here: pipeline stages live in internal/stages and
// the job state machine in internal/workflow, while the daemon focuses on
// startup, shutdown, and request routing.
package daemon
