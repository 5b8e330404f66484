// Package ipc is the CLI side of the daemon's HTTP API.
//
// Client wraps the JSON endpoints with typed calls and decorates every request
// with the configured bearer token and a context deadline, so CLI commands fail
// fast when the daemon is offline. Watch follows a job over the websocket
// stream and returns once the job reaches a terminal status.
//
// Request and response bodies are the api package types; reuse them rather
// than declaring parallel DTOs here.
package ipc
