// Package preflight provides readiness checks for the external services
// and filesystem paths that adgen depends on.
//
// The CLI "adgen preflight" command runs RunAll before a daemon is started,
// and "adgen status" uses ProbeDaemon to report whether one is answering.
// Provider checks make a single attempt with a short timeout so a dead
// endpoint is reported quickly instead of retried.
package preflight
