// Package notifications delivers job outcome alerts via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Events cover job
// success and failure so the workflow manager emits consistent messages
// without duplicating HTTP glue.
package notifications
