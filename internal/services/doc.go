// Package services defines shared utilities consumed by the pipeline stage
// bodies and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, callers, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Details helpers that keep a
//     failure's classification separate from the message shown to users.
//
// Use these helpers when wiring new stage logic so failure reporting stays
// uniform across the pipeline.
package services
