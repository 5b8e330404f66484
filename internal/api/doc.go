// Package api defines wire-format types and converters for the HTTP and
// live stream interfaces. It translates job snapshots into transport-friendly
// DTOs so the status endpoint and the stream stay byte-for-byte consistent.
//
// DTOs use snake_case JSON tags. Timestamps use RFC3339 with milliseconds.
// error, error_step, and final_image_url are always present and null when
// not set, so clients can test for them without key checks.
package api
