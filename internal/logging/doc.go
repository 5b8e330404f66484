// Package logging assembles structured slog loggers and formatting helpers used
// across adgen services.
//
// It owns the configurable console/JSON handlers, fans records out to every
// configured output, and exposes context-aware helpers so stage code can
// automatically tag log lines with job IDs, stages, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
