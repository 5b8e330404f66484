// Package logs reads the daemon's JSON log file for the CLI.
//
// Tail returns the last N lines or everything past an offset, and in follow
// mode polls until new lines arrive or the caller's context ends. ParseEntry
// and Filter narrow those lines to one job or stage so `adgen logs --job`
// can show a single pipeline run's history.
package logs
