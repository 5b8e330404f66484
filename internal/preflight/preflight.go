package preflight

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"adgen/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckPublicBaseURL(cfg.Storage.PublicBaseURL),
		CheckImaging(ctx, cfg),
		CheckLLM(ctx, cfg),
		CheckRenderer(ctx, cfg),
	}
	if !cfg.AuthEnabled() {
		results = append(results, Result{
			Name:   "Authentication",
			Passed: true,
			Detail: fmt.Sprintf("disabled (all callers act as %q)", config.LocalUser),
		})
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// CheckPublicBaseURL verifies that stored artifacts will get https URLs.
func CheckPublicBaseURL(raw string) Result {
	const name = "Public base URL"
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%q (error: not an absolute URL)", raw)}
	}
	if parsed.Scheme != "https" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: artifacts must be served over https)", raw)}
	}
	return Result{Name: name, Passed: true, Detail: raw}
}
