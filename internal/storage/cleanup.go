package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adgen/internal/logging"
	"adgen/internal/services"
)

// IntermediatePrefix is the key prefix under which per-job intermediate
// images live, one directory per job.
const IntermediatePrefix = "pipeline"

// CleanResult contains the outcome of an intermediate artifact sweep.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// RemoveJobArtifacts deletes the intermediate images of jobID. Final ad
// images are kept.
func (b *Bucket) RemoveJobArtifacts(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanKey(IntermediatePrefix + "/" + strings.TrimSpace(jobID))
	if err != nil {
		return err
	}
	if strings.Count(clean, "/") != 1 {
		return services.Wrap(services.ErrValidation, "", "remove job artifacts", fmt.Sprintf("invalid job id %q", jobID), nil)
	}
	if err := os.RemoveAll(filepath.Join(b.root, filepath.FromSlash(clean))); err != nil {
		return fmt.Errorf("remove %s: %w", clean, err)
	}
	return nil
}

// CleanStale removes intermediate job directories last modified more than
// maxAge ago. It catches leftovers from jobs the daemon no longer tracks,
// such as those of a previous run.
func (b *Bucket) CleanStale(ctx context.Context, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	dir := filepath.Join(b.root, IntermediatePrefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove stale job artifacts",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "artifact_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed stale job artifacts",
			logging.String("path", dirPath),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "artifact_cleanup"),
		)
	}
	return result
}
