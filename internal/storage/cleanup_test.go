package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adgen/internal/logging"
	"adgen/internal/storage"
)

func newBucket(t *testing.T) *storage.Bucket {
	t.Helper()
	b, err := storage.New(t.TempDir(), "https://cdn.test/media")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func putJobImage(t *testing.T, b *storage.Bucket, jobID string) string {
	t.Helper()
	if _, err := b.Put(context.Background(), storage.IntermediatePrefix+"/"+jobID+"/fitted.png", "image/png", []byte("png")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return filepath.Join(b.Root(), storage.IntermediatePrefix, jobID)
}

func TestRemoveJobArtifacts(t *testing.T) {
	b := newBucket(t)
	dir := putJobImage(t, b, "job-1")
	if _, err := b.Put(context.Background(), "alice/ads/ad_1.png", "image/png", []byte("final")); err != nil {
		t.Fatalf("Put final: %v", err)
	}

	if err := b.RemoveJobArtifacts(context.Background(), "job-1"); err != nil {
		t.Fatalf("RemoveJobArtifacts: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected job dir removed, stat err=%v", err)
	}
	if _, err := b.Get("alice/ads/ad_1.png"); err != nil {
		t.Fatalf("final image should survive: %v", err)
	}
	if err := b.RemoveJobArtifacts(context.Background(), "job-1"); err != nil {
		t.Fatalf("removing twice should be a no-op: %v", err)
	}
}

func TestRemoveJobArtifactsRejectsTraversal(t *testing.T) {
	b := newBucket(t)
	for _, id := range []string{"", "../alice", "a/b"} {
		if err := b.RemoveJobArtifacts(context.Background(), id); err == nil {
			t.Fatalf("expected error for job id %q", id)
		}
	}
}

func TestCleanStaleRemovesOnlyOldJobDirs(t *testing.T) {
	b := newBucket(t)
	oldDir := putJobImage(t, b, "old-job")
	freshDir := putJobImage(t, b, "fresh-job")

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	result := b.CleanStale(context.Background(), 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("removed = %v", result.Removed)
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Fatalf("fresh dir should remain: %v", err)
	}

	if got := b.CleanStale(context.Background(), 0, nil); len(got.Removed) != 0 {
		t.Fatalf("zero max age must disable the sweep, removed %v", got.Removed)
	}
}
