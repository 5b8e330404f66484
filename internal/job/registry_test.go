package job_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"adgen/internal/job"
)

func TestRegistryAddGetList(t *testing.T) {
	reg := job.NewRegistry()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, user := range []string{"alice", "bob", "alice"} {
		created := base.Add(time.Duration(i) * time.Minute)
		j, err := job.Create(fmt.Sprintf("job-%d", i), job.Request{UserID: user, ContentID: "c"}, order,
			job.WithClock(func() time.Time { return created }))
		if err != nil {
			t.Fatal(err)
		}
		if err := reg.Add(j); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := reg.Get("job-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := reg.Get("nope"); !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	alice := reg.List("alice")
	if len(alice) != 2 || alice[0].JobID != "job-2" || alice[1].JobID != "job-0" {
		t.Fatalf("unexpected listing %+v", alice)
	}
	if all := reg.List(""); len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	dup, _ := job.Create("job-0", job.Request{UserID: "x", ContentID: "c"}, order)
	if err := reg.Add(dup); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestRegistryPruneEvictsOnlyOldTerminalJobs(t *testing.T) {
	reg := job.NewRegistry()
	old := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return old }

	failed, _ := job.Create("failed", job.Request{UserID: "u", ContentID: "c"}, order, job.WithClock(clock))
	if err := failed.RejectStage("first", "bad"); err != nil {
		t.Fatal(err)
	}
	running, _ := job.Create("running", job.Request{UserID: "u", ContentID: "c"}, order, job.WithClock(clock))
	if err := running.StartStage("first"); err != nil {
		t.Fatal(err)
	}
	for _, j := range []*job.Job{failed, running} {
		if err := reg.Add(j); err != nil {
			t.Fatal(err)
		}
	}

	if evicted := reg.Prune(old.Add(48*time.Hour), 0); evicted != nil {
		t.Fatalf("expected zero retention to keep jobs, got %v", evicted)
	}
	if evicted := reg.Prune(old.Add(time.Hour), 24*time.Hour); len(evicted) != 0 {
		t.Fatalf("expected nothing evicted inside retention, got %v", evicted)
	}
	evicted := reg.Prune(old.Add(48*time.Hour), 24*time.Hour)
	if len(evicted) != 1 || evicted[0] != "failed" {
		t.Fatalf("expected failed job evicted, got %v", evicted)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected running job to remain, got %d jobs", reg.Len())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := job.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j, err := job.Create(fmt.Sprintf("job-%d", i), job.Request{UserID: "u", ContentID: "c"}, order)
			if err != nil {
				t.Error(err)
				return
			}
			if err := reg.Add(j); err != nil {
				t.Error(err)
			}
			_ = reg.List("u")
			_ = j.StartStage("first")
		}(i)
	}
	wg.Wait()
	if reg.Len() != 32 {
		t.Fatalf("expected 32 jobs, got %d", reg.Len())
	}
}
