package job_test

import (
	"errors"
	"testing"
	"time"

	"adgen/internal/job"
)

var order = []string{"first", "second", "third"}

func newJob(t *testing.T) *job.Job {
	t.Helper()
	idx := 2
	j, err := job.Create("job-1", job.Request{
		UserID:     "user-1",
		ContentID:  "content-1",
		Style:      "resort",
		ModelIndex: &idx,
		AdInputs:   job.AdInputs{Keywords: []string{"summer"}},
	}, order)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return j
}

func TestCreateInitializesPendingState(t *testing.T) {
	snap := newJob(t).Snapshot()
	if snap.Status != job.StatusPending {
		t.Fatalf("expected pending, got %s", snap.Status)
	}
	if snap.CurrentStep != 0 {
		t.Fatalf("expected current step 0, got %d", snap.CurrentStep)
	}
	if len(snap.Steps) != len(order) {
		t.Fatalf("expected %d steps, got %d", len(order), len(snap.Steps))
	}
	for _, name := range order {
		if snap.Steps[name].Status != job.StagePending {
			t.Fatalf("expected %s pending, got %s", name, snap.Steps[name].Status)
		}
	}
	if snap.Error != "" || snap.ErrorStep != 0 {
		t.Fatalf("expected no error, got %q at %d", snap.Error, snap.ErrorStep)
	}
	if !snap.CreatedAt.Equal(snap.UpdatedAt) {
		t.Fatal("expected created and updated timestamps to match")
	}
}

func TestCreateRejectsMissingIdentity(t *testing.T) {
	if _, err := job.Create("", job.Request{UserID: "u", ContentID: "c"}, order); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := job.Create("id", job.Request{ContentID: "c"}, order); err == nil {
		t.Fatal("expected error for missing user")
	}
	if _, err := job.Create("id", job.Request{UserID: "u", ContentID: "c"}, []string{"a", "a"}); err == nil {
		t.Fatal("expected error for duplicate stage")
	}
}

func TestHappyPathLifecycle(t *testing.T) {
	j := newJob(t)
	for i, name := range order {
		if err := j.StartStage(name); err != nil {
			t.Fatalf("StartStage(%s): %v", name, err)
		}
		snap := j.Snapshot()
		if snap.CurrentStep != i+1 || snap.Status != job.StatusRunning {
			t.Fatalf("unexpected state after start: step=%d status=%s", snap.CurrentStep, snap.Status)
		}
		if snap.Steps[name].StartedAt == nil {
			t.Fatalf("expected started_at for %s", name)
		}
		if err := j.CompleteStage(name, "https://cdn.example.com/"+name); err != nil {
			t.Fatalf("CompleteStage(%s): %v", name, err)
		}
	}
	if err := j.Succeed(); err != nil {
		t.Fatalf("Succeed: %v", err)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusSuccess || snap.CompletedStages() != len(order) {
		t.Fatalf("unexpected final state %s with %d completed", snap.Status, snap.CompletedStages())
	}
	if err := j.SetArtifacts(job.Artifacts{Caption: "late"}); !errors.Is(err, job.ErrTerminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestRejectStageFailsWithoutStarting(t *testing.T) {
	j := newJob(t)
	if err := j.StartStage("first"); err != nil {
		t.Fatal(err)
	}
	if err := j.CompleteStage("first", ""); err != nil {
		t.Fatal(err)
	}
	if err := j.RejectStage("second", "missing input"); err != nil {
		t.Fatalf("RejectStage: %v", err)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusFailed || snap.ErrorStep != 2 || snap.Error != "missing input" {
		t.Fatalf("unexpected failure state: %+v", snap)
	}
	second := snap.Steps["second"]
	if second.Status != job.StageFailed || second.StartedAt != nil {
		t.Fatalf("expected failed stage without start time, got %+v", second)
	}
	if snap.Steps["third"].Status != job.StagePending {
		t.Fatalf("expected later stage pending, got %s", snap.Steps["third"].Status)
	}
	if err := j.StartStage("third"); !errors.Is(err, job.ErrTerminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if err := j.Succeed(); !errors.Is(err, job.ErrTerminal) {
		t.Fatalf("expected terminal error from Succeed, got %v", err)
	}
}

func TestFailStageRecordsCompletion(t *testing.T) {
	j := newJob(t)
	if err := j.StartStage("first"); err != nil {
		t.Fatal(err)
	}
	if err := j.FailStage("first", "provider down"); err != nil {
		t.Fatalf("FailStage: %v", err)
	}
	snap := j.Snapshot()
	first := snap.Steps["first"]
	if first.Status != job.StageFailed || first.CompletedAt == nil || first.Error != "provider down" {
		t.Fatalf("unexpected stage state %+v", first)
	}
	if snap.ErrorStep != 1 {
		t.Fatalf("expected error step 1, got %d", snap.ErrorStep)
	}
}

func TestStageOrderEnforced(t *testing.T) {
	j := newJob(t)
	if err := j.StartStage("second"); !errors.Is(err, job.ErrOutOfOrder) {
		t.Fatalf("expected out of order error, got %v", err)
	}
	if err := j.CompleteStage("first", ""); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := j.StartStage("missing"); !errors.Is(err, job.ErrUnknownStage) {
		t.Fatalf("expected unknown stage, got %v", err)
	}
	if err := j.Succeed(); err == nil {
		t.Fatal("expected Succeed to refuse unfinished stages")
	}
}

func TestAbortFailsRunningStage(t *testing.T) {
	j := newJob(t)
	if err := j.StartStage("first"); err != nil {
		t.Fatal(err)
	}
	if err := j.Abort("panic"); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusFailed || snap.ErrorStep != 1 || snap.Steps["first"].Status != job.StageFailed {
		t.Fatalf("unexpected state after abort: %+v", snap)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	j := newJob(t)
	snap := j.Snapshot()
	snap.Steps["first"] = job.StageState{Status: job.StageSuccess}
	snap.AdInputs.Keywords[0] = "winter"
	*snap.ModelIndex = 9

	fresh := j.Snapshot()
	if fresh.Steps["first"].Status != job.StagePending {
		t.Fatal("snapshot mutation leaked into job steps")
	}
	if fresh.AdInputs.Keywords[0] != "summer" {
		t.Fatal("snapshot mutation leaked into ad inputs")
	}
	if *fresh.ModelIndex != 2 {
		t.Fatal("snapshot mutation leaked into model index")
	}
}

func TestUpdatedAtRefreshes(t *testing.T) {
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	j, err := job.Create("job-2", job.Request{UserID: "u", ContentID: "c"}, order, job.WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	created := j.Snapshot().UpdatedAt
	if err := j.StartStage("first"); err != nil {
		t.Fatal(err)
	}
	if !j.Snapshot().UpdatedAt.After(created) {
		t.Fatal("expected updated_at to advance")
	}
}
