package broadcast_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"adgen/internal/broadcast"
	"adgen/internal/job"
	"adgen/internal/logging"
)

type recordingObserver struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (o *recordingObserver) Send(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errors.New("socket closed")
	}
	o.frames = append(o.frames, frame)
	return nil
}

func (o *recordingObserver) Frames() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([][]byte(nil), o.frames...)
}

var order = []string{"a", "b", "c", "d", "e", "f", "g"}

func newJob(t *testing.T) *job.Job {
	t.Helper()
	j, err := job.Create("job-1", job.Request{UserID: "u", ContentID: "c"}, order)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestPublishDeliversIdenticalFrames(t *testing.T) {
	j := newJob(t)
	hub := broadcast.NewHub(nil, logging.NewNop())
	first := &recordingObserver{}
	second := &recordingObserver{}
	hub.Subscribe("job-1", first)
	hub.Subscribe("job-1", second)

	if err := j.StartStage("a"); err != nil {
		t.Fatal(err)
	}
	hub.Publish(j.Snapshot())
	if err := j.CompleteStage("a", ""); err != nil {
		t.Fatal(err)
	}
	hub.Publish(j.Snapshot())

	a, b := first.Frames(), second.Frames()
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("expected 2 frames each, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs:\n%s\n%s", i, a[i], b[i])
		}
	}
}

func TestDeadObserverIsDroppedSilently(t *testing.T) {
	j := newJob(t)
	hub := broadcast.NewHub(nil, logging.NewNop())
	healthy := &recordingObserver{}
	dead := &recordingObserver{}
	hub.Subscribe("job-1", healthy)
	hub.Subscribe("job-1", dead)
	dead.fail = true

	hub.Publish(j.Snapshot())

	if got := hub.Count("job-1"); got != 1 {
		t.Fatalf("expected dead observer removed, %d remain", got)
	}
	if len(healthy.Frames()) != 1 {
		t.Fatalf("expected healthy observer to receive the frame, got %d", len(healthy.Frames()))
	}
}

func TestLateSubscriberReceivesCurrentSnapshot(t *testing.T) {
	j := newJob(t)
	for _, name := range order[:3] {
		if err := j.StartStage(name); err != nil {
			t.Fatal(err)
		}
		if err := j.CompleteStage(name, ""); err != nil {
			t.Fatal(err)
		}
	}
	lookup := func(id string) (job.State, bool) {
		if id != "job-1" {
			return job.State{}, false
		}
		return j.Snapshot(), true
	}
	hub := broadcast.NewHub(lookup, logging.NewNop())
	late := &recordingObserver{}
	if !hub.Subscribe("job-1", late) {
		t.Fatal("expected subscription to succeed")
	}

	frames := late.Frames()
	if len(frames) != 1 {
		t.Fatalf("expected one initial frame, got %d", len(frames))
	}
	var view struct {
		CurrentStep int `json:"current_step"`
		Steps       map[string]struct {
			Status string `json:"status"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(frames[0], &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.CurrentStep != 3 {
		t.Fatalf("expected current step 3, got %d", view.CurrentStep)
	}
	done := 0
	for _, st := range view.Steps {
		if st.Status == "success" {
			done++
		}
	}
	if done != 3 {
		t.Fatalf("expected 3 completed stages, got %d", done)
	}

	unknown := &recordingObserver{}
	hub.Subscribe("missing", unknown)
	if len(unknown.Frames()) != 0 {
		t.Fatal("expected no frame for an unknown job")
	}
}

func TestUnsubscribeDropsEmptySet(t *testing.T) {
	hub := broadcast.NewHub(nil, logging.NewNop())
	obs := &recordingObserver{}
	hub.Subscribe("job-1", obs)
	if hub.Topics() != 1 {
		t.Fatalf("expected one topic, got %d", hub.Topics())
	}
	hub.Unsubscribe("job-1", obs)
	if hub.Topics() != 0 || hub.Count("job-1") != 0 {
		t.Fatal("expected topic removed with its last observer")
	}
	hub.Unsubscribe("job-1", obs)
}

func TestPublishWithoutObserversIsNoop(t *testing.T) {
	hub := broadcast.NewHub(nil, logging.NewNop())
	hub.Publish(newJob(t).Snapshot())
	if hub.Topics() != 0 {
		t.Fatal("expected no topics")
	}
}

func TestChannelObserver(t *testing.T) {
	obs := broadcast.NewChannelObserver(1)
	if err := obs.Send([]byte("one")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := obs.Send([]byte("two")); !errors.Is(err, broadcast.ErrObserverLagging) {
		t.Fatalf("expected lagging error, got %v", err)
	}
	if got := <-obs.Frames(); string(got) != "one" {
		t.Fatalf("unexpected frame %q", got)
	}
	obs.Close()
	obs.Close()
	if err := obs.Send([]byte("three")); !errors.Is(err, broadcast.ErrObserverClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, ok := <-obs.Frames(); ok {
		t.Fatal("expected frames channel closed")
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	j := newJob(t)
	hub := broadcast.NewHub(func(string) (job.State, bool) { return j.Snapshot(), true }, logging.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			obs := &recordingObserver{}
			hub.Subscribe("job-1", obs)
			hub.Unsubscribe("job-1", obs)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(j.Snapshot())
		}()
	}
	wg.Wait()
	if hub.Topics() != 0 {
		t.Fatalf("expected all observers gone, %d topics remain", hub.Topics())
	}
}
