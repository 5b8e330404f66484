package workflow_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adgen/internal/job"
	"adgen/internal/stage"
	"adgen/internal/workflow"
)

const finalURL = "https://cdn.example.com/u1/ads/ad_final.png"

// fakeCollaborators stands in for every external service the seven stages
// call. Zero values produce well-formed results.
type fakeCollaborators struct {
	category    string
	caption     string
	fitterCalls atomic.Int32
	renderCalls atomic.Int32
	// gate, when set, blocks generate_background until closed or ctx ends.
	gate chan struct{}
}

func (f *fakeCollaborators) stages() []stage.Stage {
	body := map[string]stage.Body{
		stage.SelectImage: func(_ context.Context, s job.State) (stage.Result, error) {
			s.Artifacts.ProductImageURL = "https://cdn.example.com/products/p1.png"
			s.Artifacts.ProductCategory = f.category
			return stage.Result{Artifacts: s.Artifacts, ResultURL: s.Artifacts.ProductImageURL}, nil
		},
		stage.RemoveBackground: func(_ context.Context, s job.State) (stage.Result, error) {
			s.Artifacts.RemovedBgURL = "https://cdn.example.com/pipeline/" + s.JobID + "/removed_bg.png"
			return stage.Result{Artifacts: s.Artifacts, ResultURL: s.Artifacts.RemovedBgURL}, nil
		},
		stage.VirtualFitting: func(_ context.Context, s job.State) (stage.Result, error) {
			f.fitterCalls.Add(1)
			s.Artifacts.FittedImageURL = "https://cdn.example.com/pipeline/" + s.JobID + "/fitted.png"
			return stage.Result{Artifacts: s.Artifacts, ResultURL: s.Artifacts.FittedImageURL}, nil
		},
		stage.GenerateBackground: func(ctx context.Context, s job.State) (stage.Result, error) {
			if f.gate != nil {
				select {
				case <-f.gate:
				case <-ctx.Done():
					return stage.Result{}, ctx.Err()
				}
			}
			s.Artifacts.BackgroundImageURL = "https://cdn.example.com/pipeline/" + s.JobID + "/background.png"
			return stage.Result{Artifacts: s.Artifacts, ResultURL: s.Artifacts.BackgroundImageURL}, nil
		},
		stage.GenerateCaption: func(_ context.Context, s job.State) (stage.Result, error) {
			s.Artifacts.Caption = f.caption
			if s.Artifacts.Caption == "" {
				s.Artifacts.Caption = "여름 바다를 닮은 가벼운 리조트 룩"
			}
			return stage.Result{Artifacts: s.Artifacts}, nil
		},
		stage.GenerateHTML: func(_ context.Context, s job.State) (stage.Result, error) {
			s.Artifacts.HTMLContent = "<html><body>" + strings.Repeat("<p>"+s.Artifacts.Caption+"</p>", 6) + "</body></html>"
			return stage.Result{Artifacts: s.Artifacts}, nil
		},
		stage.SaveImage: func(_ context.Context, s job.State) (stage.Result, error) {
			f.renderCalls.Add(1)
			s.Artifacts.FinalImageURL = finalURL
			return stage.Result{Artifacts: s.Artifacts, ResultURL: finalURL}, nil
		},
	}
	out := make([]stage.Stage, 0, len(stage.Order()))
	for _, name := range stage.Order() {
		out = append(out, stage.Stage{
			Name:  name,
			Label: stage.Label(name),
			Pre:   stage.PreCheck(name),
			Body:  body[name],
			Post:  stage.PostCheck(name),
		})
	}
	return out
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []job.State
}

func (p *recordingPublisher) Publish(state job.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, state)
}

func (p *recordingPublisher) all() []job.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]job.State(nil), p.snapshots...)
}

func newPipeline(t *testing.T, f *fakeCollaborators, pub *recordingPublisher) *workflow.Pipeline {
	t.Helper()
	var publisher interface{ Publish(job.State) }
	if pub != nil {
		publisher = pub
	}
	p, err := workflow.NewPipeline(f.stages(), publisher, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func newJob(t *testing.T, style string) *job.Job {
	t.Helper()
	j, err := job.Create("job-1", job.Request{UserID: "u1", ContentID: "c1", Style: style}, stage.Order())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return j
}

func waitFinished(t *testing.T, m *workflow.Manager, jobID string) job.State {
	t.Helper()
	h, ok := m.Handle(jobID)
	if !ok {
		t.Fatalf("no handle for %s", jobID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("job %s did not finish: %v", jobID, err)
	}
	snap, ok := m.Registry().Snapshot(jobID)
	if !ok {
		t.Fatalf("job %s missing from registry", jobID)
	}
	return snap
}

func assertLaterStagesPending(t *testing.T, snap job.State) {
	t.Helper()
	for i, name := range snap.Order {
		if i+1 <= snap.ErrorStep {
			continue
		}
		if got := snap.Steps[name].Status; got != job.StagePending {
			t.Fatalf("stage %s after failing step %d is %s, want pending", name, snap.ErrorStep, got)
		}
	}
}
