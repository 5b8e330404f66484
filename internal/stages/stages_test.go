package stages_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"adgen/internal/job"
	"adgen/internal/services"
	"adgen/internal/stage"
	"adgen/internal/stages"
	"adgen/internal/workflow"
)

type fakeWorld struct {
	mu sync.Mutex

	asset      stages.Asset
	assetErr   error
	removeErr  error
	caption    string
	objects    map[string][]byte
	fitCalls   []stages.FitRequest
	captionReq []stages.CaptionRequest
	layoutReq  []stages.LayoutRequest
	adCopy     map[string]string
	nextID     int
}

func newWorld(category string) *fakeWorld {
	return &fakeWorld{
		asset: stages.Asset{
			ContentID: "c1",
			UserID:    "u1",
			ImageURL:  "https://cdn.example.com/uploads/c1.jpg",
			Category:  category,
			Color:     "navy",
		},
		caption: "바람을 닮은 오늘의 아우터 ☁️",
		objects: make(map[string][]byte),
		adCopy:  make(map[string]string),
	}
}

func (w *fakeWorld) ResolveAsset(_ context.Context, userID, contentID string) (stages.Asset, error) {
	if w.assetErr != nil {
		return stages.Asset{}, w.assetErr
	}
	if userID != w.asset.UserID || contentID != w.asset.ContentID {
		return stages.Asset{}, services.Wrap(services.ErrNotFound, "", "resolve content", "content not found", nil)
	}
	return w.asset, nil
}

func (w *fakeWorld) RemoveBackground(_ context.Context, imageURL string) ([]byte, error) {
	if w.removeErr != nil {
		return nil, w.removeErr
	}
	return []byte("png:" + imageURL), nil
}

func (w *fakeWorld) Fit(_ context.Context, req stages.FitRequest) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fitCalls = append(w.fitCalls, req)
	return []byte("fitted"), nil
}

func (w *fakeWorld) Synthesize(_ context.Context, req stages.SceneRequest) ([]byte, error) {
	return []byte("scene:" + req.Style), nil
}

func (w *fakeWorld) WriteCaption(_ context.Context, req stages.CaptionRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.captionReq = append(w.captionReq, req)
	return "  " + w.caption + "  ", nil
}

func (w *fakeWorld) Compose(_ context.Context, req stages.LayoutRequest) (stages.Layout, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.layoutReq = append(w.layoutReq, req)
	html := fmt.Sprintf("<html><body class=%q><img src=%q><h1>%s</h1>%s</body></html>",
		req.Template, req.ImageURL, req.Caption, strings.Repeat("<br>", 20))
	return stages.Layout{HTML: html, AdCopy: map[string]string{"headline": req.Caption}}, nil
}

func (w *fakeWorld) Render(_ context.Context, html string) ([]byte, error) {
	return []byte("rendered:" + html[:10]), nil
}

func (w *fakeWorld) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	if contentType != "image/png" {
		return "", fmt.Errorf("unexpected content type %s", contentType)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[key] = data
	return "https://cdn.example.com/media/" + key, nil
}

func (w *fakeWorld) id(prefix string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	return fmt.Sprintf("%s-%d", prefix, w.nextID)
}

func (w *fakeWorld) RecordGeneration(_ context.Context, rec stages.GenerationRecord) (string, error) {
	if rec.ResultURL == "" {
		return "", errors.New("missing result url")
	}
	return w.id("gen"), nil
}

func (w *fakeWorld) RecordCaption(_ context.Context, rec stages.CaptionRecord) (string, error) {
	if rec.GenerationID == "" {
		return "", errors.New("caption recorded without generation")
	}
	return w.id("cap"), nil
}

func (w *fakeWorld) RecordAdCopy(_ context.Context, rec stages.AdCopyRecord) (string, error) {
	if rec.CaptionID == "" {
		return "", errors.New("ad copy recorded without caption")
	}
	return w.id("copy"), nil
}

func (w *fakeWorld) SetAdCopyImage(_ context.Context, adCopyID, imageURL string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adCopy[adCopyID] = imageURL
	return nil
}

func (w *fakeWorld) deps() stages.Dependencies {
	return stages.Dependencies{
		Assets:   w,
		Remover:  w,
		Fitter:   w,
		Scenes:   w,
		Captions: w,
		Layouts:  w,
		Renderer: w,
		Store:    w,
		History:  w,
	}
}

func runJob(t *testing.T, w *fakeWorld, req job.Request) job.State {
	t.Helper()
	built, err := stages.Build(w.deps())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p, err := workflow.NewPipeline(built, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	j, err := job.Create("job-42", req, p.Names())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := p.Run(context.Background(), j); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return j.Snapshot()
}

func TestPipelineWithAllCollaboratorsSucceeds(t *testing.T) {
	w := newWorld("아우터")
	snap := runJob(t, w, job.Request{
		UserID:    "u1",
		ContentID: "c1",
		Style:     "resort",
		AdInputs:  job.AdInputs{Keywords: []string{"여름"}, MustInclude: []string{"무료배송"}},
	})

	if snap.Status != job.StatusSuccess {
		t.Fatalf("status = %s (%s at %d)", snap.Status, snap.Error, snap.ErrorStep)
	}
	if snap.CompletedStages() != len(stage.Order()) {
		t.Fatalf("completed = %d", snap.CompletedStages())
	}
	for _, key := range []string{
		"pipeline/job-42/removed_bg.png",
		"pipeline/job-42/fitted.png",
		"pipeline/job-42/background.png",
	} {
		if _, ok := w.objects[key]; !ok {
			t.Fatalf("missing object %s (have %v)", key, w.objects)
		}
	}
	if !strings.HasPrefix(snap.Artifacts.FinalImageURL, "https://cdn.example.com/media/u1/ads/ad_") {
		t.Fatalf("final url = %q", snap.Artifacts.FinalImageURL)
	}
	if snap.Steps[stage.SaveImage].ResultURL != snap.Artifacts.FinalImageURL {
		t.Fatal("save stage result url should be the final image")
	}
	if snap.Artifacts.Caption != w.caption {
		t.Fatalf("caption not trimmed: %q", snap.Artifacts.Caption)
	}
	if snap.Artifacts.GenerationID == "" || snap.Artifacts.CaptionID == "" || snap.Artifacts.AdCopyID == "" {
		t.Fatalf("history ids missing: %+v", snap.Artifacts)
	}
	if w.adCopy[snap.Artifacts.AdCopyID] != snap.Artifacts.FinalImageURL {
		t.Fatal("ad copy record should point at the final image")
	}
	if len(w.captionReq) != 1 || w.captionReq[0].Keywords[0] != "여름" || w.captionReq[0].MustInclude[0] != "무료배송" {
		t.Fatalf("caption request = %+v", w.captionReq)
	}
	if len(w.layoutReq) != 1 || w.layoutReq[0].Template != "minimal" || w.layoutReq[0].Asset.Color != "navy" {
		t.Fatalf("layout request = %+v", w.layoutReq)
	}
}

func TestFittingRequestCarriesPoseAndModelIndex(t *testing.T) {
	w := newWorld("아우터")
	idx := 2
	snap := runJob(t, w, job.Request{UserID: "u1", ContentID: "c1", Style: "romantic", ModelIndex: &idx, UserPrompt: "노을"})
	if snap.Status != job.StatusSuccess {
		t.Fatalf("status = %s (%s)", snap.Status, snap.Error)
	}
	if len(w.fitCalls) != 1 {
		t.Fatalf("fit calls = %d", len(w.fitCalls))
	}
	call := w.fitCalls[0]
	if call.Pose != stage.WearsOnePiece || call.ModelIndex == nil || *call.ModelIndex != 2 || call.UserPrompt != "노을" {
		t.Fatalf("fit request = %+v", call)
	}
	if w.layoutReq[0].Template != "bold" {
		t.Fatalf("romantic template = %s", w.layoutReq[0].Template)
	}
}

func TestConflictingCategoryNeverReachesFitter(t *testing.T) {
	for _, category := range []string{"상의", "하의"} {
		w := newWorld(category)
		snap := runJob(t, w, job.Request{UserID: "u1", ContentID: "c1", Style: "romantic"})
		if len(w.fitCalls) != 0 {
			t.Fatalf("%s: fitter was called", category)
		}
		if snap.Status != job.StatusFailed || snap.ErrorStep != 3 {
			t.Fatalf("%s: status=%s step=%d", category, snap.Status, snap.ErrorStep)
		}
		if !strings.Contains(snap.Error, "conflict") {
			t.Fatalf("%s: error = %q", category, snap.Error)
		}
	}
}

func TestCollaboratorFailureIsRecordedOnStage(t *testing.T) {
	w := newWorld("아우터")
	w.removeErr = errors.New("provider returned 503")
	snap := runJob(t, w, job.Request{UserID: "u1", ContentID: "c1", Style: "retro"})
	if snap.Status != job.StatusFailed || snap.ErrorStep != 2 {
		t.Fatalf("status=%s step=%d", snap.Status, snap.ErrorStep)
	}
	if !strings.Contains(snap.Error, "503") {
		t.Fatalf("error = %q", snap.Error)
	}
	if got := snap.Steps[stage.RemoveBackground].Error; got != snap.Error {
		t.Fatalf("stage error %q != job error %q", got, snap.Error)
	}
	for _, name := range stage.Order()[2:] {
		if snap.Steps[name].Status != job.StagePending {
			t.Fatalf("%s = %s", name, snap.Steps[name].Status)
		}
	}
}

func TestMissingContentFailsFirstStage(t *testing.T) {
	w := newWorld("아우터")
	snap := runJob(t, w, job.Request{UserID: "u1", ContentID: "other", Style: "resort"})
	if snap.Status != job.StatusFailed || snap.ErrorStep != 1 {
		t.Fatalf("status=%s step=%d", snap.Status, snap.ErrorStep)
	}
	if snap.Error != "content not found" {
		t.Fatalf("error = %q", snap.Error)
	}
}

func TestBuildRequiresCollaborators(t *testing.T) {
	_, err := stages.Build(stages.Dependencies{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	w := newWorld("아우터")
	deps := w.deps()
	deps.History = nil
	built, err := stages.Build(deps)
	if err != nil {
		t.Fatalf("history should be optional: %v", err)
	}
	if len(built) != 7 {
		t.Fatalf("built %d stages", len(built))
	}
	for i, name := range stage.Order() {
		if built[i].Name != name || built[i].Pre == nil || built[i].Post == nil {
			t.Fatalf("stage %d = %+v", i, built[i].Name)
		}
	}
}

func TestObjectKeys(t *testing.T) {
	if got := stages.IntermediateKey("j1", "fitted"); got != "pipeline/j1/fitted.png" {
		t.Fatalf("intermediate key = %s", got)
	}
	a, b := stages.FinalKey("u9"), stages.FinalKey("u9")
	if !strings.HasPrefix(a, "u9/ads/ad_") || !strings.HasSuffix(a, ".png") || a == b {
		t.Fatalf("final keys %s %s", a, b)
	}
}
