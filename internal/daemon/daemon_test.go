package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"adgen/internal/api"
	"adgen/internal/config"
	"adgen/internal/daemon"
	"adgen/internal/daemonrun"
	"adgen/internal/logging"
	"adgen/internal/testsupport"
)

type harness struct {
	t         *testing.T
	cfg       *config.Config
	providers *testsupport.Providers
	daemon    *daemon.Daemon
	base      string
}

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	providers := testsupport.NewProviders(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithToken("tok-alice", "alice"),
		testsupport.WithToken("tok-bob", "bob"),
		testsupport.WithProviders(providers.URL()),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	comps, err := daemonrun.Build(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d, err := daemon.New(cfg, comps, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return &harness{t: t, cfg: cfg, providers: providers, daemon: d, base: "http://" + d.Addr()}
}

func (h *harness) do(method, path, token string, body any) *http.Response {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.base+path, reader)
	if err != nil {
		h.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	h.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (h *harness) addContent(token, category string) api.Content {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/api/contents", token, api.ContentRequest{
		ImageURL: "https://cdn.test/uploads/shirt.jpg",
		Category: category,
		Color:    "화이트",
		Material: "린넨",
	})
	if resp.StatusCode != http.StatusCreated {
		h.t.Fatalf("add content status = %d", resp.StatusCode)
	}
	return decode[api.Content](h.t, resp)
}

func (h *harness) submit(token string, req api.SubmitRequest) api.SubmitResponse {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/api/pipeline/run", token, req)
	if resp.StatusCode != http.StatusAccepted {
		body := decode[api.ErrorResponse](h.t, resp)
		h.t.Fatalf("submit status = %d (%s)", resp.StatusCode, body.Error)
	}
	return decode[api.SubmitResponse](h.t, resp)
}

func (h *harness) waitTerminal(token, jobID string) api.JobView {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := h.do(http.MethodGet, "/api/pipeline/"+jobID+"/status", token, nil)
		if resp.StatusCode != http.StatusOK {
			h.t.Fatalf("status code = %d", resp.StatusCode)
		}
		view := decode[api.JobView](h.t, resp)
		if view.Status == "success" || view.Status == "failed" {
			return view
		}
		time.Sleep(20 * time.Millisecond)
	}
	h.t.Fatalf("job %s did not finish", jobID)
	return api.JobView{}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	h := startDaemon(t)

	resp := h.do(http.MethodGet, "/api/pipeline", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}

	resp = h.do(http.MethodGet, "/api/pipeline", "tok-unknown", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", resp.StatusCode)
	}

	resp = h.do(http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health should not need a token, got %d", resp.StatusCode)
	}
}

func TestPipelineRunSucceeds(t *testing.T) {
	h := startDaemon(t)
	content := h.addContent("tok-alice", "상의")

	ack := h.submit("tok-alice", api.SubmitRequest{
		ContentID: content.ContentID,
		Style:     "resort",
		AdInputs:  &api.AdInputs{Keywords: []string{"여름 신상"}, MustInclude: []string{"무료배송"}},
	})
	if ack.Status != "pending" {
		t.Fatalf("ack status = %q", ack.Status)
	}
	if ack.WSURL != "/ws/pipeline/"+ack.JobID {
		t.Fatalf("ws_url = %q", ack.WSURL)
	}

	view := h.waitTerminal("tok-alice", ack.JobID)
	if view.Status != "success" {
		t.Fatalf("job status = %s error=%v", view.Status, view.Error)
	}
	if view.CurrentStep != 7 || len(view.Steps) != 7 {
		t.Fatalf("unexpected progress: step=%d steps=%d", view.CurrentStep, len(view.Steps))
	}
	for name, st := range view.Steps {
		if st.Status != "success" {
			t.Fatalf("stage %s status = %s", name, st.Status)
		}
	}
	if view.FinalImageURL == nil || !strings.HasPrefix(*view.FinalImageURL, "https://cdn.test/media/") {
		t.Fatalf("final image url = %v", view.FinalImageURL)
	}
	if got := h.providers.Calls("/v1/chat/completions"); got != 1 {
		t.Fatalf("caption calls = %d", got)
	}
	if got := h.providers.Calls("/render"); got != 1 {
		t.Fatalf("render calls = %d", got)
	}

	key := strings.TrimPrefix(*view.FinalImageURL, "https://cdn.test/media/")
	resp := h.do(http.MethodGet, "/media/"+key, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("media status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(data, testsupport.PNG) {
		t.Fatalf("unexpected final image bytes %q", data)
	}

	list := decode[api.JobListResponse](t, h.do(http.MethodGet, "/api/pipeline", "tok-alice", nil))
	if len(list.Jobs) != 1 || list.Jobs[0].JobID != ack.JobID {
		t.Fatalf("unexpected job list %+v", list.Jobs)
	}
	if list.Jobs[0].TotalSteps != 7 {
		t.Fatalf("total steps = %d", list.Jobs[0].TotalSteps)
	}
}

func TestSubmitRejections(t *testing.T) {
	h := startDaemon(t)
	content := h.addContent("tok-alice", "상의")

	resp := h.do(http.MethodPost, "/api/pipeline/run", "tok-alice", api.SubmitRequest{ContentID: content.ContentID, Style: "gothic"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown style: expected 400, got %d", resp.StatusCode)
	}
	if body := decode[api.ErrorResponse](t, resp); body.Error == "" {
		t.Fatal("expected an error message")
	}

	resp = h.do(http.MethodPost, "/api/pipeline/run", "tok-alice", api.SubmitRequest{ContentID: "missing", Style: "resort"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing content: expected 404, got %d", resp.StatusCode)
	}

	resp = h.do(http.MethodPost, "/api/pipeline/run", "tok-bob", api.SubmitRequest{ContentID: content.ContentID, Style: "resort"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign content: expected 404, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, h.base+"/api/pipeline/run", strings.NewReader(`{"content_id":"x","bogus":1}`))
	req.Header.Set("Authorization", "Bearer tok-alice")
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", raw.StatusCode)
	}

	list := decode[api.JobListResponse](t, h.do(http.MethodGet, "/api/pipeline", "tok-alice", nil))
	if len(list.Jobs) != 0 {
		t.Fatalf("rejected submissions must not create jobs, got %d", len(list.Jobs))
	}
}

func TestJobOwnership(t *testing.T) {
	h := startDaemon(t)
	content := h.addContent("tok-alice", "상의")
	ack := h.submit("tok-alice", api.SubmitRequest{ContentID: content.ContentID, Style: "retro"})
	h.waitTerminal("tok-alice", ack.JobID)

	resp := h.do(http.MethodGet, "/api/pipeline/"+ack.JobID+"/status", "tok-bob", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = h.do(http.MethodGet, "/api/pipeline/unknown/status", "tok-alice", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	list := decode[api.JobListResponse](t, h.do(http.MethodGet, "/api/pipeline", "tok-bob", nil))
	if len(list.Jobs) != 0 {
		t.Fatalf("bob should see no jobs, got %d", len(list.Jobs))
	}
	resp = h.do(http.MethodGet, "/api/contents/"+content.ContentID, "tok-bob", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign content lookup: expected 404, got %d", resp.StatusCode)
	}
}

func TestCategoryConflictFailsAtFitting(t *testing.T) {
	h := startDaemon(t)
	content := h.addContent("tok-alice", "상의")

	ack := h.submit("tok-alice", api.SubmitRequest{ContentID: content.ContentID, Style: "romantic"})
	view := h.waitTerminal("tok-alice", ack.JobID)
	if view.Status != "failed" {
		t.Fatalf("expected failure, got %s", view.Status)
	}
	if view.ErrorStep == nil || *view.ErrorStep != 3 {
		t.Fatalf("error step = %v", view.ErrorStep)
	}
	if view.Error == nil || !strings.Contains(*view.Error, "category conflict") {
		t.Fatalf("error = %v", view.Error)
	}
	if view.Steps["virtual_fitting"].Status != "failed" || view.Steps["generate_background"].Status != "pending" {
		t.Fatalf("unexpected stage states %+v", view.Steps)
	}
	if got := h.providers.Calls("/v1/fitting"); got != 0 {
		t.Fatalf("fitting provider must not be called, got %d", got)
	}
}

func TestProviderFailureStopsPipeline(t *testing.T) {
	h := startDaemon(t)
	h.providers.Fail("/v1/scenes", http.StatusBadRequest)
	content := h.addContent("tok-alice", "아우터")

	ack := h.submit("tok-alice", api.SubmitRequest{ContentID: content.ContentID, Style: "resort"})
	view := h.waitTerminal("tok-alice", ack.JobID)
	if view.Status != "failed" || view.ErrorStep == nil || *view.ErrorStep != 4 {
		t.Fatalf("unexpected outcome status=%s step=%v", view.Status, view.ErrorStep)
	}
	if view.FinalImageURL != nil {
		t.Fatalf("failed job must not carry a final image, got %s", *view.FinalImageURL)
	}
	if got := h.providers.Calls("/v1/chat/completions"); got != 0 {
		t.Fatalf("later stages must not run, caption calls = %d", got)
	}
}

func TestContentsRoundTrip(t *testing.T) {
	h := startDaemon(t)
	added := h.addContent("tok-alice", "하의")

	got := decode[api.Content](t, h.do(http.MethodGet, "/api/contents/"+added.ContentID, "tok-alice", nil))
	if got.Category != "하의" || got.UserID != "alice" {
		t.Fatalf("unexpected content %+v", got)
	}
	list := decode[api.ContentListResponse](t, h.do(http.MethodGet, "/api/contents", "tok-alice", nil))
	if len(list.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(list.Contents))
	}

	resp := h.do(http.MethodPost, "/api/contents", "tok-alice", api.ContentRequest{ImageURL: "ftp://cdn.test/x.jpg"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-https image: expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthReportsStages(t *testing.T) {
	h := startDaemon(t)

	health := decode[api.HealthResponse](t, h.do(http.MethodGet, "/api/health", "", nil))
	if health.Status != "ok" {
		t.Fatalf("health status = %q (%+v)", health.Status, health.Stages)
	}
	if health.RunningJobs != 0 {
		t.Fatalf("running jobs = %d", health.RunningJobs)
	}
	if len(health.Stages) == 0 {
		t.Fatal("expected stage dependency rows")
	}

	h.providers.Fail("/health", http.StatusServiceUnavailable)
	health = decode[api.HealthResponse](t, h.do(http.MethodGet, "/api/health", "", nil))
	if health.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", health.Status)
	}
}

func TestStreamRelaysSnapshotsAndKeepalive(t *testing.T) {
	h := startDaemon(t, testsupport.WithKeepalive(1))
	content := h.addContent("tok-alice", "상의")
	h.providers.Hold()

	ack := h.submit("tok-alice", api.SubmitRequest{ContentID: content.ContentID, Style: "resort"})

	wsURL := "ws://" + h.daemon.Addr() + ack.WSURL + "?access_token=tok-alice"
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decode frame %q: %v", data, err)
		}
		return frame
	}

	first := read()
	if first["job_id"] != ack.JobID {
		t.Fatalf("first frame should be the current snapshot, got %v", first)
	}

	sawPing := false
	for i := 0; i < 20 && !sawPing; i++ {
		frame := read()
		if frame["type"] == api.MessageTypePing {
			sawPing = true
		}
	}
	if !sawPing {
		t.Fatal("expected a keepalive ping while the job is held")
	}

	h.providers.Release()
	lastStep := 0.0
	for {
		frame := read()
		if frame["type"] == api.MessageTypePing {
			continue
		}
		step, _ := frame["current_step"].(float64)
		if step < lastStep {
			t.Fatalf("current_step went backwards: %v -> %v", lastStep, step)
		}
		lastStep = step
		if frame["status"] == "success" {
			if frame["final_image_url"] == nil {
				t.Fatal("terminal frame lacks final image url")
			}
			return
		}
		if frame["status"] == "failed" {
			t.Fatalf("job failed: %v", frame["error"])
		}
	}
}

func TestStreamRejectsForeignJob(t *testing.T) {
	h := startDaemon(t)
	content := h.addContent("tok-alice", "상의")
	ack := h.submit("tok-alice", api.SubmitRequest{ContentID: content.ContentID, Style: "resort"})

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{"Authorization": []string{"Bearer tok-bob"}}
	_, resp, err := dialer.Dial("ws://"+h.daemon.Addr()+ack.WSURL, header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %v", resp)
	}
}

func TestSecondInstanceCannotStart(t *testing.T) {
	h := startDaemon(t)

	comps, err := daemonrun.Build(h.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := daemon.New(h.cfg, comps, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer second.Close()

	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}

	status := h.daemon.Status(context.Background())
	if !status.Running || status.APIAddress == "" {
		t.Fatalf("unexpected status %+v", status)
	}
}
