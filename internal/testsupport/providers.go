package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// PNG is a minimal payload that passes PNG signature checks.
var PNG = []byte("\x89PNG\r\n\x1a\nfake-image-data")

// Providers is a fake image gateway, caption model, and renderer served from
// one httptest server.
type Providers struct {
	Server *httptest.Server

	mu      sync.Mutex
	caption string
	failing map[string]int
	calls   map[string]int
	hold    chan struct{}
}

// NewProviders starts the fake provider server and closes it on cleanup.
func NewProviders(t testing.TB) *Providers {
	t.Helper()
	p := &Providers{
		caption: "여름 바다를 닮은 가벼운 리조트 룩 🌊",
		failing: make(map[string]int),
		calls:   make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if p.record(w, r) {
			w.WriteHeader(http.StatusOK)
		}
	})
	mux.HandleFunc("/v1/background/remove", p.image)
	mux.HandleFunc("/v1/fitting", p.image)
	mux.HandleFunc("/v1/scenes", p.scene)
	mux.HandleFunc("/render", p.image)
	mux.HandleFunc("/v1/chat/completions", p.chat)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		p.Release()
		p.Server.Close()
	})
	return p
}

// URL returns the server base URL.
func (p *Providers) URL() string {
	return p.Server.URL
}

// SetCaption changes the caption the fake model returns.
func (p *Providers) SetCaption(caption string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caption = caption
}

// Fail makes path answer with status until Fail is called again with 0.
func (p *Providers) Fail(path string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[path] = status
}

// Hold blocks scene synthesis until Release is called.
func (p *Providers) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hold == nil {
		p.hold = make(chan struct{})
	}
}

// Release unblocks held scene synthesis requests.
func (p *Providers) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hold != nil {
		close(p.hold)
		p.hold = nil
	}
}

// Calls returns how many requests path received.
func (p *Providers) Calls(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

func (p *Providers) record(w http.ResponseWriter, r *http.Request) bool {
	p.mu.Lock()
	p.calls[r.URL.Path]++
	status := p.failing[r.URL.Path]
	p.mu.Unlock()
	if status != 0 {
		http.Error(w, "provider unavailable", status)
		return false
	}
	return true
}

func (p *Providers) image(w http.ResponseWriter, r *http.Request) {
	if !p.record(w, r) {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(PNG)
}

func (p *Providers) scene(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	hold := p.hold
	p.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	p.image(w, r)
}

func (p *Providers) chat(w http.ResponseWriter, r *http.Request) {
	if !p.record(w, r) {
		return
	}
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	p.mu.Lock()
	caption := p.caption
	p.mu.Unlock()
	content, _ := json.Marshal(map[string]any{"caption": caption, "confidence": 0.9})
	for _, msg := range req.Messages {
		if strings.Contains(msg.Content, `{"ok":true}`) {
			content = []byte(`{"ok":true}`)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": string(content)}},
		},
	})
}
