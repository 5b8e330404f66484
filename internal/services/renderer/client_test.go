package renderer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"adgen/internal/services"
)

var fakePNG = append([]byte("\x89PNG\r\n\x1a\n"), []byte("rest")...)

func TestRenderPostsMarkupAndCanvas(t *testing.T) {
	var got renderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(fakePNG)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Width: 1080, Height: 1350})
	data, err := client.Render(context.Background(), "<html><body>ad</body></html>")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(data) != string(fakePNG) {
		t.Fatalf("data = %q", data)
	}
	if got.Width != 1080 || got.Height != 1350 || got.Format != "png" || got.HTML == "" {
		t.Fatalf("request = %+v", got)
	}
}

func TestRenderRejectsNonPNG(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>error page</html>"))
	}))
	defer server.Close()

	if _, err := NewClient(Config{BaseURL: server.URL}).Render(context.Background(), "<p>x</p>"); err == nil {
		t.Fatal("expected error for non-png body")
	}
}

func TestRenderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "browser crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewClient(Config{BaseURL: server.URL}).Render(context.Background(), "<p>x</p>"); err == nil {
		t.Fatal("expected http error")
	}
}

func TestRenderRequiresConfigAndMarkup(t *testing.T) {
	if _, err := NewClient(Config{}).Render(context.Background(), "<p>x</p>"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewClient(Config{BaseURL: "http://unused"}).Render(context.Background(), "  "); err == nil {
		t.Fatal("expected empty markup error")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if health := NewClient(Config{BaseURL: server.URL}).HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}
	server.Close()
	if health := NewClient(Config{BaseURL: server.URL}).HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy after close")
	}
}
