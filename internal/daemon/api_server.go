package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"adgen/internal/api"
	"adgen/internal/config"
	"adgen/internal/logging"
	"adgen/internal/services"
	"adgen/internal/workflow"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	cfg    *config.Config
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		cfg:    cfg,
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pipeline/run", authMiddleware(s.cfg, s.handleSubmit))
	mux.HandleFunc("GET /api/pipeline", authMiddleware(s.cfg, s.handleListJobs))
	mux.HandleFunc("GET /api/pipeline/{job_id}/status", authMiddleware(s.cfg, s.handleJobStatus))
	mux.HandleFunc("GET /ws/pipeline/{job_id}", authMiddleware(s.cfg, s.handleStream))
	mux.HandleFunc("POST /api/contents", authMiddleware(s.cfg, s.handleAddContent))
	mux.HandleFunc("GET /api/contents", authMiddleware(s.cfg, s.handleListContents))
	mux.HandleFunc("GET /api/contents/{content_id}", authMiddleware(s.cfg, s.handleGetContent))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.daemon.bucket != nil {
		mux.Handle("GET /media/", http.StripPrefix("/media/", s.daemon.bucket.Handler()))
	}
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.daemon.manager.Submit(r.Context(), api.ToJobRequest(callerID(r), req))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{
		JobID:   snap.JobID,
		Status:  string(snap.Status),
		Message: "pipeline started",
		WSURL:   api.StreamPath(snap.JobID),
	})
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.daemon.manager.Query(r.PathValue("job_id"), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJobState(snap))
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.JobListResponse{
		Jobs: api.FromJobStates(s.daemon.manager.List(callerID(r))),
	})
}

func (s *apiServer) handleAddContent(w http.ResponseWriter, r *http.Request) {
	var req api.ContentRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, err := s.daemon.catalog.AddContent(r.Context(), callerID(r), api.ToNewContent(req))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromContent(content))
}

func (s *apiServer) handleListContents(w http.ResponseWriter, r *http.Request) {
	contents, err := s.daemon.catalog.ListContents(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]api.Content, 0, len(contents))
	for _, c := range contents {
		out = append(out, api.FromContent(c))
	}
	s.writeJSON(w, http.StatusOK, api.ContentListResponse{Contents: out})
}

func (s *apiServer) handleGetContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.daemon.catalog.GetContent(r.Context(), callerID(r), r.PathValue("content_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromContent(content))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	s.writeJSON(w, http.StatusOK, api.FromStatusSummary(s.daemon.manager.Status(ctx)))
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps an error marker to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, workflow.ErrStopped) {
		return http.StatusServiceUnavailable
	}
	switch services.KindOf(err) {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := services.Details(err).Message
	if message == "" {
		message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
	}
	s.writeError(w, status, message)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
