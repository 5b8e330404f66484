package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MessageTypePing marks the keepalive frame sent on idle live streams.
const MessageTypePing = "ping"

// StageView is the transport form of one stage's state.
type StageView struct {
	Status      string `json:"status"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
	ResultURL   string `json:"result_url,omitempty"`
}

// JobView is the snapshot exposed by both the status endpoint and the live
// stream. Both interfaces serialize this exact type.
type JobView struct {
	JobID         string               `json:"job_id"`
	Status        string               `json:"status"`
	CurrentStep   int                  `json:"current_step"`
	Steps         map[string]StageView `json:"steps"`
	Error         *string              `json:"error"`
	ErrorStep     *int                 `json:"error_step"`
	FinalImageURL *string              `json:"final_image_url"`
	UpdatedAt     string               `json:"updated_at"`
}

// JobSummary is a compact listing row for a caller's jobs.
type JobSummary struct {
	JobID       string `json:"job_id"`
	ContentID   string `json:"content_id"`
	Style       string `json:"style"`
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// JobListResponse wraps the caller's jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// SubmitRequest is the body of a pipeline submission.
type SubmitRequest struct {
	ContentID  string    `json:"content_id"`
	Style      string    `json:"style"`
	ModelIndex *int      `json:"model_index,omitempty"`
	UserPrompt string    `json:"user_prompt,omitempty"`
	AdInputs   *AdInputs `json:"ad_inputs,omitempty"`
}

// AdInputs carries structured caption hints.
type AdInputs struct {
	Keywords    []string `json:"keywords,omitempty"`
	MustInclude []string `json:"must_include,omitempty"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	WSURL   string `json:"ws_url"`
}

// StreamMessage is the envelope used for non-snapshot stream frames.
type StreamMessage struct {
	Type string `json:"type"`
}

// Content is a catalogue entry in transport form.
type Content struct {
	ContentID   string   `json:"content_id"`
	UserID      string   `json:"user_id"`
	ImageURL    string   `json:"image_url"`
	Category    string   `json:"category,omitempty"`
	SubCategory string   `json:"sub_category,omitempty"`
	Color       string   `json:"color,omitempty"`
	Material    string   `json:"material,omitempty"`
	Fit         string   `json:"fit,omitempty"`
	StyleTags   []string `json:"style_tags,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// ContentRequest registers a new content entry.
type ContentRequest struct {
	ImageURL    string   `json:"image_url"`
	Category    string   `json:"category,omitempty"`
	SubCategory string   `json:"sub_category,omitempty"`
	Color       string   `json:"color,omitempty"`
	Material    string   `json:"material,omitempty"`
	Fit         string   `json:"fit,omitempty"`
	StyleTags   []string `json:"style_tags,omitempty"`
}

// ContentListResponse wraps catalogue entries.
type ContentListResponse struct {
	Contents []Content `json:"contents"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status      string             `json:"status"`
	RunningJobs int                `json:"running_jobs"`
	TrackedJobs int                `json:"tracked_jobs"`
	Stages      []DependencyStatus `json:"stages,omitempty"`
}

// DependencyStatus reports the readiness of one stage collaborator.
type DependencyStatus struct {
	Stage  string `json:"stage"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PingFrame returns the encoded keepalive frame.
func PingFrame() []byte {
	data, _ := json.Marshal(StreamMessage{Type: MessageTypePing})
	return data
}
