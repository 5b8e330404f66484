package job

import (
	"strings"
	"time"
)

// Status is the job-level lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether no further transition may follow s.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ParseStatus converts a user-provided string into a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusRunning:
		return StatusRunning, true
	case StatusSuccess:
		return StatusSuccess, true
	case StatusFailed:
		return StatusFailed, true
	default:
		return "", false
	}
}

// StageStatus is the lifecycle state of one stage within a job.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	// StageSkipped is reserved; the pipeline never produces it.
	StageSkipped StageStatus = "skipped"
)

// StageState records the progress of one stage.
type StageState struct {
	Status      StageStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	ResultURL   string      `json:"result_url,omitempty"`
}

// AdInputs carries the structured hints a caller supplies for the caption.
type AdInputs struct {
	Keywords    []string `json:"keywords,omitempty"`
	MustInclude []string `json:"must_include,omitempty"`
}

func (a AdInputs) clone() AdInputs {
	return AdInputs{
		Keywords:    append([]string(nil), a.Keywords...),
		MustInclude: append([]string(nil), a.MustInclude...),
	}
}

// Request describes a job submission after the caller has been authenticated.
type Request struct {
	UserID     string
	ContentID  string
	Style      string
	ModelIndex *int
	UserPrompt string
	AdInputs   AdInputs
}

// Artifacts holds the intermediate outputs stages hand to one another and the
// catalogue record ids returned by collaborators.
type Artifacts struct {
	ProductImageURL    string `json:"product_image_url,omitempty"`
	ProductCategory    string `json:"product_category,omitempty"`
	RemovedBgURL       string `json:"removed_bg_url,omitempty"`
	FittedImageURL     string `json:"fitted_image_url,omitempty"`
	BackgroundImageURL string `json:"background_image_url,omitempty"`
	Caption            string `json:"caption,omitempty"`
	HTMLContent        string `json:"html_content,omitempty"`
	FinalImageURL      string `json:"final_image_url,omitempty"`
	GenerationID       string `json:"generation_id,omitempty"`
	CaptionID          string `json:"caption_id,omitempty"`
	AdCopyID           string `json:"ad_copy_id,omitempty"`
}

// State is a point-in-time copy of a job. Values returned by Job.Snapshot
// share no memory with the live job.
type State struct {
	JobID       string
	UserID      string
	ContentID   string
	Style       string
	ModelIndex  *int
	UserPrompt  string
	AdInputs    AdInputs
	Artifacts   Artifacts
	Status      Status
	CurrentStep int
	Error       string
	ErrorStep   int
	Order       []string
	Steps       map[string]StageState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stage returns the state of the named stage.
func (s State) Stage(name string) (StageState, bool) {
	st, ok := s.Steps[name]
	return st, ok
}

// CompletedStages counts stages that finished successfully.
func (s State) CompletedStages() int {
	count := 0
	for _, st := range s.Steps {
		if st.Status == StageSuccess {
			count++
		}
	}
	return count
}

func (s State) clone() State {
	out := s
	out.AdInputs = s.AdInputs.clone()
	out.Order = append([]string(nil), s.Order...)
	if s.ModelIndex != nil {
		idx := *s.ModelIndex
		out.ModelIndex = &idx
	}
	out.Steps = make(map[string]StageState, len(s.Steps))
	for name, st := range s.Steps {
		out.Steps[name] = cloneStage(st)
	}
	return out
}

func cloneStage(st StageState) StageState {
	out := st
	if st.StartedAt != nil {
		ts := *st.StartedAt
		out.StartedAt = &ts
	}
	if st.CompletedAt != nil {
		ts := *st.CompletedAt
		out.CompletedAt = &ts
	}
	return out
}
