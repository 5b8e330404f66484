package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"adgen/internal/catalog"
	"adgen/internal/job"
	"adgen/internal/stage"
	"adgen/internal/workflow"
)

// FromJobState converts a job snapshot into its transport form.
func FromJobState(state job.State) JobView {
	view := JobView{
		JobID:       state.JobID,
		Status:      string(state.Status),
		CurrentStep: state.CurrentStep,
		Steps:       make(map[string]StageView, len(state.Steps)),
		UpdatedAt:   formatTime(state.UpdatedAt),
	}
	for name, st := range state.Steps {
		view.Steps[name] = fromStageState(st)
	}
	if state.Status == job.StatusFailed {
		msg := state.Error
		step := state.ErrorStep
		view.Error = &msg
		view.ErrorStep = &step
	}
	if url := strings.TrimSpace(state.Artifacts.FinalImageURL); url != "" {
		view.FinalImageURL = &url
	}
	return view
}

// EncodeSnapshot serializes a job snapshot the way every observer receives it.
func EncodeSnapshot(state job.State) ([]byte, error) {
	data, err := json.Marshal(FromJobState(state))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", state.JobID, err)
	}
	return data, nil
}

// FromJobStates converts snapshots into listing rows.
func FromJobStates(states []job.State) []JobSummary {
	out := make([]JobSummary, 0, len(states))
	for _, state := range states {
		out = append(out, JobSummary{
			JobID:       state.JobID,
			ContentID:   state.ContentID,
			Style:       state.Style,
			Status:      string(state.Status),
			CurrentStep: state.CurrentStep,
			TotalSteps:  len(state.Order),
			CreatedAt:   formatTime(state.CreatedAt),
			UpdatedAt:   formatTime(state.UpdatedAt),
		})
	}
	return out
}

// ToJobRequest converts a submission body into a job request for userID.
func ToJobRequest(userID string, req SubmitRequest) job.Request {
	out := job.Request{
		UserID:     userID,
		ContentID:  strings.TrimSpace(req.ContentID),
		Style:      req.Style,
		ModelIndex: req.ModelIndex,
		UserPrompt: req.UserPrompt,
	}
	if req.AdInputs != nil {
		out.AdInputs = job.AdInputs{
			Keywords:    trimAll(req.AdInputs.Keywords),
			MustInclude: trimAll(req.AdInputs.MustInclude),
		}
	}
	return out
}

// StreamPath returns the live stream path for a job.
func StreamPath(jobID string) string {
	return "/ws/pipeline/" + jobID
}

func fromStageState(st job.StageState) StageView {
	view := StageView{
		Status:    string(st.Status),
		Error:     st.Error,
		ResultURL: st.ResultURL,
	}
	if st.StartedAt != nil {
		view.StartedAt = formatTime(*st.StartedAt)
	}
	if st.CompletedAt != nil {
		view.CompletedAt = formatTime(*st.CompletedAt)
	}
	return view
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FromContent converts a catalogue entry into its transport form.
func FromContent(c catalog.Content) Content {
	return Content{
		ContentID:   c.ContentID,
		UserID:      c.UserID,
		ImageURL:    c.ImageURL,
		Category:    c.Category,
		SubCategory: c.SubCategory,
		Color:       c.Color,
		Material:    c.Material,
		Fit:         c.Fit,
		StyleTags:   c.StyleTags,
		CreatedAt:   formatTime(c.CreatedAt),
	}
}

// ToNewContent converts a registration body into a catalogue insert.
func ToNewContent(req ContentRequest) catalog.NewContent {
	return catalog.NewContent{
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Category:    strings.TrimSpace(req.Category),
		SubCategory: strings.TrimSpace(req.SubCategory),
		Color:       strings.TrimSpace(req.Color),
		Material:    strings.TrimSpace(req.Material),
		Fit:         strings.TrimSpace(req.Fit),
		StyleTags:   trimAll(req.StyleTags),
	}
}

// FromStatusSummary converts the coordinator's stage health into transport form.
func FromStatusSummary(summary workflow.StatusSummary) HealthResponse {
	resp := HealthResponse{
		Status:      "ok",
		RunningJobs: summary.Active,
	}
	for _, count := range summary.JobStats {
		resp.TrackedJobs += count
	}
	for _, name := range stage.Order() {
		h, ok := summary.StageHealth[name]
		if !ok {
			continue
		}
		resp.Stages = append(resp.Stages, DependencyStatus{
			Stage:  name,
			Name:   h.Name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
		if !h.Ready {
			resp.Status = "degraded"
		}
	}
	return resp
}

// IsTerminal reports whether a transport status string is final.
func IsTerminal(status string) bool {
	s, ok := job.ParseStatus(status)
	return ok && s.IsTerminal()
}
