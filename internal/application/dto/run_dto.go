package dto

import (
	"time"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// RunFeatureInput represents input for running a feature
type RunFeatureInput struct {
	Slug string `json:"slug"` // Feature slug, e.g. "0001_upload_retries"
}

// RunFeatureOutput represents the result of a finished run
type RunFeatureOutput struct {
	RunID      string    `json:"run_id"`
	Slug       string    `json:"slug"`
	Status     string    `json:"status"`           // completed or failed
	TotalTurns int       `json:"total_turns"`      // Turns recorded in the execution summary
	PR         string    `json:"pr,omitempty"`     // Pull request URL
	ErrorCode  string    `json:"error_code,omitempty"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// PhaseStatusDTO is the status of one phase
type PhaseStatusDTO struct {
	Index  int    `json:"index"` // 1-based
	Name   string `json:"name"`
	Status string `json:"status"`
	Turns  int    `json:"turns"`
	Commit string `json:"commit,omitempty"`
}

// FeatureStatusDTO summarises an execution record for display
type FeatureStatusDTO struct {
	Slug             string           `json:"slug"`
	Feature          string           `json:"feature"`
	Phases           []PhaseStatusDTO `json:"phases"`
	Status           string           `json:"status"` // execution status, "pending" before the first run
	TotalTurns       int              `json:"total_turns"`
	ReviewTurns      int              `json:"review_turns"`
	IssuesFound      int              `json:"issues_found"`
	IssuesFixed      int              `json:"issues_fixed"`
	VerificationRan  bool             `json:"verification_ran"`
	VerificationPass bool             `json:"verification_passed"`
	PR               string           `json:"pr,omitempty"`
}

// DoctorCheck is the outcome of one environment check
type DoctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// DoctorReport lists the environment checks run by `gba doctor`
type DoctorReport struct {
	Checks []DoctorCheck `json:"checks"`
}

// Healthy reports whether every check passed
func (r DoctorReport) Healthy() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// ArtifactDTO describes one stored artifact of a run
type ArtifactDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RunEventsDTO is the journal of one run together with its artifacts
type RunEventsDTO struct {
	RunID     string                `json:"run_id"`
	Events    []output.JournalEntry `json:"events"`
	Artifacts []ArtifactDTO         `json:"artifacts"`
}
