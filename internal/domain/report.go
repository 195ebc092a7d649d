package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContentTypePDF is the content type of rendered report artifacts.
const ContentTypePDF = "application/pdf"

// Report is a persisted report request together with its artifact,
// if one was produced. Stage statuses and warnings are stored as JSONB.
type Report struct {
	ID uuid.UUID `json:"id"`

	// CustomerID identifies the customer the report belongs to.
	CustomerID string `json:"customer_id"`

	// Status is the terminal status of the generation run, or pending
	// while the pipeline is executing.
	Status ReportStatus `json:"status"`

	// StageStatuses maps stage name to its terminal per-stage status.
	StageStatuses map[string]string `json:"stage_statuses,omitempty"`

	// Warnings lists human-readable degradation notices in the order
	// they were recorded.
	Warnings []string `json:"warnings,omitempty"`

	// ErrorMessage is set when the run failed with an internal defect.
	ErrorMessage string `json:"error_message,omitempty"`

	// Artifact holds the rendered document bytes. Nil unless the run
	// produced an artifact.
	Artifact []byte `json:"-"`

	// ContentType is the artifact media type, empty when Artifact is nil.
	ContentType string `json:"content_type,omitempty"`

	// Inputs is the financial payload the report was generated from.
	Inputs AnalysisInputs `json:"inputs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasArtifact returns true if the report carries a rendered document.
func (r *Report) HasArtifact() bool {
	return len(r.Artifact) > 0
}

// NewReport creates a pending report for the given customer and inputs.
func NewReport(inputs AnalysisInputs) *Report {
	now := time.Now().UTC()
	return &Report{
		ID:         uuid.New(),
		CustomerID: inputs.CustomerID,
		Status:     ReportStatusPending,
		Inputs:     inputs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
