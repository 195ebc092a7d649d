package httpserver

import (
	"time"

	"github.com/lender512/financial-restructuring-service/internal/domain"
	"github.com/lender512/financial-restructuring-service/internal/pipeline"
)

// Report response types for JSON serialization.

type stageReportResponse struct {
	Stage    string `json:"stage"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Warning  string `json:"warning,omitempty"`
}

type createReportResponse struct {
	ReportID   string                `json:"report_id"`
	ArtifactID string                `json:"artifact_id,omitempty"`
	Status     string                `json:"status"`
	Warnings   []string              `json:"warnings,omitempty"`
	Stages     []stageReportResponse `json:"stages"`
	Duration   string                `json:"duration,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

type reportStatusResponse struct {
	ReportID      string            `json:"report_id"`
	CustomerID    string            `json:"customer_id"`
	Status        string            `json:"status"`
	StageStatuses map[string]string `json:"stage_statuses,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	HasArtifact   bool              `json:"has_artifact"`
	ContentType   string            `json:"content_type,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type reportSummaryResponse struct {
	ReportID     string    `json:"report_id"`
	CustomerID   string    `json:"customer_id"`
	Status       string    `json:"status"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type listReportsResponse struct {
	Reports       []reportSummaryResponse `json:"reports"`
	NextPageToken string                  `json:"next_page_token,omitempty"`
	TotalCount    int                     `json:"total_count"`
}

// Converter functions

// resultToCreateResponse builds the synchronous generation response. The
// artifact ID equals the report ID and is present only when the run produced
// a document.
func resultToCreateResponse(report *domain.Report, result *pipeline.Result) createReportResponse {
	resp := createReportResponse{
		ReportID:  report.ID.String(),
		Status:    string(result.Report.Status),
		Warnings:  result.Report.Warnings,
		Stages:    make([]stageReportResponse, len(result.Report.Stages)),
		Duration:  result.Report.Duration.String(),
		CreatedAt: report.CreatedAt,
	}
	if len(result.Artifact) > 0 {
		resp.ArtifactID = report.ID.String()
	}
	for i, st := range result.Report.Stages {
		resp.Stages[i] = stageReportResponse{
			Stage:    string(st.Stage),
			Status:   string(st.Status),
			Attempts: st.Attempts,
			Warning:  st.Warning,
		}
	}
	return resp
}

func domainReportToStatusResponse(r *domain.Report) reportStatusResponse {
	return reportStatusResponse{
		ReportID:      r.ID.String(),
		CustomerID:    r.CustomerID,
		Status:        string(r.Status),
		StageStatuses: r.StageStatuses,
		Warnings:      r.Warnings,
		ErrorMessage:  r.ErrorMessage,
		HasArtifact:   r.ContentType != "",
		ContentType:   r.ContentType,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func domainReportToSummary(r *domain.Report) reportSummaryResponse {
	return reportSummaryResponse{
		ReportID:     r.ID.String(),
		CustomerID:   r.CustomerID,
		Status:       string(r.Status),
		WarningCount: len(r.Warnings),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
