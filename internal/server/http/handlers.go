package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lender512/financial-restructuring-service/internal/domain"
	"github.com/lender512/financial-restructuring-service/internal/pipeline"
	"github.com/lender512/financial-restructuring-service/internal/repository"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxDebtItems       = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// createReport handles POST /api/v1/reports.
// It validates the financial inputs, persists a pending report, runs the
// generation pipeline synchronously and returns the execution report.
func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse and validate the request body.
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var inputs domain.AnalysisInputs
	if err := json.Unmarshal(body, &inputs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	inputs.CustomerID = strings.TrimSpace(inputs.CustomerID)
	inputs.ReportTitle = strings.TrimSpace(inputs.ReportTitle)
	if err := s.validate.Struct(inputs); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if len(inputs.DebtItems) > maxDebtItems {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("debt_items must have at most %d entries", maxDebtItems))
		return
	}

	report := domain.NewReport(inputs)
	if err := s.reportRepo.Create(ctx, report); err != nil {
		writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordReportStarted()
	}
	result, runErr := s.runner.Execute(ctx, report.ID, inputs)

	// Finalization and event publishing must survive a client disconnect
	// that cancelled the run.
	finalizeCtx := context.WithoutCancel(ctx)
	if err := s.reportRepo.Finalize(finalizeCtx, report.ID, outcomeFromResult(result, runErr)); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID.String()).Msg("failed to finalize report")
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReportCompleted(string(result.Report.Status), result.Report.Duration.Seconds())
	}
	s.publishLifecycleEvent(finalizeCtx, report, result, runErr)

	resp := resultToCreateResponse(report, result)
	switch result.Report.Status {
	case domain.ReportStatusFailed:
		writeJSON(w, http.StatusInternalServerError, resp)
	case domain.ReportStatusCancelled:
		writeJSON(w, http.StatusConflict, resp)
	default:
		writeJSON(w, http.StatusCreated, resp)
	}
}

// getReport handles GET /api/v1/reports/{reportID}.
// It returns report status, per-stage outcomes and warnings without the
// artifact bytes.
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reportID, ok := parseUUID(w, chi.URLParam(r, "reportID"), "report_id")
	if !ok {
		return
	}

	report, err := s.reportRepo.Get(ctx, reportID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainReportToStatusResponse(report))
}

// getReportArtifact handles GET /api/v1/reports/{reportID}/artifact.
// It serves the rendered PDF bytes, or 404 when the report produced none.
func (s *Server) getReportArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reportID, ok := parseUUID(w, chi.URLParam(r, "reportID"), "report_id")
	if !ok {
		return
	}

	artifact, contentType, err := s.reportRepo.GetArtifact(ctx, reportID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if contentType == "" {
		contentType = domain.ContentTypePDF
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+reportID.String()+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact)
}

// listReports handles GET /api/v1/reports.
// It returns a paginated list of report summaries with optional filters.
func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, offset := parsePaginationParams(r)

	filter := repository.ReportFilter{
		Limit:  limit,
		Offset: offset,
	}

	if customerID := r.URL.Query().Get("customer_id"); customerID != "" {
		filter.CustomerID = customerID
	}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		filter.Status = []domain.ReportStatus{domain.ReportStatus(statusParam)}
	}
	if createdAfter := r.URL.Query().Get("created_after"); createdAfter != "" {
		t, parseErr := time.Parse(time.RFC3339, createdAfter)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid created_after format: expected RFC3339")
			return
		}
		filter.CreatedAfter = &t
	}
	if createdBefore := r.URL.Query().Get("created_before"); createdBefore != "" {
		t, parseErr := time.Parse(time.RFC3339, createdBefore)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid created_before format: expected RFC3339")
			return
		}
		filter.CreatedBefore = &t
	}

	reports, totalCount, err := s.reportRepo.List(ctx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries := make([]reportSummaryResponse, len(reports))
	for i, rep := range reports {
		summaries[i] = domainReportToSummary(rep)
	}

	writeJSON(w, http.StatusOK, listReportsResponse{
		Reports:       summaries,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// publishLifecycleEvent emits the Kafka event matching the run outcome.
// Publish failures are logged, never surfaced to the caller.
func (s *Server) publishLifecycleEvent(ctx context.Context, report *domain.Report, result *pipeline.Result, runErr error) {
	if s.publisher == nil {
		return
	}

	var (
		eventType string
		payload   interface{}
	)
	switch result.Report.Status {
	case domain.ReportStatusSucceeded:
		eventType = domain.EventTypeReportGenerated
		payload = generatedPayload(report, result)
	case domain.ReportStatusDegraded:
		eventType = domain.EventTypeReportDegraded
		payload = generatedPayload(report, result)
	case domain.ReportStatusFailed:
		eventType = domain.EventTypeReportFailed
		payload = domain.ReportFailedPayload{
			ReportID:   report.ID,
			CustomerID: report.CustomerID,
			Error:      errorMessage(runErr),
			Stage:      failedStage(result),
		}
	case domain.ReportStatusCancelled:
		eventType = domain.EventTypeReportCancelled
		payload = domain.ReportCancelledPayload{
			ReportID:   report.ID,
			CustomerID: report.CustomerID,
		}
	default:
		return
	}

	event, err := domain.NewReportEvent(eventType, report.ID, report.CustomerID, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID.String()).Msg("failed to build report event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("report_id", report.ID.String()).
			Str("event_type", eventType).
			Msg("failed to publish report event")
	}
}

func generatedPayload(report *domain.Report, result *pipeline.Result) domain.ReportGeneratedPayload {
	return domain.ReportGeneratedPayload{
		ReportID:      report.ID,
		CustomerID:    report.CustomerID,
		Status:        result.Report.Status,
		Warnings:      result.Report.Warnings,
		ArtifactBytes: len(result.Artifact),
		Duration:      result.Report.Duration,
	}
}

// outcomeFromResult converts a pipeline result into the repository outcome
// used to finalize the persisted report.
func outcomeFromResult(result *pipeline.Result, runErr error) repository.ReportOutcome {
	outcome := repository.ReportOutcome{
		Status:        result.Report.Status,
		StageStatuses: make(map[string]string, len(result.Report.Stages)),
		Warnings:      result.Report.Warnings,
		Artifact:      result.Artifact,
		ContentType:   result.ContentType,
		ErrorMessage:  errorMessage(runErr),
	}
	for _, st := range result.Report.Stages {
		outcome.StageStatuses[string(st.Stage)] = string(st.Status)
	}
	return outcome
}

// failedStage returns the first stage that failed, empty when none did.
func failedStage(result *pipeline.Result) string {
	for _, st := range result.Report.Stages {
		if st.Status == pipeline.StageFailed {
			return string(st.Stage)
		}
	}
	return ""
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// validationMessage renders a validator error as a client-facing message
// naming the first offending field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("invalid value for %s: failed %s validation", fe.Namespace(), fe.Tag())
	}
	return "invalid request body"
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to
// clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// Returns the parsed UUID and true on success, or uuid.Nil and false on failure.
// The parse error details are not included to avoid echoing potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodePageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
