package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lender512/financial-restructuring-service/internal/domain"
	"github.com/lender512/financial-restructuring-service/internal/pipeline"
	"github.com/lender512/financial-restructuring-service/internal/repository"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockReportRepo implements repository.ReportRepository for HTTP handler tests.
type mockReportRepo struct {
	createFn      func(ctx context.Context, report *domain.Report) error
	getFn         func(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	getArtifactFn func(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	finalizeFn    func(ctx context.Context, id uuid.UUID, outcome repository.ReportOutcome) error
	listFn        func(ctx context.Context, filter repository.ReportFilter) ([]*domain.Report, int64, error)
}

func (m *mockReportRepo) Create(ctx context.Context, report *domain.Report) error {
	if m.createFn != nil {
		return m.createFn(ctx, report)
	}
	return nil
}

func (m *mockReportRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockReportRepo) GetArtifact(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	if m.getArtifactFn != nil {
		return m.getArtifactFn(ctx, id)
	}
	return nil, "", domain.ErrNotFound
}

func (m *mockReportRepo) Finalize(ctx context.Context, id uuid.UUID, outcome repository.ReportOutcome) error {
	if m.finalizeFn != nil {
		return m.finalizeFn(ctx, id, outcome)
	}
	return nil
}

func (m *mockReportRepo) List(ctx context.Context, filter repository.ReportFilter) ([]*domain.Report, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

// mockRunner implements ReportRunner for HTTP handler tests.
type mockRunner struct {
	executeFn func(ctx context.Context, requestID uuid.UUID, inputs domain.AnalysisInputs) (*pipeline.Result, error)
	calls     int
}

func (m *mockRunner) Execute(ctx context.Context, requestID uuid.UUID, inputs domain.AnalysisInputs) (*pipeline.Result, error) {
	m.calls++
	if m.executeFn != nil {
		return m.executeFn(ctx, requestID, inputs)
	}
	return successResult(requestID), nil
}

// mockPublisher implements EventPublisher for HTTP handler tests.
type mockPublisher struct {
	events []*domain.ReportEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event *domain.ReportEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestHTTPServer creates a Server configured for testing with mocked dependencies.
func newTestHTTPServer(runner ReportRunner, repo repository.ReportRepository, publisher EventPublisher) *Server {
	s := &Server{
		runner:     runner,
		reportRepo: repo,
		publisher:  publisher,
		validate:   validator.New(),
		logger:     zerolog.Nop(),
	}
	s.router = s.buildRouter()
	return s
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, r)
	return rr
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func validRequestBody() []byte {
	return []byte(`{
		"customer_id": "CUST-001",
		"debt_items": [
			{"name": "credit card", "balance": 4200.50, "annual_rate_pct": 22.9, "minimum_payment": 95.00}
		],
		"consolidation_offer": {"offer_id": "OFF-9", "new_rate_pct": 9.5, "term_months": 48},
		"monthly_budget": 900
	}`)
}

func successResult(requestID uuid.UUID) *pipeline.Result {
	return &pipeline.Result{
		Artifact:    []byte("%PDF-1.4 test"),
		ContentType: domain.ContentTypePDF,
		Report: pipeline.ExecutionReport{
			RequestID: requestID,
			Status:    domain.ReportStatusSucceeded,
			Stages: []pipeline.StageReport{
				{Stage: pipeline.StageAnalysis, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageMarkdown, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageMarkup, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageDocument, Status: pipeline.StageSucceeded, Attempts: 1},
			},
			Duration: 2 * time.Second,
		},
	}
}

func degradedResult(requestID uuid.UUID) *pipeline.Result {
	warning := "analysis stage degraded to fallback content: upstream timeout"
	return &pipeline.Result{
		Artifact:    []byte("%PDF-1.4 degraded"),
		ContentType: domain.ContentTypePDF,
		Report: pipeline.ExecutionReport{
			RequestID: requestID,
			Status:    domain.ReportStatusDegraded,
			Stages: []pipeline.StageReport{
				{Stage: pipeline.StageAnalysis, Status: pipeline.StageDegraded, Attempts: 3, Warning: warning},
				{Stage: pipeline.StageMarkdown, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageMarkup, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageDocument, Status: pipeline.StageSucceeded, Attempts: 1},
			},
			Warnings: []string{warning},
			Duration: 4 * time.Second,
		},
	}
}

func failedResult(requestID uuid.UUID) *pipeline.Result {
	return &pipeline.Result{
		Report: pipeline.ExecutionReport{
			RequestID: requestID,
			Status:    domain.ReportStatusFailed,
			Stages: []pipeline.StageReport{
				{Stage: pipeline.StageAnalysis, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageMarkdown, Status: pipeline.StageSucceeded, Attempts: 1},
				{Stage: pipeline.StageMarkup, Status: pipeline.StageFailed, Attempts: 1},
				{Stage: pipeline.StageDocument, Status: pipeline.StageFailed},
			},
			Duration: time.Second,
		},
	}
}

// ---------------------------------------------------------------------------
// POST /api/v1/reports
// ---------------------------------------------------------------------------

func TestCreateReportSuccess(t *testing.T) {
	var createdID uuid.UUID
	var finalized *repository.ReportOutcome
	repo := &mockReportRepo{
		createFn: func(_ context.Context, report *domain.Report) error {
			createdID = report.ID
			return nil
		},
		finalizeFn: func(_ context.Context, id uuid.UUID, outcome repository.ReportOutcome) error {
			if id != createdID {
				t.Errorf("finalized report %s, created %s", id, createdID)
			}
			finalized = &outcome
			return nil
		},
	}
	publisher := &mockPublisher{}
	s := newTestHTTPServer(&mockRunner{}, repo, publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(validRequestBody()))
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp createReportResponse
	decodeJSON(t, rr, &resp)
	if resp.ReportID != createdID.String() {
		t.Errorf("expected report_id %s, got %s", createdID, resp.ReportID)
	}
	if resp.ArtifactID != createdID.String() {
		t.Errorf("expected artifact_id %s, got %s", createdID, resp.ArtifactID)
	}
	if resp.Status != string(domain.ReportStatusSucceeded) {
		t.Errorf("expected status succeeded, got %s", resp.Status)
	}
	if len(resp.Stages) != 4 {
		t.Fatalf("expected 4 stage entries, got %d", len(resp.Stages))
	}
	for _, st := range resp.Stages {
		if st.Status != string(pipeline.StageSucceeded) {
			t.Errorf("stage %s: expected succeeded, got %s", st.Stage, st.Status)
		}
	}

	if finalized == nil {
		t.Fatal("expected Finalize to be called")
	}
	if finalized.Status != domain.ReportStatusSucceeded {
		t.Errorf("expected finalized status succeeded, got %s", finalized.Status)
	}
	if len(finalized.Artifact) == 0 {
		t.Error("expected finalized outcome to carry the artifact")
	}
	if got := finalized.StageStatuses[string(pipeline.StageDocument)]; got != string(pipeline.StageSucceeded) {
		t.Errorf("expected document stage status succeeded, got %q", got)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.events))
	}
	if publisher.events[0].EventType != domain.EventTypeReportGenerated {
		t.Errorf("expected event type %s, got %s", domain.EventTypeReportGenerated, publisher.events[0].EventType)
	}
	if publisher.events[0].CustomerID != "CUST-001" {
		t.Errorf("expected event customer CUST-001, got %s", publisher.events[0].CustomerID)
	}
}

func TestCreateReportDegraded(t *testing.T) {
	runner := &mockRunner{
		executeFn: func(_ context.Context, requestID uuid.UUID, _ domain.AnalysisInputs) (*pipeline.Result, error) {
			return degradedResult(requestID), nil
		},
	}
	publisher := &mockPublisher{}
	s := newTestHTTPServer(runner, &mockReportRepo{}, publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(validRequestBody()))
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp createReportResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != string(domain.ReportStatusDegraded) {
		t.Errorf("expected status degraded, got %s", resp.Status)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(resp.Warnings))
	}
	if resp.ArtifactID == "" {
		t.Error("degraded run still produces an artifact")
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != domain.EventTypeReportDegraded {
		t.Fatalf("expected a report.degraded event, got %+v", publisher.events)
	}
}

func TestCreateReportFailed(t *testing.T) {
	defect := domain.NewInternalDefectError("markup", errors.New("boom"))
	runner := &mockRunner{
		executeFn: func(_ context.Context, requestID uuid.UUID, _ domain.AnalysisInputs) (*pipeline.Result, error) {
			return failedResult(requestID), defect
		},
	}
	var finalized *repository.ReportOutcome
	repo := &mockReportRepo{
		finalizeFn: func(_ context.Context, _ uuid.UUID, outcome repository.ReportOutcome) error {
			finalized = &outcome
			return nil
		},
	}
	publisher := &mockPublisher{}
	s := newTestHTTPServer(runner, repo, publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(validRequestBody()))
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}

	var resp createReportResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != string(domain.ReportStatusFailed) {
		t.Errorf("expected status failed, got %s", resp.Status)
	}
	if resp.ArtifactID != "" {
		t.Errorf("failed run must not report an artifact, got %s", resp.ArtifactID)
	}

	if finalized == nil {
		t.Fatal("expected Finalize to be called")
	}
	if finalized.ErrorMessage == "" {
		t.Error("expected finalized outcome to carry the defect message")
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != domain.EventTypeReportFailed {
		t.Fatalf("expected a report.failed event, got %+v", publisher.events)
	}
	var payload domain.ReportFailedPayload
	if err := json.Unmarshal(publisher.events[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode event payload: %v", err)
	}
	if payload.Stage != string(pipeline.StageMarkup) {
		t.Errorf("expected failed stage markup, got %q", payload.Stage)
	}
}

func TestCreateReportValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{not json`},
		{"missing customer_id", `{"debt_items": [{"name": "loan", "balance": 100, "minimum_payment": 10}]}`},
		{"empty debt_items", `{"customer_id": "CUST-001", "debt_items": []}`},
		{"negative balance", `{"customer_id": "CUST-001", "debt_items": [{"name": "loan", "balance": -5, "minimum_payment": 10}]}`},
		{"rate above 100", `{"customer_id": "CUST-001", "debt_items": [{"name": "loan", "balance": 100, "annual_rate_pct": 120, "minimum_payment": 10}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{}
			s := newTestHTTPServer(runner, &mockReportRepo{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader([]byte(tt.body)))
			rr := serveHTTP(s, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if runner.calls != 0 {
				t.Errorf("pipeline must not run for invalid input, got %d calls", runner.calls)
			}
		})
	}
}

func TestCreateReportRepoCreateError(t *testing.T) {
	runner := &mockRunner{}
	repo := &mockReportRepo{
		createFn: func(_ context.Context, _ *domain.Report) error {
			return domain.NewValidationError("report", "report already exists")
		},
	}
	s := newTestHTTPServer(runner, repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(validRequestBody()))
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if runner.calls != 0 {
		t.Errorf("pipeline must not run when persistence fails, got %d calls", runner.calls)
	}
}

func TestCreateReportPublishFailureDoesNotFailRequest(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("broker unreachable")}
	s := newTestHTTPServer(&mockRunner{}, &mockReportRepo{}, publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(validRequestBody()))
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201 despite publish failure, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /api/v1/reports/{reportID}
// ---------------------------------------------------------------------------

func TestGetReport(t *testing.T) {
	reportID := uuid.New()
	repo := &mockReportRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Report, error) {
			if id != reportID {
				return nil, domain.ErrNotFound
			}
			return &domain.Report{
				ID:         reportID,
				CustomerID: "CUST-001",
				Status:     domain.ReportStatusDegraded,
				StageStatuses: map[string]string{
					"analysis": "degraded",
					"markdown": "succeeded",
					"markup":   "succeeded",
					"document": "succeeded",
				},
				Warnings:    []string{"analysis stage degraded to fallback content: timeout"},
				ContentType: domain.ContentTypePDF,
				CreatedAt:   time.Now().UTC(),
				UpdatedAt:   time.Now().UTC(),
			}, nil
		},
	}
	s := newTestHTTPServer(&mockRunner{}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+reportID.String(), nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp reportStatusResponse
	decodeJSON(t, rr, &resp)
	if resp.ReportID != reportID.String() {
		t.Errorf("expected report_id %s, got %s", reportID, resp.ReportID)
	}
	if resp.Status != string(domain.ReportStatusDegraded) {
		t.Errorf("expected status degraded, got %s", resp.Status)
	}
	if !resp.HasArtifact {
		t.Error("expected has_artifact true")
	}
	if resp.StageStatuses["analysis"] != "degraded" {
		t.Errorf("expected analysis stage degraded, got %q", resp.StageStatuses["analysis"])
	}
}

func TestGetReportNotFound(t *testing.T) {
	s := newTestHTTPServer(&mockRunner{}, &mockReportRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+uuid.NewString(), nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestGetReportInvalidID(t *testing.T) {
	s := newTestHTTPServer(&mockRunner{}, &mockReportRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/not-a-uuid", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /api/v1/reports/{reportID}/artifact
// ---------------------------------------------------------------------------

func TestGetReportArtifact(t *testing.T) {
	reportID := uuid.New()
	pdf := []byte("%PDF-1.4 stored artifact")
	repo := &mockReportRepo{
		getArtifactFn: func(_ context.Context, id uuid.UUID) ([]byte, string, error) {
			if id != reportID {
				return nil, "", domain.ErrNotFound
			}
			return pdf, domain.ContentTypePDF, nil
		},
	}
	s := newTestHTTPServer(&mockRunner{}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+reportID.String()+"/artifact", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != domain.ContentTypePDF {
		t.Errorf("expected Content-Type %s, got %s", domain.ContentTypePDF, ct)
	}
	if !bytes.Equal(rr.Body.Bytes(), pdf) {
		t.Error("artifact bytes do not match stored artifact")
	}
}

func TestGetReportArtifactNotFound(t *testing.T) {
	s := newTestHTTPServer(&mockRunner{}, &mockReportRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+uuid.NewString()+"/artifact", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /api/v1/reports
// ---------------------------------------------------------------------------

func TestListReports(t *testing.T) {
	var captured repository.ReportFilter
	repo := &mockReportRepo{
		listFn: func(_ context.Context, filter repository.ReportFilter) ([]*domain.Report, int64, error) {
			captured = filter
			reports := make([]*domain.Report, 2)
			for i := range reports {
				reports[i] = &domain.Report{
					ID:         uuid.New(),
					CustomerID: "CUST-001",
					Status:     domain.ReportStatusSucceeded,
					CreatedAt:  time.Now().UTC(),
					UpdatedAt:  time.Now().UTC(),
				}
			}
			return reports, 150, nil
		},
	}
	s := newTestHTTPServer(&mockRunner{}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?customer_id=CUST-001&status=succeeded&page_size=2", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.CustomerID != "CUST-001" {
		t.Errorf("expected customer filter CUST-001, got %q", captured.CustomerID)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.ReportStatusSucceeded {
		t.Errorf("expected status filter [succeeded], got %v", captured.Status)
	}
	if captured.Limit != 2 {
		t.Errorf("expected limit 2, got %d", captured.Limit)
	}

	var resp listReportsResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Reports) != 2 {
		t.Errorf("expected 2 summaries, got %d", len(resp.Reports))
	}
	if resp.TotalCount != 150 {
		t.Errorf("expected total_count 150, got %d", resp.TotalCount)
	}
	if resp.NextPageToken == "" {
		t.Error("expected a next_page_token when more results remain")
	}
}

func TestListReportsInvalidDateFilter(t *testing.T) {
	s := newTestHTTPServer(&mockRunner{}, &mockReportRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?created_after=yesterday", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestPageTokenRoundTrip(t *testing.T) {
	token := encodePageToken(0, 50, 150)
	if token == "" {
		t.Fatal("expected a token when more pages remain")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?page_token="+token, nil)
	_, offset := parsePaginationParams(req)
	if offset != 50 {
		t.Errorf("expected decoded offset 50, got %d", offset)
	}

	if got := encodePageToken(100, 50, 150); got != "" {
		t.Errorf("expected empty token on last page, got %q", got)
	}
}
