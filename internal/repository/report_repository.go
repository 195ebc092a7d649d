package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lender512/financial-restructuring-service/internal/domain"
)

// ReportRepository handles report persistence and lifecycle management.
type ReportRepository interface {
	// Create inserts a new pending report. The report must have a valid ID
	// and customer ID. Returns domain.ErrInvalidInput if required fields
	// are missing.
	Create(ctx context.Context, report *domain.Report) error

	// Get retrieves a report by ID without its artifact bytes.
	// Returns domain.ErrNotFound if no matching report exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Report, error)

	// GetArtifact retrieves the rendered artifact bytes and content type for
	// a report. Returns domain.ErrNotFound if the report does not exist or
	// carries no artifact.
	GetArtifact(ctx context.Context, id uuid.UUID) ([]byte, string, error)

	// Finalize records the terminal outcome of a generation run: status,
	// per-stage statuses, warnings, error message, and artifact bytes.
	// The status transition is validated against the report state machine.
	// Returns domain.ErrNotFound if no matching report exists.
	Finalize(ctx context.Context, id uuid.UUID, outcome ReportOutcome) error

	// List retrieves reports matching the filter criteria, without artifact
	// bytes. Returns the matching reports and total count for pagination.
	List(ctx context.Context, filter ReportFilter) ([]*domain.Report, int64, error)
}

// ReportOutcome describes the terminal result of a generation run.
type ReportOutcome struct {
	// Status is the terminal report status.
	Status domain.ReportStatus

	// StageStatuses maps stage name to its terminal per-stage status.
	StageStatuses map[string]string

	// Warnings lists degradation notices in recording order.
	Warnings []string

	// ErrorMessage is set when the run failed with an internal defect.
	ErrorMessage string

	// Artifact holds the rendered document bytes, nil when none was produced.
	Artifact []byte

	// ContentType is the artifact media type, empty when Artifact is nil.
	ContentType string
}

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	// CustomerID filters by customer (optional).
	CustomerID string

	// Status filters by one or more report statuses (optional).
	// When multiple statuses are provided, reports matching any are returned.
	Status []domain.ReportStatus

	// CreatedAfter filters to reports created after this timestamp (optional).
	CreatedAfter *time.Time

	// CreatedBefore filters to reports created before this timestamp (optional).
	CreatedBefore *time.Time

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}
