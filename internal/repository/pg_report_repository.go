package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lender512/financial-restructuring-service/internal/domain"
)

// txBeginner is an interface for types that can begin a transaction
// (e.g., *pgxpool.Pool, *database.DB). Used by Finalize to wrap
// SELECT FOR UPDATE + UPDATE in a transaction when the underlying DBTX
// is a pool rather than an existing transaction.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// reportColumns are the columns selected for report reads, excluding the
// artifact bytes which are only loaded by GetArtifact.
const reportColumns = `id, customer_id, status, stage_statuses, warnings,
	error_message, content_type, inputs, created_at, updated_at`

// Compile-time interface verification.
var _ ReportRepository = (*PgReportRepository)(nil)

// PgReportRepository is a PostgreSQL implementation of ReportRepository.
type PgReportRepository struct {
	db DBTX
}

// NewPgReportRepository creates a new PostgreSQL report repository.
func NewPgReportRepository(db DBTX) *PgReportRepository {
	return &PgReportRepository{db: db}
}

// Create inserts a new pending report.
func (r *PgReportRepository) Create(ctx context.Context, report *domain.Report) error {
	if report == nil {
		return domain.NewValidationError("report", "report cannot be nil")
	}
	if report.ID == uuid.Nil {
		return domain.NewValidationError("id", "report ID is required")
	}
	if report.CustomerID == "" {
		return domain.NewValidationError("customer_id", "customer ID is required")
	}

	stageJSON, err := json.Marshal(stageStatusesOrEmpty(report.StageStatuses))
	if err != nil {
		return fmt.Errorf("failed to marshal stage statuses: %w", err)
	}
	warningsJSON, err := json.Marshal(warningsOrEmpty(report.Warnings))
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	inputsJSON, err := json.Marshal(report.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, customer_id, status, stage_statuses, warnings,
			error_message, artifact, content_type, inputs,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11
		)`

	_, err = r.db.Exec(ctx, query,
		report.ID, report.CustomerID, report.Status, stageJSON, warningsJSON,
		nullString(report.ErrorMessage), report.Artifact, nullString(report.ContentType), inputsJSON,
		report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewValidationError("id", "report already exists")
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// Get retrieves a report by ID without its artifact bytes.
func (r *PgReportRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("report", id.String())
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// GetArtifact retrieves the artifact bytes and content type for a report.
func (r *PgReportRepository) GetArtifact(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	query := `SELECT artifact, content_type FROM reports WHERE id = $1`

	var artifact []byte
	var contentType *string
	err := r.db.QueryRow(ctx, query, id).Scan(&artifact, &contentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.NewNotFoundError("report", id.String())
		}
		return nil, "", fmt.Errorf("failed to get report artifact: %w", err)
	}

	if len(artifact) == 0 {
		return nil, "", domain.NewNotFoundError("report artifact", id.String())
	}

	ct := ""
	if contentType != nil {
		ct = *contentType
	}
	return artifact, ct, nil
}

// Finalize records the terminal outcome of a generation run.
//
// The current status is read with SELECT FOR UPDATE and the transition is
// validated before writing, so concurrent finalizations cannot overwrite a
// terminal state. When the underlying DBTX is a pool the read-validate-write
// is wrapped in an explicit transaction; inside an existing transaction it
// executes directly.
func (r *PgReportRepository) Finalize(ctx context.Context, id uuid.UUID, outcome ReportOutcome) error {
	if beginner, ok := r.db.(txBeginner); ok {
		tx, err := beginner.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for finalize: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		txRepo := &PgReportRepository{db: tx}
		if err := txRepo.finalizeInTx(ctx, id, outcome); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	return r.finalizeInTx(ctx, id, outcome)
}

// finalizeInTx performs the actual SELECT FOR UPDATE + UPDATE. Must run
// within a transaction for correct row-level locking.
func (r *PgReportRepository) finalizeInTx(ctx context.Context, id uuid.UUID, outcome ReportOutcome) error {
	var current domain.ReportStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM reports WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("report", id.String())
		}
		return fmt.Errorf("failed to lock report for finalize: %w", err)
	}

	if !current.CanTransitionTo(outcome.Status) {
		return domain.NewValidationError("status",
			fmt.Sprintf("cannot transition from %s to %s", current, outcome.Status))
	}

	stageJSON, err := json.Marshal(stageStatusesOrEmpty(outcome.StageStatuses))
	if err != nil {
		return fmt.Errorf("failed to marshal stage statuses: %w", err)
	}
	warningsJSON, err := json.Marshal(warningsOrEmpty(outcome.Warnings))
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		UPDATE reports SET
			status = $1,
			stage_statuses = $2,
			warnings = $3,
			error_message = $4,
			artifact = $5,
			content_type = $6,
			updated_at = $7
		WHERE id = $8`

	_, err = r.db.Exec(ctx, query,
		outcome.Status, stageJSON, warningsJSON,
		nullString(outcome.ErrorMessage), outcome.Artifact, nullString(outcome.ContentType),
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	return nil
}

// List retrieves reports matching the filter criteria, without artifact bytes.
func (r *PgReportRepository) List(ctx context.Context, filter ReportFilter) ([]*domain.Report, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.CustomerID != "" {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, filter.CustomerID)
		argPos++
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argPos)
			args = append(args, status)
			argPos++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argPos))
		args = append(args, *filter.CreatedAfter)
		argPos++
	}
	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argPos))
		args = append(args, *filter.CreatedBefore)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reports %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM reports %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		reportColumns, whereClause, argPos, argPos+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		report, err := scanReportFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, total, nil
}

// scanTarget is the common subset of pgx.Row and pgx.Rows used by the scan helpers.
type scanTarget interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanTarget) (*domain.Report, error) {
	var report domain.Report
	var stageJSON, warningsJSON, inputsJSON []byte
	var errorMessage, contentType *string

	err := row.Scan(
		&report.ID, &report.CustomerID, &report.Status, &stageJSON, &warningsJSON,
		&errorMessage, &contentType, &inputsJSON, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if errorMessage != nil {
		report.ErrorMessage = *errorMessage
	}
	if contentType != nil {
		report.ContentType = *contentType
	}
	if len(stageJSON) > 0 {
		if err := json.Unmarshal(stageJSON, &report.StageStatuses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage statuses: %w", err)
		}
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &report.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}
	if len(inputsJSON) > 0 {
		if err := json.Unmarshal(inputsJSON, &report.Inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
		}
	}

	return &report, nil
}

func scanReportFromRows(rows pgx.Rows) (*domain.Report, error) {
	return scanReport(rows)
}

// stageStatusesOrEmpty returns an empty map in place of nil so the JSONB
// column never stores SQL NULL.
func stageStatusesOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func warningsOrEmpty(w []string) []string {
	if w == nil {
		return []string{}
	}
	return w
}

// isPgUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// nullString converts an empty string to nil for nullable columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
