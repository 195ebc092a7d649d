//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lender512/financial-restructuring-service/internal/domain"
	"github.com/lender512/financial-restructuring-service/internal/repository"
)

func testInputs(customerID string) domain.AnalysisInputs {
	return domain.AnalysisInputs{
		CustomerID: customerID,
		DebtItems: []domain.DebtItem{
			{Name: "credit card", Balance: 4200.50, AnnualRatePct: 22.9, MinimumPayment: 95},
			{Name: "car loan", Balance: 11500, AnnualRatePct: 6.4, MinimumPayment: 310},
		},
		ConsolidationOffer: &domain.ConsolidationOffer{OfferID: "OFF-9", NewRatePct: 9.5, TermMonths: 48},
		MonthlyBudget:      900,
	}
}

func TestPgReportRepository_Integration(t *testing.T) {
	cleanTable(t, "reports")
	repo := repository.NewPgReportRepository(testPool)
	ctx := context.Background()

	t.Run("Create and Get roundtrip", func(t *testing.T) {
		report := domain.NewReport(testInputs("CUST-INT-001"))

		err := repo.Create(ctx, report)
		require.NoError(t, err)

		got, err := repo.Get(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.ID, got.ID)
		assert.Equal(t, "CUST-INT-001", got.CustomerID)
		assert.Equal(t, domain.ReportStatusPending, got.Status)
		assert.Len(t, got.Inputs.DebtItems, 2)
		require.NotNil(t, got.Inputs.ConsolidationOffer)
		assert.Equal(t, "OFF-9", got.Inputs.ConsolidationOffer.OfferID)
	})

	t.Run("Create duplicate returns invalid input", func(t *testing.T) {
		report := domain.NewReport(testInputs("CUST-INT-002"))
		require.NoError(t, repo.Create(ctx, report))

		err := repo.Create(ctx, report)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Get missing report returns not found", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Finalize stores outcome and artifact", func(t *testing.T) {
		report := domain.NewReport(testInputs("CUST-INT-003"))
		require.NoError(t, repo.Create(ctx, report))

		artifact := []byte("%PDF-1.4 integration artifact")
		outcome := repository.ReportOutcome{
			Status: domain.ReportStatusDegraded,
			StageStatuses: map[string]string{
				"analysis": "degraded",
				"markdown": "succeeded",
				"markup":   "succeeded",
				"document": "succeeded",
			},
			Warnings:    []string{"analysis stage degraded to fallback content: timeout"},
			Artifact:    artifact,
			ContentType: domain.ContentTypePDF,
		}
		require.NoError(t, repo.Finalize(ctx, report.ID, outcome))

		got, err := repo.Get(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReportStatusDegraded, got.Status)
		assert.Equal(t, "degraded", got.StageStatuses["analysis"])
		assert.Len(t, got.Warnings, 1)
		assert.Equal(t, domain.ContentTypePDF, got.ContentType)

		storedArtifact, contentType, err := repo.GetArtifact(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, artifact, storedArtifact)
		assert.Equal(t, domain.ContentTypePDF, contentType)
	})

	t.Run("Finalize rejects double finalization", func(t *testing.T) {
		report := domain.NewReport(testInputs("CUST-INT-004"))
		require.NoError(t, repo.Create(ctx, report))

		outcome := repository.ReportOutcome{
			Status:       domain.ReportStatusFailed,
			ErrorMessage: "internal defect in document stage",
		}
		require.NoError(t, repo.Finalize(ctx, report.ID, outcome))

		err := repo.Finalize(ctx, report.ID, repository.ReportOutcome{Status: domain.ReportStatusSucceeded})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("GetArtifact on report without artifact returns not found", func(t *testing.T) {
		report := domain.NewReport(testInputs("CUST-INT-005"))
		require.NoError(t, repo.Create(ctx, report))

		_, _, err := repo.GetArtifact(ctx, report.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("List filters by customer and status", func(t *testing.T) {
		cleanTable(t, "reports")

		first := domain.NewReport(testInputs("CUST-LIST-A"))
		second := domain.NewReport(testInputs("CUST-LIST-A"))
		other := domain.NewReport(testInputs("CUST-LIST-B"))
		for _, r := range []*domain.Report{first, second, other} {
			require.NoError(t, repo.Create(ctx, r))
		}
		require.NoError(t, repo.Finalize(ctx, first.ID, repository.ReportOutcome{
			Status:      domain.ReportStatusSucceeded,
			Artifact:    []byte("%PDF-1.4 a"),
			ContentType: domain.ContentTypePDF,
		}))

		reports, total, err := repo.List(ctx, repository.ReportFilter{CustomerID: "CUST-LIST-A"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, reports, 2)

		succeeded, total, err := repo.List(ctx, repository.ReportFilter{
			CustomerID: "CUST-LIST-A",
			Status:     []domain.ReportStatus{domain.ReportStatusSucceeded},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, succeeded, 1)
		assert.Equal(t, first.ID, succeeded[0].ID)
	})

	t.Run("List pagination", func(t *testing.T) {
		cleanTable(t, "reports")

		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Create(ctx, domain.NewReport(testInputs("CUST-PAGE"))))
			time.Sleep(5 * time.Millisecond)
		}

		page, total, err := repo.List(ctx, repository.ReportFilter{CustomerID: "CUST-PAGE", Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		assert.Len(t, page, 2)

		rest, _, err := repo.List(ctx, repository.ReportFilter{CustomerID: "CUST-PAGE", Limit: 10, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 3)
	})
}
