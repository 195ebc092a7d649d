// Package domain provides domain models and business logic for the
// financial restructuring report service.
package domain

// ReportStatus represents the lifecycle states of a report request.
// These values must match the database enum report_status.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusSucceeded ReportStatus = "succeeded"
	ReportStatusDegraded  ReportStatus = "degraded"
	ReportStatusFailed    ReportStatus = "failed"
	ReportStatusCancelled ReportStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s ReportStatus) IsTerminal() bool {
	switch s {
	case ReportStatusSucceeded, ReportStatusDegraded, ReportStatusFailed, ReportStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the transition from s to target is valid.
// Pending may move to any terminal state; terminal states never change.
func (s ReportStatus) CanTransitionTo(target ReportStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return target.IsTerminal()
}

// DebtItem is a single debt position supplied by the caller.
type DebtItem struct {
	// Name identifies the debt (e.g., "credit card", "car loan").
	Name string `json:"name" validate:"required"`

	// Balance is the outstanding principal.
	Balance float64 `json:"balance" validate:"required,gt=0"`

	// AnnualRatePct is the annual interest rate in percent.
	AnnualRatePct float64 `json:"annual_rate_pct" validate:"gte=0,lte=100"`

	// MinimumPayment is the contractual minimum monthly payment.
	MinimumPayment float64 `json:"minimum_payment" validate:"required,gt=0"`
}

// ConsolidationOffer is an optional debt consolidation offer to evaluate.
type ConsolidationOffer struct {
	// OfferID identifies the offer.
	OfferID string `json:"offer_id" validate:"required"`

	// NewRatePct is the offered annual interest rate in percent.
	NewRatePct float64 `json:"new_rate_pct" validate:"gte=0,lte=100"`

	// TermMonths is the offered repayment term.
	TermMonths int `json:"term_months" validate:"required,gt=0"`
}

// AnalysisInputs is the financial payload a report is generated from.
// Validated at intake; immutable once the pipeline starts.
type AnalysisInputs struct {
	// CustomerID identifies the customer the report is for.
	CustomerID string `json:"customer_id" validate:"required"`

	// DebtItems are the customer's outstanding debts.
	DebtItems []DebtItem `json:"debt_items" validate:"required,min=1,dive"`

	// ConsolidationOffer is an optional offer to compare against.
	ConsolidationOffer *ConsolidationOffer `json:"consolidation_offer,omitempty" validate:"omitempty"`

	// MonthlyBudget is the customer's optional monthly payment budget.
	MonthlyBudget float64 `json:"monthly_budget,omitempty" validate:"gte=0"`

	// ReportTitle overrides the default report title when set.
	ReportTitle string `json:"report_title,omitempty"`
}

// TotalBalance returns the sum of all debt balances.
func (a *AnalysisInputs) TotalBalance() float64 {
	var total float64
	for _, d := range a.DebtItems {
		total += d.Balance
	}
	return total
}

// TotalMinimumPayment returns the sum of all minimum monthly payments.
func (a *AnalysisInputs) TotalMinimumPayment() float64 {
	var total float64
	for _, d := range a.DebtItems {
		total += d.MinimumPayment
	}
	return total
}

// Credit score bounds used when clamping model output.
const (
	CreditScoreMin = 300
	CreditScoreMax = 850
)

// ClampCreditScore clamps a score into the valid 300-850 range.
func ClampCreditScore(score int) int {
	if score < CreditScoreMin {
		return CreditScoreMin
	}
	if score > CreditScoreMax {
		return CreditScoreMax
	}
	return score
}

// PaymentStrategy summarizes a repayment plan.
type PaymentStrategy struct {
	// Months is the projected number of months until payoff.
	Months int `json:"months"`

	// TotalInterest is the projected total interest paid.
	TotalInterest float64 `json:"total_interest"`
}

// SavingsComparison quantifies the benefit of one strategy over another.
type SavingsComparison struct {
	InterestSaved float64 `json:"interest_saved"`
	MonthsSaved   int     `json:"months_saved"`
}

// ConsolidationOption projects the outcome of accepting a consolidation offer.
type ConsolidationOption struct {
	OfferID            string  `json:"offer_id"`
	NewRatePct         float64 `json:"new_rate_pct"`
	Months             int     `json:"months"`
	TotalInterest      float64 `json:"total_interest"`
	ConsolidatedAmount float64 `json:"consolidated_amount"`
}

// ConsolidationSavings compares the consolidation option against both strategies.
type ConsolidationSavings struct {
	VsMinimum   SavingsComparison `json:"vs_minimum"`
	VsOptimized SavingsComparison `json:"vs_optimized"`
}

// DebtAnalysisResult is the structured findings produced by the analysis stage.
type DebtAnalysisResult struct {
	CustomerID string `json:"customer_id"`

	// CurrentCreditScore is clamped to the 300-850 range.
	CurrentCreditScore int `json:"current_credit_score"`

	MinimumPaymentStrategy   PaymentStrategy   `json:"minimum_payment_strategy"`
	OptimizedPaymentStrategy PaymentStrategy   `json:"optimized_payment_strategy"`
	SavingsVsMinimum         SavingsComparison `json:"savings_vs_minimum"`

	// ConsolidationOption is set only when the inputs carried an offer.
	ConsolidationOption  *ConsolidationOption  `json:"consolidation_option,omitempty"`
	ConsolidationSavings *ConsolidationSavings `json:"consolidation_savings,omitempty"`
}
