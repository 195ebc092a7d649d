package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/lender512/financial-restructuring-service/internal/domain"
)

// maxScheduleMonths caps payoff projections so a non-amortizing portfolio
// still terminates.
const maxScheduleMonths = 600

// fallbackFindings builds structured findings mechanically from the raw
// inputs. It is the analysis-stage fallback producer: pure, deterministic,
// and never failing, so degraded reports still carry usable numbers.
func fallbackFindings(inputs domain.AnalysisInputs) *domain.DebtAnalysisResult {
	totalBalance := inputs.TotalBalance()
	totalMinimum := inputs.TotalMinimumPayment()
	avgRate := weightedAverageRate(inputs.DebtItems)

	minMonths := 0
	minInterest := 0.0
	for _, item := range inputs.DebtItems {
		months, interest := simulatePayoff(item.Balance, item.AnnualRatePct, item.MinimumPayment)
		if months > minMonths {
			minMonths = months
		}
		minInterest += interest
	}
	minInterest = round2(minInterest)

	budget := inputs.MonthlyBudget
	if budget <= totalMinimum {
		// Assume a modest overpayment when no explicit budget is given.
		budget = totalMinimum * 1.25
	}
	optMonths, optInterest := simulatePayoff(totalBalance, avgRate, budget)

	findings := &domain.DebtAnalysisResult{
		CustomerID:         inputs.CustomerID,
		CurrentCreditScore: estimateCreditScore(totalBalance, avgRate, len(inputs.DebtItems)),
		MinimumPaymentStrategy: domain.PaymentStrategy{
			Months:        minMonths,
			TotalInterest: minInterest,
		},
		OptimizedPaymentStrategy: domain.PaymentStrategy{
			Months:        optMonths,
			TotalInterest: optInterest,
		},
		SavingsVsMinimum: domain.SavingsComparison{
			InterestSaved: round2(math.Max(0, minInterest-optInterest)),
			MonthsSaved:   maxInt(0, minMonths-optMonths),
		},
	}

	if offer := inputs.ConsolidationOffer; offer != nil && totalBalance > 0 && offer.TermMonths > 0 {
		payment := amortizedPayment(totalBalance, offer.NewRatePct, offer.TermMonths)
		consInterest := round2(math.Max(0, payment*float64(offer.TermMonths)-totalBalance))

		findings.ConsolidationOption = &domain.ConsolidationOption{
			OfferID:            offer.OfferID,
			NewRatePct:         offer.NewRatePct,
			Months:             offer.TermMonths,
			TotalInterest:      consInterest,
			ConsolidatedAmount: round2(totalBalance),
		}
		findings.ConsolidationSavings = &domain.ConsolidationSavings{
			VsMinimum: domain.SavingsComparison{
				InterestSaved: round2(math.Max(0, minInterest-consInterest)),
				MonthsSaved:   maxInt(0, minMonths-offer.TermMonths),
			},
			VsOptimized: domain.SavingsComparison{
				InterestSaved: round2(math.Max(0, optInterest-consInterest)),
				MonthsSaved:   maxInt(0, optMonths-offer.TermMonths),
			},
		}
	}

	return findings
}

// fallbackNarrative produces a templated summary from the findings, with no
// generated prose. It is the text half of the analysis-stage fallback.
func fallbackNarrative(findings *domain.DebtAnalysisResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Financial analysis for customer %s.\n\n", findings.CustomerID))
	sb.WriteString(fmt.Sprintf("Current credit score: %d.\n\n", findings.CurrentCreditScore))

	sb.WriteString("Payment strategy comparison:\n")
	sb.WriteString(fmt.Sprintf("- Minimum payment: %d months, %s total interest\n",
		findings.MinimumPaymentStrategy.Months, formatMoney(findings.MinimumPaymentStrategy.TotalInterest)))
	sb.WriteString(fmt.Sprintf("- Optimized payment: %d months, %s total interest\n",
		findings.OptimizedPaymentStrategy.Months, formatMoney(findings.OptimizedPaymentStrategy.TotalInterest)))
	sb.WriteString(fmt.Sprintf("- Potential savings: %s in interest and %d months\n\n",
		formatMoney(findings.SavingsVsMinimum.InterestSaved), findings.SavingsVsMinimum.MonthsSaved))

	if opt := findings.ConsolidationOption; opt != nil {
		sb.WriteString(fmt.Sprintf("Consolidation option %s: %.2f%% for %d months, %s total interest on %s consolidated.\n\n",
			opt.OfferID, opt.NewRatePct, opt.Months, formatMoney(opt.TotalInterest), formatMoney(opt.ConsolidatedAmount)))
	} else {
		sb.WriteString("No consolidation options are currently available for this customer.\n\n")
	}

	sb.WriteString("The optimized payment strategy reduces both the payoff time and the total interest paid ")
	sb.WriteString("compared with minimum payments.")

	return sb.String()
}

// fallbackMarkdown converts the findings into the fixed markdown skeleton.
// It is the markdown-stage fallback producer.
func fallbackMarkdown(findings *domain.DebtAnalysisResult, narrative, title, reportDate string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("**Customer ID:** %s  \n", findings.CustomerID))
	sb.WriteString(fmt.Sprintf("**Report Date:** %s  \n", reportDate))
	sb.WriteString(fmt.Sprintf("**Credit Score:** %d\n\n", findings.CurrentCreditScore))

	sb.WriteString("## Analysis\n\n")
	sb.WriteString(narrative)
	sb.WriteString("\n\n")

	sb.WriteString("## Financial Summary\n\n")
	sb.WriteString("| Strategy | Duration (Months) | Total Interest |\n")
	sb.WriteString("|----------|-------------------|----------------|\n")
	sb.WriteString(fmt.Sprintf("| Minimum Payment | %d | %s |\n",
		findings.MinimumPaymentStrategy.Months, formatMoney(findings.MinimumPaymentStrategy.TotalInterest)))
	sb.WriteString(fmt.Sprintf("| Optimized Payment | %d | %s |\n",
		findings.OptimizedPaymentStrategy.Months, formatMoney(findings.OptimizedPaymentStrategy.TotalInterest)))
	if opt := findings.ConsolidationOption; opt != nil {
		sb.WriteString(fmt.Sprintf("| Consolidation | %d | %s |\n", opt.Months, formatMoney(opt.TotalInterest)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Savings Potential\n\n")
	sb.WriteString(fmt.Sprintf("- **Interest Saved:** %s\n", formatMoney(findings.SavingsVsMinimum.InterestSaved)))
	sb.WriteString(fmt.Sprintf("- **Time Saved:** %d months\n\n", findings.SavingsVsMinimum.MonthsSaved))

	sb.WriteString("## Recommendations\n\n")
	sb.WriteString("- Adopt the optimized payment strategy\n")
	sb.WriteString("- Monitor progress regularly\n")
	sb.WriteString("- Consider additional financial optimization opportunities\n")

	return sb.String()
}

// simulatePayoff projects paying down balance at a fixed monthly payment,
// returning months to payoff and total interest. Non-amortizing payments hit
// the schedule cap.
func simulatePayoff(balance, annualRatePct, monthlyPayment float64) (int, float64) {
	if balance <= 0 || monthlyPayment <= 0 {
		return 0, 0
	}

	monthlyRate := annualRatePct / 100 / 12
	months := 0
	totalInterest := 0.0

	for balance > 0 && months < maxScheduleMonths {
		interest := balance * monthlyRate
		principal := monthlyPayment - interest
		if principal <= 0 {
			// Payment does not cover interest; balance never shrinks.
			return maxScheduleMonths, round2(totalInterest + interest*float64(maxScheduleMonths-months))
		}
		totalInterest += interest
		balance -= principal
		months++
	}

	return months, round2(totalInterest)
}

// amortizedPayment returns the fixed monthly payment for a standard
// amortization of balance over termMonths at the given annual rate.
func amortizedPayment(balance, annualRatePct float64, termMonths int) float64 {
	monthlyRate := annualRatePct / 100 / 12
	if monthlyRate == 0 {
		return balance / float64(termMonths)
	}
	factor := math.Pow(1+monthlyRate, float64(termMonths))
	return balance * monthlyRate * factor / (factor - 1)
}

// estimateCreditScore derives a deterministic score estimate from the
// portfolio shape, clamped to the valid range.
func estimateCreditScore(totalBalance, avgRatePct float64, debtCount int) int {
	score := 780 - int(avgRatePct*4) - debtCount*12 - int(totalBalance/5000)
	return domain.ClampCreditScore(score)
}

// weightedAverageRate returns the balance-weighted average annual rate.
func weightedAverageRate(items []domain.DebtItem) float64 {
	var weighted, total float64
	for _, item := range items {
		weighted += item.Balance * item.AnnualRatePct
		total += item.Balance
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// formatMoney renders a dollar amount with thousands separators.
func formatMoney(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	s := fmt.Sprintf("%.2f", amount)
	intPart := s[:len(s)-3]
	fracPart := s[len(s)-2:]

	var sb strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, sb.String(), fracPart)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
