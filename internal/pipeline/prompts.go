package pipeline

import (
	"fmt"
	"strings"

	"github.com/lender512/financial-restructuring-service/internal/domain"
)

// defaultReportTitle is used when the caller does not supply one.
const defaultReportTitle = "Personal Financial Analysis Report"

// reportTitle returns the caller-supplied title or the default.
func reportTitle(inputs domain.AnalysisInputs) string {
	if inputs.ReportTitle != "" {
		return inputs.ReportTitle
	}
	return defaultReportTitle
}

// buildAnalysisPrompt constructs the analysis-stage prompt. The model is
// asked for strict JSON carrying both the structured findings and a narrative
// so the response can be parsed deterministically.
func buildAnalysisPrompt(inputs domain.AnalysisInputs) string {
	var sb strings.Builder

	sb.WriteString("You are a professional financial analyst. Analyze the following ")
	sb.WriteString("customer debt portfolio and produce a comprehensive financial assessment.\n\n")

	sb.WriteString("CUSTOMER INFORMATION:\n")
	sb.WriteString(fmt.Sprintf("- Customer ID: %s\n\n", inputs.CustomerID))

	sb.WriteString("DEBT PORTFOLIO:\n")
	for _, item := range inputs.DebtItems {
		sb.WriteString(fmt.Sprintf("- %s: balance %s, annual rate %.2f%%, minimum payment %s\n",
			item.Name, formatMoney(item.Balance), item.AnnualRatePct, formatMoney(item.MinimumPayment)))
	}
	sb.WriteString(fmt.Sprintf("- Total balance: %s\n", formatMoney(inputs.TotalBalance())))
	sb.WriteString(fmt.Sprintf("- Total minimum payment: %s\n\n", formatMoney(inputs.TotalMinimumPayment())))

	if inputs.MonthlyBudget > 0 {
		sb.WriteString(fmt.Sprintf("MONTHLY BUDGET: %s available for debt payments\n\n", formatMoney(inputs.MonthlyBudget)))
	}

	if offer := inputs.ConsolidationOffer; offer != nil {
		sb.WriteString("CONSOLIDATION OFFER:\n")
		sb.WriteString(fmt.Sprintf("- Offer ID: %s\n", offer.OfferID))
		sb.WriteString(fmt.Sprintf("- New Interest Rate: %.2f%%\n", offer.NewRatePct))
		sb.WriteString(fmt.Sprintf("- Duration: %d months\n\n", offer.TermMonths))
	} else {
		sb.WriteString("CONSOLIDATION OFFER: none available\n\n")
	}

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"findings": {"customer_id": "...", "current_credit_score": 0, ` +
		`"minimum_payment_strategy": {"months": 0, "total_interest": 0}, ` +
		`"optimized_payment_strategy": {"months": 0, "total_interest": 0}, ` +
		`"savings_vs_minimum": {"interest_saved": 0, "months_saved": 0}, ` +
		`"consolidation_option": {"offer_id": "...", "new_rate_pct": 0, "months": 0, "total_interest": 0, "consolidated_amount": 0}, ` +
		`"consolidation_savings": {"vs_minimum": {"interest_saved": 0, "months_saved": 0}, "vs_optimized": {"interest_saved": 0, "months_saved": 0}}}, ` +
		`"narrative": "..."}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. Estimate a realistic credit score between 300 and 850 from the portfolio.\n")
	sb.WriteString("2. Project the minimum-payment and optimized-payment strategies with months and total interest.\n")
	sb.WriteString("3. Omit consolidation_option and consolidation_savings when no offer is available.\n")
	sb.WriteString("4. The narrative must cover the customer's situation, the strategy comparison, ")
	sb.WriteString("consolidation impact if applicable, savings potential, and actionable recommendations.\n")
	sb.WriteString("5. Write the narrative in a professional, accessible tone with specific numbers and timeframes.\n")
	sb.WriteString("6. Do not include any text outside the JSON object.\n")

	return sb.String()
}

// buildMarkdownPrompt constructs the markdown-stage prompt from the analysis
// output, pinning the report skeleton and the fixed header values.
func buildMarkdownPrompt(findings *domain.DebtAnalysisResult, narrative, title, reportDate string) string {
	var sb strings.Builder

	sb.WriteString("You are formatting a financial analysis into a well-structured Markdown report. ")
	sb.WriteString("Respond with the Markdown document ONLY, no surrounding commentary and no code fences.\n\n")

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Use proper Markdown headers (#, ##, ###).\n")
	sb.WriteString("- Include a valid GitHub-flavored Markdown table comparing the payment strategies.\n")
	sb.WriteString("- Format currency with symbols and thousands separators.\n")
	sb.WriteString("- Recommendations are clean bullet items.\n\n")

	sb.WriteString("ANALYSIS TEXT:\n")
	sb.WriteString(narrative)
	sb.WriteString("\n\n")

	sb.WriteString("STRUCTURED FINDINGS:\n")
	sb.WriteString(fmt.Sprintf("- Minimum Payment Strategy: %d months, %s total interest\n",
		findings.MinimumPaymentStrategy.Months, formatMoney(findings.MinimumPaymentStrategy.TotalInterest)))
	sb.WriteString(fmt.Sprintf("- Optimized Payment Strategy: %d months, %s total interest\n",
		findings.OptimizedPaymentStrategy.Months, formatMoney(findings.OptimizedPaymentStrategy.TotalInterest)))
	sb.WriteString(fmt.Sprintf("- Savings vs Minimum: %s interest saved, %d months saved\n",
		formatMoney(findings.SavingsVsMinimum.InterestSaved), findings.SavingsVsMinimum.MonthsSaved))
	if opt := findings.ConsolidationOption; opt != nil {
		sb.WriteString(fmt.Sprintf("- Consolidation Option %s: %.2f%% for %d months, %s total interest, %s consolidated\n",
			opt.OfferID, opt.NewRatePct, opt.Months, formatMoney(opt.TotalInterest), formatMoney(opt.ConsolidatedAmount)))
	}
	sb.WriteString("\n")

	sb.WriteString("Report fixed values:\n")
	sb.WriteString(fmt.Sprintf("- Customer ID: %s\n", findings.CustomerID))
	sb.WriteString(fmt.Sprintf("- Report Date: %s\n", reportDate))
	sb.WriteString(fmt.Sprintf("- Credit Score: %d\n\n", findings.CurrentCreditScore))

	sb.WriteString("Report structure:\n")
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("**Customer ID:** %s  \n", findings.CustomerID))
	sb.WriteString(fmt.Sprintf("**Report Date:** %s  \n", reportDate))
	sb.WriteString(fmt.Sprintf("**Credit Score:** %d\n\n", findings.CurrentCreditScore))
	sb.WriteString("## Executive Summary\n...\n\n")
	sb.WriteString("## Payment Strategy Analysis\n...\n\n")
	sb.WriteString("### Financial Comparison Table\n...\n\n")
	if findings.ConsolidationOption != nil {
		sb.WriteString("## Debt Consolidation Analysis\n...\n\n")
	}
	sb.WriteString("## Potential Savings Analysis\n...\n\n")
	sb.WriteString("## Personalized Recommendations\n- ...\n- ...\n")

	return sb.String()
}
