package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lender512/financial-restructuring-service/internal/domain"
	"github.com/lender512/financial-restructuring-service/internal/llm"
)

// analysisResponse is the expected JSON shape of the analysis-stage LLM reply.
type analysisResponse struct {
	Findings  domain.DebtAnalysisResult `json:"findings"`
	Narrative string                    `json:"narrative"`
}

// parseAnalysisResponse parses the raw LLM reply into findings and narrative.
// Malformed replies are classified as invalid-response failures so the engine
// falls back immediately instead of retrying.
func parseAnalysisResponse(provider, raw string) (*domain.DebtAnalysisResult, string, error) {
	cleaned := stripCodeFences(raw)

	var resp analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, "", &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: provider,
			Message:  fmt.Sprintf("analysis reply is not valid JSON: %v", err),
		}
	}

	if strings.TrimSpace(resp.Narrative) == "" {
		return nil, "", &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: provider,
			Message:  "analysis reply contains no narrative",
		}
	}

	if resp.Findings.CustomerID == "" {
		return nil, "", &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: provider,
			Message:  "analysis reply contains no findings",
		}
	}

	resp.Findings.CurrentCreditScore = domain.ClampCreditScore(resp.Findings.CurrentCreditScore)
	return &resp.Findings, strings.TrimSpace(resp.Narrative), nil
}

// validateMarkdown checks that the markdown-stage reply is a usable document:
// non-empty with at least one heading.
func validateMarkdown(provider, raw string) (string, error) {
	cleaned := stripCodeFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return "", &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: provider,
			Message:  "markdown reply is empty",
		}
	}

	hasHeading := false
	for _, line := range strings.Split(cleaned, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			hasHeading = true
			break
		}
	}
	if !hasHeading {
		return "", &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: provider,
			Message:  "markdown reply contains no headings",
		}
	}

	return strings.TrimSpace(cleaned), nil
}

// stripCodeFences removes a surrounding ``` fence, with optional language
// hint, from an LLM reply.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language hint on the opening fence line.
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
