package pipeline

import (
	"context"
	"fmt"
	"html"

	"github.com/lender512/financial-restructuring-service/internal/llm"
	"github.com/lender512/financial-restructuring-service/internal/render"
)

// reportDateLayout matches the date format printed in the report header.
const reportDateLayout = "January 2, 2006"

// generate wraps a single LLM call with request metrics.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	start := e.now()
	text, err := e.client.Generate(ctx, prompt, e.genOpts)
	if err != nil {
		if e.metrics != nil {
			kind := "unknown"
			if llmErr, ok := llm.AsError(err); ok {
				kind = string(llmErr.Kind)
			}
			e.metrics.RecordLLMRequestFailed(e.client.Provider(), e.client.Model(), kind)
		}
		return "", err
	}
	if e.metrics != nil {
		e.metrics.RecordLLMRequest(e.client.Provider(), e.client.Model(), e.now().Sub(start).Seconds())
	}
	return text, nil
}

func (e *Engine) runAnalysis(ctx context.Context, state *WorkflowState) ([]byte, error) {
	raw, err := e.generate(ctx, buildAnalysisPrompt(state.Inputs))
	if err != nil {
		return nil, err
	}
	findings, narrative, err := parseAnalysisResponse(e.client.Provider(), raw)
	if err != nil {
		return nil, err
	}
	state.Findings = findings
	return []byte(narrative), nil
}

func (e *Engine) fallbackAnalysis(state *WorkflowState) ([]byte, error) {
	findings := fallbackFindings(state.Inputs)
	state.Findings = findings
	return []byte(fallbackNarrative(findings)), nil
}

func (e *Engine) runMarkdown(ctx context.Context, state *WorkflowState) ([]byte, error) {
	if state.Findings == nil {
		return nil, fmt.Errorf("markdown stage reached without analysis findings")
	}
	prompt := buildMarkdownPrompt(state.Findings, state.narrative(), reportTitle(state.Inputs), state.GeneratedAt.Format(reportDateLayout))
	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	cleaned, err := validateMarkdown(e.client.Provider(), raw)
	if err != nil {
		return nil, err
	}
	return []byte(cleaned), nil
}

func (e *Engine) fallbackMarkdown(state *WorkflowState) ([]byte, error) {
	if state.Findings == nil {
		return nil, fmt.Errorf("markdown fallback reached without analysis findings")
	}
	md := fallbackMarkdown(state.Findings, state.narrative(), reportTitle(state.Inputs), state.GeneratedAt.Format(reportDateLayout))
	return []byte(md), nil
}

func (e *Engine) runMarkup(_ context.Context, state *WorkflowState) ([]byte, error) {
	fragment, err := convertMarkdown(state.markdown())
	if err != nil {
		return nil, err
	}
	return styledDocument(fragment, reportTitle(state.Inputs)), nil
}

// fallbackMarkup emits the markdown verbatim when conversion fails, so a
// readable document still reaches the render stage.
func (e *Engine) fallbackMarkup(state *WorkflowState) ([]byte, error) {
	return plainDocument(state.markdown()), nil
}

func (e *Engine) runDocument(_ context.Context, state *WorkflowState) ([]byte, error) {
	markup, ok := state.Output(StageMarkup)
	if !ok {
		return nil, fmt.Errorf("document stage reached without markup output")
	}
	start := e.now()
	artifact, err := e.renderer.Render(markup, render.Options{
		Title:       reportTitle(state.Inputs),
		GeneratedAt: state.GeneratedAt,
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordRenderFailed()
		}
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordRender(e.now().Sub(start).Seconds(), len(artifact))
	}
	return artifact, nil
}

// fallbackDocument renders a minimal notice page so the request still yields
// a valid PDF when the styled markup cannot be rendered.
func (e *Engine) fallbackDocument(state *WorkflowState) ([]byte, error) {
	title := reportTitle(state.Inputs)
	page := fmt.Sprintf(`<html><body><h1>%s</h1><p>Customer ID: %s</p><p>Report Date: %s</p><p>The formatted report could not be rendered. Please contact support with the request ID %s.</p></body></html>`,
		html.EscapeString(title),
		html.EscapeString(state.Inputs.CustomerID),
		state.GeneratedAt.Format(reportDateLayout),
		state.RequestID)
	return e.renderer.Render([]byte(page), render.Options{
		Title:       title,
		GeneratedAt: state.GeneratedAt,
	})
}
