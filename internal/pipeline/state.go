// Package pipeline implements the report-generation workflow engine.
//
// A report request flows through four stages in fixed order: analysis,
// markdown, markup, and document. The engine threads a single WorkflowState
// through the stages, retries transient LLM failures per RetryPolicy, and
// degrades to per-stage fallback content instead of aborting. The only error
// the engine propagates is an internal defect (a fallback producer failing);
// everything else yields an artifact plus an execution report describing what,
// if anything, was degraded.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lender512/financial-restructuring-service/internal/domain"
)

// Stage identifies one transformation step of the report pipeline.
type Stage string

const (
	// StageAnalysis synthesizes narrative text and structured findings from
	// the financial inputs. Calls the LLM.
	StageAnalysis Stage = "analysis"

	// StageMarkdown formats the analysis into a structured markdown report.
	// Calls the LLM.
	StageMarkdown Stage = "markdown"

	// StageMarkup converts markdown into styled HTML. Local transformation.
	StageMarkup Stage = "markup"

	// StageDocument renders the HTML into PDF bytes. Local transformation.
	StageDocument Stage = "document"
)

// StageOrder returns the fixed execution order of the pipeline stages.
func StageOrder() []Stage {
	return []Stage{StageAnalysis, StageMarkdown, StageMarkup, StageDocument}
}

// StageStatus is the terminal per-stage outcome.
type StageStatus string

const (
	// StagePending means the stage has not executed yet.
	StagePending StageStatus = "pending"

	// StageSucceeded means the primary path produced the stage output.
	StageSucceeded StageStatus = "succeeded"

	// StageDegraded means the fallback producer supplied the stage output.
	StageDegraded StageStatus = "degraded"

	// StageFailed means the stage produced no output. Only set when an
	// earlier fallback producer failed and the pipeline halted.
	StageFailed StageStatus = "failed"
)

// WorkflowState is the single mutable object threaded through the pipeline.
// It is exclusively owned by the executing request; the engine never shares
// it across goroutines.
type WorkflowState struct {
	// RequestID is assigned at intake and immutable.
	RequestID uuid.UUID

	// Inputs is the caller-supplied financial payload, immutable after creation.
	Inputs domain.AnalysisInputs

	// GeneratedAt is the timestamp injected at execution start. It appears in
	// the report body and the rendered document so output stays deterministic
	// under test.
	GeneratedAt time.Time

	// Findings is the structured analysis produced by the analysis stage
	// (primary or fallback). Later stages read it when formatting.
	Findings *domain.DebtAnalysisResult

	// Warnings is the append-only list of degradation notices.
	Warnings []string

	outputs  map[Stage][]byte
	statuses map[Stage]StageStatus
}

// NewWorkflowState creates a state with every stage Pending.
func NewWorkflowState(requestID uuid.UUID, inputs domain.AnalysisInputs, generatedAt time.Time) *WorkflowState {
	statuses := make(map[Stage]StageStatus, 4)
	for _, stage := range StageOrder() {
		statuses[stage] = StagePending
	}
	return &WorkflowState{
		RequestID:   requestID,
		Inputs:      inputs,
		GeneratedAt: generatedAt,
		outputs:     make(map[Stage][]byte, 4),
		statuses:    statuses,
	}
}

// Output returns the recorded output for a stage.
func (s *WorkflowState) Output(stage Stage) ([]byte, bool) {
	out, ok := s.outputs[stage]
	return out, ok
}

// setOutput records a stage output. Outputs are append-only; overwriting one
// is an invariant violation.
func (s *WorkflowState) setOutput(stage Stage, output []byte) error {
	if _, exists := s.outputs[stage]; exists {
		return fmt.Errorf("stage %s output already recorded", stage)
	}
	s.outputs[stage] = output
	return nil
}

// Status returns the current status of a stage.
func (s *WorkflowState) Status(stage Stage) StageStatus {
	return s.statuses[stage]
}

// setStatus moves a stage out of Pending. Statuses are set in stage order and
// never revised.
func (s *WorkflowState) setStatus(stage Stage, status StageStatus) error {
	if current := s.statuses[stage]; current != StagePending {
		return fmt.Errorf("stage %s already terminal (%s)", stage, current)
	}
	s.statuses[stage] = status
	return nil
}

// addWarning appends a degradation notice.
func (s *WorkflowState) addWarning(warning string) {
	s.Warnings = append(s.Warnings, warning)
}

// FinalArtifact returns the document stage output, nil until that stage
// completes.
func (s *WorkflowState) FinalArtifact() []byte {
	return s.outputs[StageDocument]
}

// markdown returns the markdown stage output as text.
func (s *WorkflowState) markdown() string {
	return string(s.outputs[StageMarkdown])
}

// narrative returns the analysis stage output as text.
func (s *WorkflowState) narrative() string {
	return string(s.outputs[StageAnalysis])
}

// StageReport is the per-stage entry of an execution report.
type StageReport struct {
	Stage    Stage       `json:"stage"`
	Status   StageStatus `json:"status"`
	Attempts int         `json:"attempts"`
	Warning  string      `json:"warning,omitempty"`
}

// ExecutionReport summarizes one pipeline run for the caller.
type ExecutionReport struct {
	RequestID uuid.UUID           `json:"request_id"`
	Status    domain.ReportStatus `json:"status"`
	Stages    []StageReport       `json:"stages"`
	Warnings  []string            `json:"warnings,omitempty"`
	Duration  time.Duration       `json:"duration_ns"`
}

// Result is the outcome of Engine.Execute: the final artifact (empty when
// cancelled) plus the execution report.
type Result struct {
	Artifact    []byte
	ContentType string
	Report      ExecutionReport
}
