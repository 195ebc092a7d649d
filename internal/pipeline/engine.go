package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lender512/financial-restructuring-service/internal/domain"
	"github.com/lender512/financial-restructuring-service/internal/llm"
	"github.com/lender512/financial-restructuring-service/internal/observability"
	"github.com/lender512/financial-restructuring-service/internal/render"
)

// Engine runs the four-stage report pipeline for one request at a time.
// It is safe for concurrent use: all per-request state lives in the
// WorkflowState created inside Execute.
type Engine struct {
	client   llm.Client
	renderer render.Renderer
	policy   RetryPolicy
	genOpts  llm.GenerateOptions
	logger   zerolog.Logger
	metrics  *observability.Metrics

	// sleep and now are injection points for deterministic tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(client llm.Client, renderer render.Renderer, policy RetryPolicy, genOpts llm.GenerateOptions, logger zerolog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		client:   client,
		renderer: renderer,
		policy:   policy,
		genOpts:  genOpts,
		logger:   logger,
		metrics:  metrics,
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// stageDef binds a stage to its primary path and fallback producer.
type stageDef struct {
	name Stage

	// external marks stages that call the LLM; only these retry.
	external bool

	run      func(ctx context.Context, state *WorkflowState) ([]byte, error)
	fallback func(state *WorkflowState) ([]byte, error)
}

func (e *Engine) stages() []stageDef {
	return []stageDef{
		{name: StageAnalysis, external: true, run: e.runAnalysis, fallback: e.fallbackAnalysis},
		{name: StageMarkdown, external: true, run: e.runMarkdown, fallback: e.fallbackMarkdown},
		{name: StageMarkup, run: e.runMarkup, fallback: e.fallbackMarkup},
		{name: StageDocument, run: e.runDocument, fallback: e.fallbackDocument},
	}
}

// Execute runs the pipeline for one request. It always returns a Result; the
// error is non-nil only for the internal-defect class (a fallback producer
// failing or a state invariant violation). Cancellation yields a Result with
// status cancelled and no artifact.
func (e *Engine) Execute(ctx context.Context, requestID uuid.UUID, inputs domain.AnalysisInputs) (*Result, error) {
	start := e.now()
	state := NewWorkflowState(requestID, inputs, start.UTC())
	logger := e.logger.With().
		Str("request_id", requestID.String()).
		Str("customer_id", inputs.CustomerID).
		Logger()

	logger.Info().Msg("starting report pipeline")

	reports := make([]StageReport, 0, len(StageOrder()))
	var defect error

	for _, st := range e.stages() {
		if defect != nil {
			// A fallback producer failed earlier; remaining stages never run.
			if err := state.setStatus(st.name, StageFailed); err != nil {
				logger.Error().Err(err).Str("stage", string(st.name)).Msg("state invariant violation")
			}
			reports = append(reports, StageReport{Stage: st.name, Status: StageFailed})
			continue
		}

		stageStart := e.now()
		stageLogger := observability.WithStageContext(logger, string(st.name), 0)

		out, attempts, runErr := e.runWithRetry(ctx, st, state, logger)
		if runErr != nil && ctx.Err() != nil {
			stageLogger.Warn().Err(runErr).Int("attempts", attempts).Msg("pipeline cancelled")
			return e.cancelledResult(state, reports, st.name, attempts, start), nil
		}

		report := StageReport{Stage: st.name, Attempts: attempts}
		switch {
		case runErr == nil:
			if err := e.record(state, st.name, out, StageSucceeded); err != nil {
				defect = err
				report.Status = StageFailed
				break
			}
			report.Status = StageSucceeded
			stageLogger.Info().Int("attempts", attempts).Msg("stage succeeded")

		default:
			stageLogger.Warn().Err(runErr).Int("attempts", attempts).Msg("stage primary path failed, using fallback")
			fbOut, fbErr := st.fallback(state)
			if fbErr != nil {
				defect = domain.NewInternalDefectError(string(st.name), fbErr)
				if err := state.setStatus(st.name, StageFailed); err != nil {
					stageLogger.Error().Err(err).Msg("state invariant violation")
				}
				report.Status = StageFailed
				stageLogger.Error().Err(fbErr).Msg("fallback producer failed")
				break
			}
			if err := e.record(state, st.name, fbOut, StageDegraded); err != nil {
				defect = err
				report.Status = StageFailed
				break
			}
			report.Status = StageDegraded
			warning := fmt.Sprintf("%s stage degraded to fallback content: %v", st.name, runErr)
			report.Warning = warning
			state.addWarning(warning)
			if e.metrics != nil {
				e.metrics.RecordStageFallback(string(st.name))
			}
		}

		if e.metrics != nil {
			e.metrics.RecordStageExecution(string(st.name), string(report.Status), attempts, e.now().Sub(stageStart).Seconds())
		}
		reports = append(reports, report)
	}

	status := overallStatus(reports, defect != nil)
	result := &Result{
		Report: ExecutionReport{
			RequestID: requestID,
			Status:    status,
			Stages:    reports,
			Warnings:  state.Warnings,
			Duration:  e.now().Sub(start),
		},
	}

	if defect != nil {
		logger.Error().Err(defect).Msg("pipeline halted on internal defect")
		return result, defect
	}

	result.Artifact = state.FinalArtifact()
	result.ContentType = domain.ContentTypePDF
	logger.Info().
		Str("status", string(status)).
		Int("artifact_bytes", len(result.Artifact)).
		Int("warnings", len(state.Warnings)).
		Msg("report pipeline finished")
	return result, nil
}

// runWithRetry invokes the stage's primary path, retrying transient LLM
// failures per the policy. Local stages run exactly once. Returns the output,
// the number of attempts made, and the last error.
func (e *Engine) runWithRetry(ctx context.Context, st stageDef, state *WorkflowState, logger zerolog.Logger) ([]byte, int, error) {
	maxAttempts := 1
	if st.external {
		maxAttempts = e.policy.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		out, err := st.run(ctx, state)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt, err
		}
		if attempt == maxAttempts || !e.policy.Retryable(err) {
			return nil, attempt, err
		}

		backoff := e.policy.Backoff(attempt)
		retryLogger := observability.WithStageContext(logger, string(st.name), attempt)
		retryLogger.Info().
			Err(err).
			Dur("backoff", backoff).
			Msg("retrying stage after backoff")
		if sleepErr := e.sleep(ctx, backoff); sleepErr != nil {
			return nil, attempt, sleepErr
		}
	}

	return nil, maxAttempts, lastErr
}

// record stores a stage outcome on the state.
func (e *Engine) record(state *WorkflowState, stage Stage, out []byte, status StageStatus) error {
	if err := state.setOutput(stage, out); err != nil {
		return domain.NewInternalDefectError(string(stage), err)
	}
	if err := state.setStatus(stage, status); err != nil {
		return domain.NewInternalDefectError(string(stage), err)
	}
	return nil
}

// cancelledResult builds the terminal report for an abandoned run. The stage
// that observed the cancellation and everything after it stay Pending, and no
// artifact is returned.
func (e *Engine) cancelledResult(state *WorkflowState, reports []StageReport, current Stage, attempts int, start time.Time) *Result {
	reached := false
	for _, stage := range StageOrder() {
		if stage == current {
			reached = true
			reports = append(reports, StageReport{Stage: stage, Status: StagePending, Attempts: attempts})
			continue
		}
		if reached {
			reports = append(reports, StageReport{Stage: stage, Status: StagePending})
		}
	}

	return &Result{
		Report: ExecutionReport{
			RequestID: state.RequestID,
			Status:    domain.ReportStatusCancelled,
			Stages:    reports,
			Warnings:  state.Warnings,
			Duration:  e.now().Sub(start),
		},
	}
}

// overallStatus folds per-stage outcomes into the report status.
func overallStatus(reports []StageReport, defect bool) domain.ReportStatus {
	if defect {
		return domain.ReportStatusFailed
	}
	for _, r := range reports {
		if r.Status == StageDegraded {
			return domain.ReportStatusDegraded
		}
	}
	return domain.ReportStatusSucceeded
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
