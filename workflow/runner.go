// Workflow runner - the fixed four-step orchestration pipeline.
//
// Information Hiding:
// - Step ordering and checkpoint names
// - Per-step retry/timeout policy
// - The failure path (reporting and user notification)
//
// Steps execute strictly sequentially; each step's result is checkpointed
// before the next starts. Cache and history writes are best-effort: losing
// conversation continuity is acceptable, losing the answer is not. Any
// uncaught step failure lands in exactly one place, the top-level failure
// handler, which reports, notifies, and terminates cleanly.

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minase/kotae/llm"
	"github.com/minase/kotae/report"
	"github.com/minase/kotae/retry"
	"github.com/minase/kotae/store"
	"github.com/minase/kotae/stream"
)

// Step names double as checkpoint keys.
const (
	stepReferenceData = "get_reference_data"
	stepHistory       = "get_history"
	stepStream        = "stream_and_deliver"
	stepSaveHistory   = "save_history"
)

const summaryPrompt = "Summarize the following intermediate reasoning in one short sentence, " +
	"suitable as a progress indicator for the person waiting for the answer:"

// Config holds orchestration policy.
type Config struct {
	// StreamTimeout is the hard ceiling for one streaming attempt.
	StreamTimeout time.Duration
	// StreamRetry bounds the orchestration-layer retry of the whole
	// streaming step (distinct from any retry inside the model client).
	StreamRetry retry.Config
	// Throttle tunes the edit throttle.
	Throttle stream.Options
	// QuestionPrefix is prepended to the user's question in history.
	QuestionPrefix string
	// FailureTemplate formats the user-visible failure message
	// (one %s verb receiving the reason).
	FailureTemplate string
	// SystemPrompt frames the model call; the reference data and its
	// description are appended to it.
	SystemPrompt string
}

// DefaultConfig returns the default orchestration policy.
func DefaultConfig() Config {
	return Config{
		StreamTimeout:   90 * time.Second,
		StreamRetry:     retry.DefaultConfig(),
		Throttle:        stream.DefaultOptions(),
		QuestionPrefix:  "質問: ",
		FailureTemplate: "エラーが発生しました: %s",
		SystemPrompt: "You answer questions using the reference data below. " +
			"Answer in the language of the question, and say so plainly when " +
			"the reference data does not cover it.",
	}
}

// Runner executes workflow runs. Collaborators are injected per Runner;
// each run additionally receives its own Sink and logger, so no mutable
// state is shared across concurrent runs.
type Runner struct {
	state       *store.State
	checkpoints Checkpointer
	source      ReferenceSource
	provider    llm.Provider
	reporter    *report.Reporter
	newSink     func(token string) Sink
	cfg         Config
	logger      *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(
	state *store.State,
	checkpoints Checkpointer,
	source ReferenceSource,
	provider llm.Provider,
	reporter *report.Reporter,
	newSink func(token string) Sink,
	cfg Config,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		state:       state,
		checkpoints: checkpoints,
		source:      source,
		provider:    provider,
		reporter:    reporter,
		newSink:     newSink,
		cfg:         cfg,
		logger:      logger,
	}
}

// Execute runs the pipeline for one request. It never returns an error:
// every failure terminates inside the failure path.
func (r *Runner) Execute(ctx context.Context, run Run) {
	logger := r.logger.With(
		"request_id", run.RequestID,
		"instance_id", run.InstanceID,
	)
	started := time.Now()
	sink := r.newSink(run.Token)
	stepsCompleted := 0

	err := func() error {
		reference, err := Step(ctx, r.checkpoints, run.InstanceID, stepReferenceData,
			func(ctx context.Context) (referenceResult, error) {
				return r.getReferenceData(ctx, logger)
			})
		if err != nil {
			return fmt.Errorf("%s: %w", stepReferenceData, err)
		}
		stepsCompleted++
		logger.Info("reference data ready", "from_cache", reference.FromCache)

		history, err := Step(ctx, r.checkpoints, run.InstanceID, stepHistory,
			func(ctx context.Context) ([]llm.Message, error) {
				return r.state.GetHistory(ctx)
			})
		if err != nil {
			return fmt.Errorf("%s: %w", stepHistory, err)
		}
		stepsCompleted++
		logger.Info("history loaded", "entries", len(history))

		result, err := Step(ctx, r.checkpoints, run.InstanceID, stepStream,
			func(ctx context.Context) (streamResult, error) {
				return r.streamAndDeliver(ctx, logger, run, sink, reference, history)
			})
		if err != nil {
			return fmt.Errorf("%s: %w", stepStream, err)
		}
		stepsCompleted++
		logger.Info("stream delivered", "edits", result.EditCount, "chars", len(result.FinalText))

		updated := append(history,
			llm.UserMessage(r.cfg.QuestionPrefix+run.Message),
			llm.ModelMessage(result.FinalText),
		)
		if _, err := Step(ctx, r.checkpoints, run.InstanceID, stepSaveHistory,
			func(ctx context.Context) (bool, error) {
				if err := r.state.SaveHistory(ctx, updated); err != nil {
					return false, err
				}
				return true, nil
			}); err != nil {
			// Losing continuity is acceptable; the answer is already out.
			logger.Warn("history save failed", "error", err)
		} else {
			stepsCompleted++
		}

		return nil
	}()

	if err != nil {
		r.fail(ctx, logger, run, sink, err, started, stepsCompleted)
		return
	}
	logger.Info("run completed", "duration_ms", time.Since(started).Milliseconds())
}

// getReferenceData is step 1: cache, then fetch, then best-effort
// cache write.
func (r *Runner) getReferenceData(ctx context.Context, logger *slog.Logger) (referenceResult, error) {
	entry, err := r.state.GetReferenceCache(ctx)
	if err != nil {
		// A broken cache read is a miss, not a failure.
		logger.Warn("reference cache read failed", "error", err)
	}
	if entry != nil {
		return referenceResult{Data: entry.Data, Description: entry.Description, FromCache: true}, nil
	}

	type fetched struct{ data, description string }
	result, err := retry.Do(ctx, retry.DefaultConfig(), retry.Transient,
		func(ctx context.Context) (fetched, error) {
			data, description, err := r.source.Load(ctx)
			return fetched{data, description}, err
		})
	if err != nil {
		return referenceResult{}, fmt.Errorf("reference fetch failed: %w", err)
	}

	if err := r.state.SaveReferenceCache(ctx, result.data, result.description); err != nil {
		// The fresh data still serves this request.
		logger.Warn("reference cache write failed", "error", err)
	}
	return referenceResult{Data: result.data, Description: result.description}, nil
}

// streamAndDeliver is step 3: the model stream piped through the edit
// throttle, behind its own bounded retry and a hard timeout.
func (r *Runner) streamAndDeliver(ctx context.Context, logger *slog.Logger, run Run, sink Sink, reference referenceResult, history []llm.Message) (streamResult, error) {
	// Working message; a failed post is retried implicitly by the first
	// edit, which falls back to posting.
	if err := sink.PostNew(ctx, r.cfg.Throttle.ThinkingMarker+r.cfg.Throttle.FallbackSummary); err != nil {
		logger.Warn("initial post failed", "error", err)
	}

	system := r.systemPrompt(reference)
	conversation := append(append([]llm.Message{}, history...),
		llm.UserMessage(r.cfg.QuestionPrefix+run.Message))

	attempt := func(ctx context.Context) (stream.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, r.cfg.StreamTimeout)
		defer cancel()

		throttleOpts := r.cfg.Throttle
		throttleOpts.Logger = logger
		throttle := stream.New(
			sinkEditor{sink},
			providerSummarizer{r.provider},
			throttleOpts,
		)

		chunks := make(chan llm.Chunk, 64)
		streamErr := make(chan error, 1)
		go func() {
			defer close(chunks)
			streamErr <- r.provider.GenerateStream(ctx, system, conversation, chunks)
		}()

		for chunk := range chunks {
			throttle.Feed(ctx, chunk)
		}
		if err := <-streamErr; err != nil {
			return stream.Result{}, fmt.Errorf("model stream failed: %w", err)
		}
		return throttle.Finish(ctx)
	}

	result, err := retry.Do(ctx, r.cfg.StreamRetry, retry.Transient, attempt)
	if err != nil {
		return streamResult{}, err
	}
	if result.FinalText == "" {
		return streamResult{}, fmt.Errorf("model produced no response text")
	}
	return streamResult{FinalText: result.FinalText, EditCount: result.EditCount}, nil
}

func (r *Runner) systemPrompt(reference referenceResult) string {
	prompt := r.cfg.SystemPrompt
	if reference.Description != "" {
		prompt += "\n\nAbout the reference data: " + reference.Description
	}
	prompt += "\n\nReference data:\n" + reference.Data
	return prompt
}

// fail is the single failure handler: report (deduplicated), then notify
// the user. Neither may raise a second failure; both are fully swallowed.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, run Run, sink Sink, cause error, started time.Time, stepsCompleted int) {
	logger.Error("run failed", "error", cause, "steps_completed", stepsCompleted)

	// Reporting runs outside any checkpointed step so orchestrator-level
	// retries can never re-trigger duplicate report attempts.
	r.reporter.Report(ctx, report.ErrorReport{
		ErrorMessage: cause.Error(),
		RequestID:    run.RequestID,
		WorkflowID:   run.InstanceID,
		DurationMs:   time.Since(started).Milliseconds(),
		StepCount:    stepsCompleted,
		Timestamp:    time.Now(),
	})

	message := fmt.Sprintf(r.cfg.FailureTemplate, cause)
	if _, err := retry.Do(ctx, retry.DefaultConfig(), retry.Transient,
		func(ctx context.Context) (bool, error) {
			return sink.EditExisting(ctx, message)
		}); err != nil {
		logger.Warn("failure notification could not be delivered", "error", err)
	}
}

// sinkEditor adapts a Sink to the throttle's Editor.
type sinkEditor struct {
	sink Sink
}

func (e sinkEditor) Edit(ctx context.Context, content string) error {
	ok, err := e.sink.EditExisting(ctx, content)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("edit was rejected")
	}
	return nil
}

// providerSummarizer adapts the model provider to the throttle's Summarizer.
type providerSummarizer struct {
	provider llm.Provider
}

func (s providerSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.provider.GenerateOnce(ctx, summaryPrompt+"\n\n"+text)
}
