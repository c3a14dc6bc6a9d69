// Package stream converts a high-frequency model token stream into a
// low-frequency sequence of edits against a rate-limited sink.
//
// Information Hiding:
// - Phase state machine (awaiting thinking -> awaiting response -> done)
// - Interval and minimum-size gates per phase
// - Thinking summarization, including its retry and fallback
//
// Thinking output is verbose and uninteresting verbatim, so it is
// summarized and batched coarsely. Response output is the deliverable and
// uses a tighter interval. A failed intermediate edit never aborts the
// stream; only the final edit's failure surfaces to the caller.

package stream

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/minase/kotae/llm"
	"github.com/minase/kotae/retry"
)

// Editor replaces the displayed content of the working message.
type Editor interface {
	Edit(ctx context.Context, content string) error
}

// Summarizer produces a short rolling summary of thinking output.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Options tunes the throttle gates.
type Options struct {
	// ResponseInterval is the minimum time between response edits.
	ResponseInterval time.Duration
	// ResponseMinChars is the minimum new response characters per edit.
	ResponseMinChars int
	// ThinkingInterval is the minimum time between thinking-summary edits.
	ThinkingInterval time.Duration
	// ThinkingMinChars is the minimum new thinking characters per summary.
	ThinkingMinChars int
	// ThinkingMarker is prepended to thinking-summary edits.
	ThinkingMarker string
	// FallbackSummary replaces the summary when the summarizer fails.
	FallbackSummary string
	// Retry bounds the summarizer retry schedule.
	Retry retry.Config
	// Now is the time source (defaults to time.Now).
	Now func() time.Time
	// Logger receives gate decisions and edit failures.
	Logger *slog.Logger
}

// DefaultOptions returns the default throttle tuning.
func DefaultOptions() Options {
	return Options{
		ResponseInterval: 1500 * time.Millisecond,
		ResponseMinChars: 50,
		ThinkingInterval: 1000 * time.Millisecond,
		ThinkingMinChars: 200,
		ThinkingMarker:   "💭 ",
		FallbackSummary:  "考え中...",
		Retry:            retry.DefaultConfig(),
	}
}

type state int

const (
	stateAwaitingThinking state = iota
	stateAwaitingResponse
	stateDone
)

// Result is the outcome of a completed stream.
type Result struct {
	FinalText string
	EditCount int
}

// Throttle accumulates phase-tagged chunks and emits throttled edits.
// One Throttle serves exactly one run; it is not safe for concurrent use.
type Throttle struct {
	opts       Options
	editor     Editor
	summarizer Summarizer
	logger     *slog.Logger

	state    state
	thinking strings.Builder
	response strings.Builder
	lastEdit time.Time

	// Characters already covered by an emitted edit, per phase.
	emittedThinking int
	emittedResponse int

	editCount int
}

// New creates a throttle for one run.
func New(editor Editor, summarizer Summarizer, opts Options) *Throttle {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Throttle{
		opts:       opts,
		editor:     editor,
		summarizer: summarizer,
		logger:     opts.Logger,
		state:      stateAwaitingThinking,
		lastEdit:   opts.Now(),
	}
}

// Feed accumulates one chunk and emits an edit when a gate passes.
// Feed never returns an error: intermediate edit failures are logged and
// retried implicitly at the next gate-pass.
func (t *Throttle) Feed(ctx context.Context, chunk llm.Chunk) {
	if t.state == stateDone || chunk.Text == "" {
		return
	}

	switch chunk.Phase {
	case llm.PhaseThinking:
		t.thinking.WriteString(chunk.Text)
		if t.state == stateAwaitingThinking {
			t.maybeEmitThinking(ctx)
		}
	case llm.PhaseResponse:
		t.response.WriteString(chunk.Text)
		if t.state == stateAwaitingThinking {
			// First response chunk: force an immediate edit so the user
			// never sees a stale thinking indicator once real output exists.
			t.state = stateAwaitingResponse
			t.emitResponse(ctx)
			return
		}
		t.maybeEmitResponse(ctx)
	}
}

// Finish performs the unconditional final edit containing only the
// complete response text and terminates the throttle. Only this edit's
// failure propagates.
func (t *Throttle) Finish(ctx context.Context) (Result, error) {
	if t.state == stateDone {
		return Result{FinalText: t.response.String(), EditCount: t.editCount}, nil
	}
	t.state = stateDone

	finalText := t.response.String()
	if err := t.editor.Edit(ctx, finalText); err != nil {
		return Result{FinalText: finalText, EditCount: t.editCount}, err
	}
	t.editCount++
	return Result{FinalText: finalText, EditCount: t.editCount}, nil
}

func (t *Throttle) maybeEmitThinking(ctx context.Context) {
	elapsed := t.opts.Now().Sub(t.lastEdit)
	pending := t.thinking.Len() - t.emittedThinking
	if elapsed < t.opts.ThinkingInterval || pending < t.opts.ThinkingMinChars {
		return
	}

	summary := t.summarize(ctx, t.thinking.String())
	covered := t.thinking.Len()
	if err := t.editor.Edit(ctx, t.opts.ThinkingMarker+summary); err != nil {
		// Leave the gates open so the next chunk retries emission.
		t.logger.Warn("thinking edit failed", "error", err)
		return
	}
	t.lastEdit = t.opts.Now()
	t.emittedThinking = covered
	t.editCount++
}

func (t *Throttle) maybeEmitResponse(ctx context.Context) {
	elapsed := t.opts.Now().Sub(t.lastEdit)
	pending := t.response.Len() - t.emittedResponse
	if elapsed < t.opts.ResponseInterval || pending < t.opts.ResponseMinChars {
		return
	}
	t.emitResponse(ctx)
}

// emitResponse edits the message to the response text accumulated so far.
func (t *Throttle) emitResponse(ctx context.Context) {
	covered := t.response.Len()
	if err := t.editor.Edit(ctx, t.response.String()); err != nil {
		t.logger.Warn("response edit failed", "error", err)
		return
	}
	t.lastEdit = t.opts.Now()
	t.emittedResponse = covered
	t.editCount++
}

// summarize runs the secondary summarizer call behind a bounded retry.
// A summarizer failure must never reach the user-visible stream, so any
// terminal error substitutes the fallback phrase.
func (t *Throttle) summarize(ctx context.Context, text string) string {
	summary, err := retry.Do(ctx, t.opts.Retry, retry.Transient,
		func(ctx context.Context) (string, error) {
			return t.summarizer.Summarize(ctx, text)
		})
	if err != nil || summary == "" {
		t.logger.Warn("thinking summarization failed, using fallback", "error", err)
		return t.opts.FallbackSummary
	}
	return summary
}
