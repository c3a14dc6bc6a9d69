// Deduplicated error reporting pipeline.
//
// Information Hiding:
// - Two-layer dedup (local TTL cache, then remote tracker search)
// - Dedup key naming
//
// The duplicate check fails open: under-reporting hides real incidents
// while over-reporting only costs noise. Nothing in this pipeline ever
// throws past Report - a reporting failure must not become a second
// exception on the primary failure path.

package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minase/kotae/store"
)

// reportedTTL suppresses repeat reports of the same fingerprint locally.
const reportedTTL = time.Hour

const reportedKeyPrefix = "error_reported:"

// Tracker is the remote issue tracker.
type Tracker interface {
	// Search returns the number of open, labeled issues matching the query.
	Search(ctx context.Context, query string) (int, error)

	// Create opens a new issue.
	Create(ctx context.Context, title, body string, labels []string) error
}

// ErrorReport describes one failed workflow run.
type ErrorReport struct {
	ErrorMessage string
	RequestID    string
	WorkflowID   string
	DurationMs   int64
	StepCount    int
	Timestamp    time.Time
}

// Reporter runs the dedup/report pipeline.
type Reporter struct {
	kv      store.KV
	tracker Tracker
	labels  []string
	logger  *slog.Logger
}

// NewReporter creates a reporter. A nil tracker disables reporting
// (the pipeline becomes a no-op).
func NewReporter(kv store.KV, tracker Tracker, labels []string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if len(labels) == 0 {
		labels = []string{"auto-reported"}
	}
	return &Reporter{kv: kv, tracker: tracker, labels: labels, logger: logger}
}

// Report runs the two-layer dedup and files an issue for a new failure.
// It never returns an error; every internal failure degrades to a warning.
func (r *Reporter) Report(ctx context.Context, report ErrorReport) {
	if r.tracker == nil {
		return
	}

	fingerprint := Fingerprint(report.ErrorMessage)
	key := reportedKeyPrefix + fingerprint

	// Layer 1: local TTL cache.
	if _, found, err := r.kv.Get(ctx, key); err != nil {
		r.logger.Warn("dedup cache read failed, proceeding", "error", err)
	} else if found {
		r.logger.Info("error already reported recently, skipping", "fingerprint", fingerprint)
		return
	}

	// Layer 2: remote search. Fails open.
	if r.isDuplicate(ctx, fingerprint) {
		// Warm the local cache so repeat occurrences within the hour
		// skip the remote query.
		r.rememberReported(ctx, key)
		return
	}

	if err := r.tracker.Create(ctx, r.issueTitle(fingerprint), r.issueBody(report, fingerprint), r.labels); err != nil {
		r.logger.Warn("failed to create issue", "error", err)
		return
	}
	r.logger.Info("error report filed", "fingerprint", fingerprint)
	r.rememberReported(ctx, key)
}

// isDuplicate queries the tracker for an existing open issue carrying the
// fingerprint. Any failure counts as "not a duplicate".
func (r *Reporter) isDuplicate(ctx context.Context, fingerprint string) bool {
	count, err := r.tracker.Search(ctx, fingerprint)
	if err != nil {
		r.logger.Warn("duplicate search failed, assuming new", "error", err)
		return false
	}
	return count > 0
}

func (r *Reporter) rememberReported(ctx context.Context, key string) {
	if err := r.kv.Put(ctx, key, []byte("1"), reportedTTL); err != nil {
		r.logger.Warn("dedup cache write failed", "error", err)
	}
}

func (r *Reporter) issueTitle(fingerprint string) string {
	title := fingerprint
	if len(title) > 80 {
		title = title[:80] + "…"
	}
	return "[auto] workflow failure: " + title
}

func (r *Reporter) issueBody(report ErrorReport, fingerprint string) string {
	return fmt.Sprintf(
		"Automatic report of a failed workflow run.\n\n"+
			"```\n%s\n```\n\n"+
			"| | |\n|---|---|\n"+
			"| Fingerprint | `%s` |\n"+
			"| Request | %s |\n"+
			"| Workflow | %s |\n"+
			"| Duration | %d ms |\n"+
			"| Steps completed | %d |\n"+
			"| Time | %s |\n",
		report.ErrorMessage,
		fingerprint,
		report.RequestID,
		report.WorkflowID,
		report.DurationMs,
		report.StepCount,
		report.Timestamp.UTC().Format(time.RFC3339),
	)
}
