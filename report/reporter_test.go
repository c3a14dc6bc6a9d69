package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minase/kotae/store"
)

type fakeTracker struct {
	searches    int
	creates     int
	searchCount int
	searchErr   error
	createErr   error
}

func (f *fakeTracker) Search(ctx context.Context, query string) (int, error) {
	f.searches++
	return f.searchCount, f.searchErr
}

func (f *fakeTracker) Create(ctx context.Context, title, body string, labels []string) error {
	f.creates++
	return f.createErr
}

func sampleReport() ErrorReport {
	return ErrorReport{
		ErrorMessage: "model stream timed out after 90000 ms",
		RequestID:    "req-1",
		WorkflowID:   "wf-1",
		DurationMs:   91234,
		StepCount:    2,
		Timestamp:    time.Now(),
	}
}

func TestReportFilesNewIssue(t *testing.T) {
	kv := store.NewMemoryKV()
	tracker := &fakeTracker{}
	reporter := NewReporter(kv, tracker, nil, nil)

	reporter.Report(context.Background(), sampleReport())

	if tracker.searches != 1 {
		t.Errorf("expected one remote search, got %d", tracker.searches)
	}
	if tracker.creates != 1 {
		t.Errorf("expected one issue creation, got %d", tracker.creates)
	}
}

func TestReportLocalCacheSuppressesEverything(t *testing.T) {
	kv := store.NewMemoryKV()
	tracker := &fakeTracker{}
	reporter := NewReporter(kv, tracker, nil, nil)
	ctx := context.Background()

	report := sampleReport()
	reporter.Report(ctx, report)
	reporter.Report(ctx, report)

	if tracker.searches != 1 || tracker.creates != 1 {
		t.Errorf("second report must be suppressed by the local cache: searches=%d creates=%d",
			tracker.searches, tracker.creates)
	}
}

func TestReportRemoteDuplicateWarmsLocalCache(t *testing.T) {
	kv := store.NewMemoryKV()
	tracker := &fakeTracker{searchCount: 1}
	reporter := NewReporter(kv, tracker, nil, nil)
	ctx := context.Background()

	report := sampleReport()
	reporter.Report(ctx, report)
	if tracker.creates != 0 {
		t.Error("remote duplicate must not create an issue")
	}

	// Cache warmed: next occurrence skips the remote query entirely.
	reporter.Report(ctx, report)
	if tracker.searches != 1 {
		t.Errorf("expected warmed cache to skip the second search, got %d", tracker.searches)
	}
}

func TestReportSearchFailureFailsOpen(t *testing.T) {
	kv := store.NewMemoryKV()
	tracker := &fakeTracker{searchErr: errors.New("search down")}
	reporter := NewReporter(kv, tracker, nil, nil)

	reporter.Report(context.Background(), sampleReport())

	if tracker.creates != 1 {
		t.Error("a failed duplicate check must not block reporting")
	}
}

func TestReportCreateFailureDoesNotCacheOrPanic(t *testing.T) {
	kv := store.NewMemoryKV()
	tracker := &fakeTracker{createErr: errors.New("create down")}
	reporter := NewReporter(kv, tracker, nil, nil)
	ctx := context.Background()

	report := sampleReport()
	reporter.Report(ctx, report)

	// Creation failed, so the fingerprint is not remembered and the next
	// occurrence tries again.
	reporter.Report(ctx, report)
	if tracker.creates != 2 {
		t.Errorf("expected a second creation attempt, got %d", tracker.creates)
	}
}

func TestReportNoTrackerIsNoop(t *testing.T) {
	kv := store.NewMemoryKV()
	reporter := NewReporter(kv, nil, nil, nil)

	// Must not panic or write anything.
	reporter.Report(context.Background(), sampleReport())

	key := reportedKeyPrefix + Fingerprint(sampleReport().ErrorMessage)
	if _, found, _ := kv.Get(context.Background(), key); found {
		t.Error("disabled reporter must not touch the dedup cache")
	}
}

func TestDifferentDynamicValuesShareOneReport(t *testing.T) {
	kv := store.NewMemoryKV()
	tracker := &fakeTracker{}
	reporter := NewReporter(kv, tracker, nil, nil)
	ctx := context.Background()

	first := sampleReport()
	second := sampleReport()
	second.ErrorMessage = "model stream timed out after 123 ms"

	reporter.Report(ctx, first)
	reporter.Report(ctx, second)

	if tracker.creates != 1 {
		t.Errorf("messages differing only in numbers must dedup to one issue, got %d", tracker.creates)
	}
}
