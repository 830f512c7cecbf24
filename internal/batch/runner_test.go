package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/chain"
	"github.com/dgnsrekt/maxpain/internal/snapshot"
	"github.com/dgnsrekt/maxpain/internal/source"
)

type mockSource struct {
	mu       sync.Mutex
	notFound map[string]bool
	broken   map[string]bool
	fetched  map[string]int
}

func (m *mockSource) fetchCount(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetched[ticker]
}

func (m *mockSource) FetchOptionData(ctx context.Context, ticker string, spec source.ExpirationSpec) (*source.OptionData, error) {
	m.mu.Lock()
	if m.fetched == nil {
		m.fetched = make(map[string]int)
	}
	m.fetched[ticker]++
	m.mu.Unlock()

	if m.notFound[ticker] {
		return nil, fmt.Errorf("%w: %s", source.ErrDataNotFound, ticker)
	}
	if m.broken[ticker] {
		return nil, fmt.Errorf("%w: %s table unreadable", source.ErrMalformedSource, ticker)
	}

	return &source.OptionData{
		Ticker:         ticker,
		CurrentPrice:   105,
		ExpirationDate: time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
		Chain: chain.Chain{
			{Strike: 90, CallOI: 100, PutOI: 0},
			{Strike: 100, CallOI: 50, PutOI: 50},
			{Strike: 110, CallOI: 0, PutOI: 100},
		},
	}, nil
}

func (m *mockSource) AvailableExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	return nil, nil
}

func newTestRunner(t *testing.T, src source.OptionSource, store *snapshot.Store, overwrite bool) *Runner {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewRunner(src, store, 2, overwrite, logger)
}

func explicitSpec() source.ExpirationSpec {
	return source.ExpirationSpec{Date: time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)}
}

func TestCalculateIsolatesFailures(t *testing.T) {
	src := &mockSource{
		notFound: map[string]bool{"MISSING": true},
		broken:   map[string]bool{"BROKEN": true},
	}
	store := snapshot.NewStore(t.TempDir(), false)
	runner := newTestRunner(t, src, store, false)

	result, err := runner.Calculate(context.Background(), []string{"NVDA", "MISSING", "BROKEN", "AMD"}, explicitSpec())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if result.Total != 4 {
		t.Errorf("expected total 4, got %d", result.Total)
	}
	if result.Success != 2 {
		t.Errorf("expected 2 successes, got %d", result.Success)
	}
	if result.NotFound != 1 {
		t.Errorf("expected 1 not found, got %d", result.NotFound)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 collected error, got %d", len(result.Errors))
	}

	// Results are sorted by ticker and carry the solved values.
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	if result.Results[0].Ticker != "AMD" || result.Results[1].Ticker != "NVDA" {
		t.Errorf("expected results sorted [AMD NVDA], got [%s %s]",
			result.Results[0].Ticker, result.Results[1].Ticker)
	}
	for _, r := range result.Results {
		if r.MaxPainPrice != 100 {
			t.Errorf("%s: expected max pain 100, got %g", r.Ticker, r.MaxPainPrice)
		}
		if r.ExpirationDate != "2026-09-18" {
			t.Errorf("%s: expected expiration 2026-09-18, got %s", r.Ticker, r.ExpirationDate)
		}
	}

	if result.RunID == "" {
		t.Error("expected a run ID")
	}
}

func TestCalculatePrefersSnapshot(t *testing.T) {
	src := &mockSource{}
	store := snapshot.NewStore(t.TempDir(), false)
	runner := newTestRunner(t, src, store, false)

	// Prefetch, then calculate: the second phase must not refetch.
	if _, err := runner.Download(context.Background(), []string{"NVDA"}, explicitSpec()); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if src.fetchCount("NVDA") != 1 {
		t.Fatalf("expected 1 fetch during download, got %d", src.fetchCount("NVDA"))
	}

	result, err := runner.Calculate(context.Background(), []string{"NVDA"}, explicitSpec())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if src.fetchCount("NVDA") != 1 {
		t.Errorf("expected snapshot to satisfy calc, fetch count %d", src.fetchCount("NVDA"))
	}
	if result.Success != 1 || result.Results[0].MaxPainPrice != 100 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestDownloadSkipsExisting(t *testing.T) {
	src := &mockSource{}
	store := snapshot.NewStore(t.TempDir(), false)
	runner := newTestRunner(t, src, store, false)

	if _, err := runner.Download(context.Background(), []string{"NVDA"}, explicitSpec()); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	result, err := runner.Download(context.Background(), []string{"NVDA"}, explicitSpec())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if src.fetchCount("NVDA") != 1 {
		t.Errorf("expected no refetch, fetch count %d", src.fetchCount("NVDA"))
	}
}

func TestDownloadOverwriteRefetches(t *testing.T) {
	src := &mockSource{}
	store := snapshot.NewStore(t.TempDir(), false)

	runner := newTestRunner(t, src, store, false)
	if _, err := runner.Download(context.Background(), []string{"NVDA"}, explicitSpec()); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	overwriting := newTestRunner(t, src, store, true)
	result, err := overwriting.Download(context.Background(), []string{"NVDA"}, explicitSpec())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if result.Skipped != 0 {
		t.Errorf("expected no skips with overwrite, got %d", result.Skipped)
	}
	if src.fetchCount("NVDA") != 2 {
		t.Errorf("expected refetch, fetch count %d", src.fetchCount("NVDA"))
	}
}

func TestEmptyBatch(t *testing.T) {
	runner := newTestRunner(t, &mockSource{}, snapshot.NewStore(t.TempDir(), false), false)
	result, err := runner.Calculate(context.Background(), nil, explicitSpec())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if result.Total != 0 || len(result.Results) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestCalculateErrorsAreTyped(t *testing.T) {
	src := &mockSource{broken: map[string]bool{"BROKEN": true}}
	runner := newTestRunner(t, src, snapshot.NewStore(t.TempDir(), false), false)

	// The runner records the error string, but the source still returns
	// typed errors for callers that fetch directly.
	_, err := src.FetchOptionData(context.Background(), "BROKEN", explicitSpec())
	if !errors.Is(err, source.ErrMalformedSource) {
		t.Fatalf("expected ErrMalformedSource, got %v", err)
	}

	result, err := runner.Calculate(context.Background(), []string{"BROKEN"}, explicitSpec())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}
}
