// Package batch runs the fetch-normalize-solve pipeline across a list
// of tickers. Failures are isolated at ticker granularity: one bad
// ticker is recorded and the rest proceed.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/maxpain"
	"github.com/dgnsrekt/maxpain/internal/snapshot"
	"github.com/dgnsrekt/maxpain/internal/source"
)

// Runner executes per-ticker work over a bounded worker pool. Each
// ticker's data is independently owned, so workers need no shared
// locking beyond the result channel.
type Runner struct {
	src       source.OptionSource
	store     *snapshot.Store
	workers   int
	overwrite bool
	logger    *zap.Logger
}

// TickerResult is one ticker's outcome inside a batch.
type TickerResult struct {
	Ticker   string
	Result   *maxpain.Result
	Skipped  bool
	NotFound bool
	Err      error
}

// BatchResult summarizes a whole run.
type BatchResult struct {
	RunID    string
	Total    int
	Success  int
	Skipped  int
	NotFound int
	Failed   int
	Errors   []string
	Results  []*maxpain.Result
}

func NewRunner(src source.OptionSource, store *snapshot.Store, workers int, overwrite bool, logger *zap.Logger) *Runner {
	return &Runner{
		src:       src,
		store:     store,
		workers:   workers,
		overwrite: overwrite,
		logger:    logger,
	}
}

// Calculate fetches, solves and evaluates every ticker. A snapshot
// matching the resolved expiration is preferred over a remote fetch.
func (r *Runner) Calculate(ctx context.Context, tickers []string, spec source.ExpirationSpec) (*BatchResult, error) {
	return r.run(ctx, tickers, func(ctx context.Context, ticker string) TickerResult {
		return r.calculateTicker(ctx, ticker, spec)
	})
}

// Download prefetches snapshots for every ticker without solving.
// Existing snapshots are skipped unless overwrite is set.
func (r *Runner) Download(ctx context.Context, tickers []string, spec source.ExpirationSpec) (*BatchResult, error) {
	return r.run(ctx, tickers, func(ctx context.Context, ticker string) TickerResult {
		return r.downloadTicker(ctx, ticker, spec)
	})
}

func (r *Runner) run(ctx context.Context, tickers []string, process func(context.Context, string) TickerResult) (*BatchResult, error) {
	batch := &BatchResult{
		RunID: uuid.NewString(),
		Total: len(tickers),
	}
	if len(tickers) == 0 {
		return batch, nil
	}

	logger := r.logger.With(zap.String("run_id", batch.RunID))
	logger.Info("starting batch", zap.Int("tickers", len(tickers)))

	jobs := make(chan string, len(tickers))
	results := make(chan TickerResult, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobs, results, process)
		}()
	}

	go func() {
		for _, ticker := range tickers {
			select {
			case <-ctx.Done():
				return
			case jobs <- ticker:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		switch {
		case res.Skipped:
			batch.Skipped++
			batch.Success++
		case res.NotFound:
			batch.NotFound++
		case res.Err != nil:
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", res.Ticker, res.Err))
		default:
			batch.Success++
		}
		if res.Result != nil {
			batch.Results = append(batch.Results, res.Result)
		}
	}

	// Worker completion order is not deterministic.
	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].Ticker < batch.Results[j].Ticker
	})

	logger.Info("batch complete",
		zap.Int("total", batch.Total),
		zap.Int("success", batch.Success),
		zap.Int("skipped", batch.Skipped),
		zap.Int("not_found", batch.NotFound),
		zap.Int("failed", batch.Failed),
	)
	return batch, nil
}

func (r *Runner) worker(ctx context.Context, jobs <-chan string, results chan<- TickerResult, process func(context.Context, string) TickerResult) {
	for ticker := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := process(ctx, ticker)

		select {
		case <-ctx.Done():
			return
		case results <- res:
		}
	}
}

func (r *Runner) calculateTicker(ctx context.Context, ticker string, spec source.ExpirationSpec) TickerResult {
	res := TickerResult{Ticker: ticker}

	data, fromSnapshot, err := r.loadOrFetch(ctx, ticker, spec)
	if err != nil {
		if errors.Is(err, source.ErrDataNotFound) {
			r.logger.Warn("no data", zap.String("ticker", ticker), zap.Error(err))
			res.NotFound = true
			return res
		}
		r.logger.Error("fetch failed", zap.String("ticker", ticker), zap.Error(err))
		res.Err = err
		return res
	}

	result, err := maxpain.Evaluate(data.Ticker, data.CurrentPrice, data.Chain)
	if err != nil {
		r.logger.Error("evaluation failed", zap.String("ticker", ticker), zap.Error(err))
		res.Err = err
		return res
	}
	result.ExpirationDate = data.ExpirationDate.Format(source.DateLayout)

	r.logger.Info("max pain computed",
		zap.String("ticker", result.Ticker),
		zap.Float64("max_pain", result.MaxPainPrice),
		zap.Float64("current_price", result.CurrentPrice),
		zap.Float64("pct_change", result.PctChange),
		zap.String("bias", string(result.PremiumBias)),
		zap.Bool("from_snapshot", fromSnapshot),
	)

	res.Result = result
	return res
}

// loadOrFetch prefers a local snapshot when the target expiration is
// explicit and a matching snapshot exists; only then can the remote
// fetch be avoided.
func (r *Runner) loadOrFetch(ctx context.Context, ticker string, spec source.ExpirationSpec) (*source.OptionData, bool, error) {
	if r.store != nil && !spec.NextMonthly {
		if path, ok := r.store.Find(ticker, spec.Date); ok {
			data, err := r.store.Read(path)
			if err == nil {
				return data, true, nil
			}
			r.logger.Warn("unreadable snapshot, refetching",
				zap.String("ticker", ticker), zap.String("path", path), zap.Error(err))
		}
	}

	data, err := r.src.FetchOptionData(ctx, ticker, spec)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func (r *Runner) downloadTicker(ctx context.Context, ticker string, spec source.ExpirationSpec) TickerResult {
	res := TickerResult{Ticker: ticker}

	if !r.overwrite && !spec.NextMonthly {
		if path, ok := r.store.Find(ticker, spec.Date); ok {
			r.logger.Debug("snapshot exists, skipping", zap.String("ticker", ticker), zap.String("path", path))
			res.Skipped = true
			return res
		}
	}

	data, err := r.src.FetchOptionData(ctx, ticker, spec)
	if err != nil {
		if errors.Is(err, source.ErrDataNotFound) {
			res.NotFound = true
			return res
		}
		res.Err = err
		return res
	}

	// The resolved expiration may differ from the requested target;
	// check the snapshot again under its real date.
	if !r.overwrite {
		if path, ok := r.store.Find(data.Ticker, data.ExpirationDate); ok {
			r.logger.Debug("snapshot exists for resolved expiration",
				zap.String("ticker", ticker), zap.String("path", path))
			res.Skipped = true
			return res
		}
	}

	path, err := r.store.Write(data)
	if err != nil {
		res.Err = err
		return res
	}

	r.logger.Info("snapshot saved",
		zap.String("ticker", data.Ticker),
		zap.String("path", path),
		zap.Int("strikes", len(data.Chain)),
	)
	return res
}
