package main

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/batch"
	"github.com/dgnsrekt/maxpain/internal/source"
)

func downloadCmd() *cobra.Command {
	var (
		tickers    []string
		expiration string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Prefetch option chain snapshots for the configured tickers",
		Long: `Download option chains and save them as local snapshots.

A later calc run with the same expiration target reads the snapshots
instead of hitting the network. Existing snapshots are kept unless
--overwrite is set.

Examples:
  maxpain download
  maxpain download --tickers NVDA,AMD --expiration 2026-09-18
  maxpain download --overwrite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src, err := buildSource(cfg, logger)
			if err != nil {
				return err
			}
			batchTickers, err := effectiveTickers(tickers)
			if err != nil {
				return err
			}
			spec, err := effectiveExpiration(expiration)
			if err != nil {
				return err
			}

			warnNonTradingTarget(spec)

			runner := batch.NewRunner(src, buildStore(cfg), cfg.Calc.Workers,
				overwrite || cfg.Snapshot.Overwrite, logger)
			result, err := runner.Download(ctx, batchTickers, spec)
			if err != nil {
				return err
			}

			logger.Info("download complete",
				zap.Int("total", result.Total),
				zap.Int("success", result.Success),
				zap.Int("skipped", result.Skipped),
				zap.Int("not_found", result.NotFound),
				zap.Int("failed", result.Failed),
			)
			for _, e := range result.Errors {
				logger.Error("download error", zap.String("error", e))
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d download(s) failed", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "override tickers from config")
	cmd.Flags().StringVar(&expiration, "expiration", "", "override expiration target (YYYY-MM-DD or next_monthly)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "refetch even when a snapshot exists")

	return cmd
}

// warnNonTradingTarget flags a target expiration that falls on an NYSE
// holiday or weekend; the source will usually list a shifted date
// instead, which the resolution strategy then has to absorb.
func warnNonTradingTarget(spec source.ExpirationSpec) {
	target := spec.Date
	if spec.NextMonthly {
		target = source.NextMonthlyExpiration(time.Now())
	}
	nyse := calendar.XNYS()
	if !nyse.IsBusinessDay(target) {
		logger.Warn("target expiration is not an NYSE trading day",
			zap.String("target", target.Format(source.DateLayout)))
	}
}
