package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/batch"
	"github.com/dgnsrekt/maxpain/internal/report"
)

func calcCmd() *cobra.Command {
	var (
		tickers    []string
		expiration string
		skipReport bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate max pain for the configured tickers",
		Long: `Fetch option chains, calculate max pain and generate reports.

The data source (cboe csv exports or the Yahoo option API), ticker
list and expiration target come from the config file; --tickers and
--expiration override it per run.

Examples:
  # Use config settings
  maxpain calc

  # Override tickers
  maxpain calc --tickers NVDA,AMD

  # Specific expiration instead of the next monthly
  maxpain calc --expiration 2026-09-18`,
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

			logger.Info("starting calculation",
				zap.String("source", cfg.Source),
				zap.Strings("tickers", batchTickers),
				zap.String("expiration", spec.String()),
			)

			runner := batch.NewRunner(src, buildStore(cfg), cfg.Calc.Workers, cfg.Snapshot.Overwrite, logger)
			result, err := runner.Calculate(ctx, batchTickers, spec)
			if err != nil {
				return err
			}

			for _, r := range result.Results {
				fmt.Printf("%-6s  max pain %8.2f  current %8.2f  change %+6.2f%%  net premium %14.2f  (%s bias)\n",
					r.Ticker, r.MaxPainPrice, r.CurrentPrice, r.PctChange, r.NetPremium, r.PremiumBias)
			}

			logger.Info("calculation complete",
				zap.Int("total", result.Total),
				zap.Int("success", result.Success),
				zap.Int("not_found", result.NotFound),
				zap.Int("failed", result.Failed),
			)
			for _, e := range result.Errors {
				logger.Error("ticker error", zap.String("error", e))
			}

			if len(result.Results) == 0 {
				return fmt.Errorf("no results to report")
			}

			if !skipReport {
				writer := report.NewWriter(cfg.Output.Directory, cfg.Output.SortBy, cfg.Output.TopN, logger)
				generated, err := writer.Generate(result.Results, cfg.Output.Formats, result.RunID)
				if err != nil {
					return err
				}
				for format, path := range generated {
					fmt.Printf("%s report: %s\n", format, path)
				}
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d ticker(s) failed", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "override tickers from config")
	cmd.Flags().StringVar(&expiration, "expiration", "", "override expiration target (YYYY-MM-DD or next_monthly)")
	cmd.Flags().BoolVar(&skipReport, "no-report", false, "skip report generation")

	return cmd
}
