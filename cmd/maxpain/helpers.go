package main

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/config"
	"github.com/dgnsrekt/maxpain/internal/snapshot"
	"github.com/dgnsrekt/maxpain/internal/source"
	"github.com/dgnsrekt/maxpain/internal/yahoo"
)

// buildSource constructs the single active adapter for this run from
// config. ConfigurationError here aborts before any ticker is touched.
func buildSource(cfg *config.Config, logger *zap.Logger) (source.OptionSource, error) {
	kind, err := source.ParseKind(cfg.Source)
	if err != nil {
		return nil, err
	}
	strategy, err := source.ParseStrategy(cfg.Expiration.Strategy)
	if err != nil {
		return nil, err
	}

	factoryCfg := source.FactoryConfig{
		Kind:     kind,
		Strategy: strategy,
		CBOE:     source.CBOEConfig{DataDir: cfg.CBOE.DataDir},
	}
	if kind == source.KindYahoo {
		factoryCfg.YahooClient = yahoo.NewClient(
			cfg.Yahoo.BaseURL,
			cfg.Yahoo.RatePerSecond,
			time.Duration(cfg.Yahoo.TimeoutSec)*time.Second,
			time.Duration(cfg.Yahoo.RetryDelaySec)*time.Second,
			cfg.Yahoo.RetryCount,
			logger,
		)
	}

	return source.New(factoryCfg, logger)
}

func buildStore(cfg *config.Config) *snapshot.Store {
	return snapshot.NewStore(cfg.Snapshot.Directory, cfg.Snapshot.Compress)
}

// effectiveTickers applies the --tickers override on top of config.
func effectiveTickers(override []string) ([]string, error) {
	tickers := cfg.Tickers
	if len(override) > 0 {
		tickers = override
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers configured (set tickers in config or pass --tickers)")
	}

	upper := make([]string, len(tickers))
	for i, t := range tickers {
		upper[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return upper, nil
}

// effectiveExpiration applies the --expiration override on top of
// config and parses the result.
func effectiveExpiration(override string) (source.ExpirationSpec, error) {
	target := cfg.Expiration.Target
	if override != "" {
		target = override
	}
	return source.ParseExpirationSpec(target)
}
