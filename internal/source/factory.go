package source

import (
	"fmt"

	"go.uber.org/zap"
)

// Kind identifies a data source variant. The set is closed: exactly
// one adapter is active per run and adapters are never mixed within a
// batch.
type Kind string

const (
	KindCBOE  Kind = "cboe"
	KindYahoo Kind = "yahoo"
)

// ParseKind validates a config-level source identifier.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCBOE, KindYahoo:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown data source %q (use cboe or yahoo)", ErrConfiguration, s)
}

// FactoryConfig carries everything needed to construct the active
// adapter. YahooClient may be nil when Kind is cboe.
type FactoryConfig struct {
	Kind        Kind
	Strategy    Strategy
	CBOE        CBOEConfig
	YahooClient QuoteOptionClient
}

// New constructs the adapter for the configured source.
func New(cfg FactoryConfig, logger *zap.Logger) (OptionSource, error) {
	switch cfg.Kind {
	case KindCBOE:
		return NewCBOEAdapter(cfg.CBOE, cfg.Strategy, logger), nil
	case KindYahoo:
		if cfg.YahooClient == nil {
			return nil, fmt.Errorf("%w: yahoo source requires an API client", ErrConfiguration)
		}
		return NewYahooAdapter(cfg.YahooClient, cfg.Strategy, logger), nil
	}
	return nil, fmt.Errorf("%w: unknown data source %q", ErrConfiguration, cfg.Kind)
}
