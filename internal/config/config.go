package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/maxpain/internal/source"
)

type Config struct {
	Source     string           `mapstructure:"source"`
	Tickers    []string         `mapstructure:"tickers"`
	Expiration ExpirationConfig `mapstructure:"expiration"`
	CBOE       CBOEConfig       `mapstructure:"cboe"`
	Yahoo      YahooConfig      `mapstructure:"yahoo"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Calc       CalcConfig       `mapstructure:"calc"`
	Output     OutputConfig     `mapstructure:"output"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ExpirationConfig struct {
	// Target is an explicit YYYY-MM-DD date or "next_monthly".
	Target string `mapstructure:"target"`
	// Strategy is exact, nearest or next_available.
	Strategy string `mapstructure:"strategy"`
}

type CBOEConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type YahooConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type SnapshotConfig struct {
	Directory string `mapstructure:"directory"`
	Compress  bool   `mapstructure:"compress"`
	Overwrite bool   `mapstructure:"overwrite"`
}

type CalcConfig struct {
	Workers int `mapstructure:"workers"`
}

type OutputConfig struct {
	Directory string   `mapstructure:"directory"`
	Formats   []string `mapstructure:"formats"`
	SortBy    string   `mapstructure:"sort_by"`
	TopN      int      `mapstructure:"top_n"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("source", "cboe")
	v.SetDefault("expiration.target", source.NextMonthlySentinel)
	v.SetDefault("expiration.strategy", "nearest")
	v.SetDefault("cboe.data_dir", "data/raw/cboe")
	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("yahoo.timeout_sec", 30)
	v.SetDefault("yahoo.retry_count", 3)
	v.SetDefault("yahoo.retry_delay_sec", 2)
	v.SetDefault("yahoo.rate_per_second", 1)
	v.SetDefault("snapshot.directory", "data/raw/yahoo")
	v.SetDefault("snapshot.compress", false)
	v.SetDefault("snapshot.overwrite", false)
	v.SetDefault("calc.workers", 3)
	v.SetDefault("output.directory", "results")
	v.SetDefault("output.formats", []string{"csv", "json", "html"})
	v.SetDefault("output.sort_by", "net_premium")
	v.SetDefault("output.top_n", 20)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("MAXPAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects unknown enum values up front; a configuration error
// aborts the run before any ticker is processed.
func (c *Config) Validate() error {
	if _, err := source.ParseKind(c.Source); err != nil {
		return err
	}
	if _, err := source.ParseStrategy(c.Expiration.Strategy); err != nil {
		return err
	}
	if _, err := source.ParseExpirationSpec(c.Expiration.Target); err != nil {
		return err
	}
	if c.Calc.Workers < 1 {
		return fmt.Errorf("calc.workers must be >= 1")
	}
	for _, format := range c.Output.Formats {
		switch format {
		case "csv", "json", "html":
		default:
			return fmt.Errorf("unknown output format %q (use csv, json or html)", format)
		}
	}
	switch c.Output.SortBy {
	case "net_premium", "ticker", "pct_change":
	default:
		return fmt.Errorf("unknown output sort key %q (use net_premium, ticker or pct_change)", c.Output.SortBy)
	}
	return nil
}
