package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}

	if cfg.Source != "cboe" {
		t.Errorf("expected default source cboe, got %q", cfg.Source)
	}
	if cfg.Expiration.Target != "next_monthly" {
		t.Errorf("expected default target next_monthly, got %q", cfg.Expiration.Target)
	}
	if cfg.Expiration.Strategy != "nearest" {
		t.Errorf("expected default strategy nearest, got %q", cfg.Expiration.Strategy)
	}
	if cfg.Calc.Workers != 3 {
		t.Errorf("expected 3 workers by default, got %d", cfg.Calc.Workers)
	}
	if cfg.Output.TopN != 20 {
		t.Errorf("expected top_n 20 by default, got %d", cfg.Output.TopN)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
source: yahoo
tickers: [NVDA, AMD]
expiration:
  target: "2026-09-18"
  strategy: exact
snapshot:
  compress: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source != "yahoo" {
		t.Errorf("expected source yahoo, got %q", cfg.Source)
	}
	if len(cfg.Tickers) != 2 || cfg.Tickers[0] != "NVDA" {
		t.Errorf("unexpected tickers %v", cfg.Tickers)
	}
	if cfg.Expiration.Strategy != "exact" {
		t.Errorf("expected strategy exact, got %q", cfg.Expiration.Strategy)
	}
	if !cfg.Snapshot.Compress {
		t.Error("expected snapshot compression enabled")
	}
}

func TestValidateRejections(t *testing.T) {
	write := func(content string) string {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cases := []struct {
		name    string
		content string
	}{
		{"unknown source", "source: bloomberg\n"},
		{"unknown strategy", "expiration:\n  strategy: closest\n"},
		{"bad target date", "expiration:\n  target: tomorrow\n"},
		{"zero workers", "calc:\n  workers: 0\n"},
		{"unknown format", "output:\n  formats: [pdf]\n"},
		{"unknown sort key", "output:\n  sort_by: volume\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(write(tc.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
