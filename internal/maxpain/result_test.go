package maxpain

import (
	"errors"
	"math"
	"testing"

	"github.com/dgnsrekt/maxpain/internal/chain"
)

func TestEvaluateScenario(t *testing.T) {
	result, err := Evaluate("NVDA", 105, scenarioChain())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Ticker != "NVDA" {
		t.Errorf("expected ticker NVDA, got %s", result.Ticker)
	}
	if result.MaxPainPrice != 100 {
		t.Errorf("expected max pain 100, got %g", result.MaxPainPrice)
	}
	if result.MinPayout != 200000 {
		t.Errorf("expected min payout 200000, got %g", result.MinPayout)
	}

	// Call OI below 100: 100 contracts. Put OI above 100: 100
	// contracts. Net premium cancels exactly.
	if result.NetPremium != 0 {
		t.Errorf("expected net premium 0, got %g", result.NetPremium)
	}
	if result.PremiumBias != BiasNeutral {
		t.Errorf("expected neutral bias, got %s", result.PremiumBias)
	}

	wantPct := (100.0 - 105.0) / 105.0 * 100
	if math.Abs(result.PctChange-wantPct) > 1e-9 {
		t.Errorf("expected pct change %g, got %g", wantPct, result.PctChange)
	}
	if result.TotalCallOI != 150 || result.TotalPutOI != 150 {
		t.Errorf("expected 150/150 total OI, got %d/%d", result.TotalCallOI, result.TotalPutOI)
	}
	if result.ComputedAt.IsZero() {
		t.Error("expected ComputedAt to be set")
	}
}

func TestEvaluateBiasSign(t *testing.T) {
	callHeavy := chain.Chain{
		{Strike: 90, CallOI: 500, PutOI: 0},
		{Strike: 100, CallOI: 0, PutOI: 0},
		{Strike: 110, CallOI: 0, PutOI: 10},
	}
	putHeavy := chain.Chain{
		{Strike: 90, CallOI: 10, PutOI: 0},
		{Strike: 100, CallOI: 0, PutOI: 0},
		{Strike: 110, CallOI: 0, PutOI: 500},
	}

	for _, tc := range []struct {
		name  string
		chain chain.Chain
		bias  Bias
	}{
		{"call heavy", callHeavy, BiasCall},
		{"put heavy", putHeavy, BiasPut},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Evaluate("TEST", 100, tc.chain)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if result.PremiumBias != tc.bias {
				t.Errorf("expected %s bias, got %s (net premium %g)",
					tc.bias, result.PremiumBias, result.NetPremium)
			}
			switch tc.bias {
			case BiasCall:
				if result.NetPremium <= 0 {
					t.Errorf("call bias requires positive net premium, got %g", result.NetPremium)
				}
			case BiasPut:
				if result.NetPremium >= 0 {
					t.Errorf("put bias requires negative net premium, got %g", result.NetPremium)
				}
			}
		})
	}
}

func TestEvaluateRejectsNonPositivePrice(t *testing.T) {
	for _, price := range []float64{0, -10} {
		_, err := Evaluate("TEST", price, scenarioChain())
		if err == nil {
			t.Fatalf("expected error for current price %g", price)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	}
}

func TestNetPremiumExcludesMaxPainStrike(t *testing.T) {
	// OI sitting exactly at the max pain strike counts on neither side.
	c := chain.Chain{
		{Strike: 90, CallOI: 10, PutOI: 0},
		{Strike: 100, CallOI: 1000, PutOI: 1000},
		{Strike: 110, CallOI: 0, PutOI: 10},
	}
	net := NetPremium(c, 100)
	if net != 0 {
		t.Errorf("expected net premium 0, got %g", net)
	}
}
