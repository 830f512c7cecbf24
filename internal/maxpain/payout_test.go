package maxpain

import (
	"testing"

	"github.com/dgnsrekt/maxpain/internal/chain"
)

// scenarioChain is the reference chain used across the engine tests.
func scenarioChain() chain.Chain {
	return chain.Chain{
		{Strike: 90, CallOI: 100, PutOI: 0},
		{Strike: 100, CallOI: 50, PutOI: 50},
		{Strike: 110, CallOI: 0, PutOI: 100},
	}
}

func TestPayoutAtKnownValues(t *testing.T) {
	c := scenarioChain()

	cases := []struct {
		price               float64
		total, calls, puts  float64
	}{
		{90, 250000, 0, 250000},
		{100, 200000, 100000, 100000},
		{110, 250000, 250000, 0},
	}

	for _, tc := range cases {
		total, calls, puts := PayoutAt(tc.price, c)
		if total != tc.total {
			t.Errorf("payout at %g: expected total %g, got %g", tc.price, tc.total, total)
		}
		if calls != tc.calls {
			t.Errorf("payout at %g: expected call payout %g, got %g", tc.price, tc.calls, calls)
		}
		if puts != tc.puts {
			t.Errorf("payout at %g: expected put payout %g, got %g", tc.price, tc.puts, puts)
		}
	}
}

func TestPayoutTotalIsSumOfSides(t *testing.T) {
	c := scenarioChain()
	for _, price := range []float64{50, 90, 95, 100, 105, 110, 500} {
		total, calls, puts := PayoutAt(price, c)
		if total != calls+puts {
			t.Errorf("at price %g: total %g != calls %g + puts %g", price, total, calls, puts)
		}
	}
}

func TestAtTheMoneyRowContributesNothing(t *testing.T) {
	// A single-row chain evaluated at its own strike pays out zero on
	// both sides regardless of open interest.
	c := chain.Chain{{Strike: 100, CallOI: 9999, PutOI: 9999}}
	total, calls, puts := PayoutAt(100, c)
	if total != 0 || calls != 0 || puts != 0 {
		t.Errorf("expected zero payout at the money, got total=%g calls=%g puts=%g", total, calls, puts)
	}
}
