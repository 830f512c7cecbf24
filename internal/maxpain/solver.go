package maxpain

import "github.com/dgnsrekt/maxpain/internal/chain"

// Solve finds the max pain price: the listed strike at which the total
// payout across the chain is minimized. Candidates are restricted to
// the chain's own strikes; the payout curve is piecewise linear with
// kinks only at listed strikes, so the minimum is always attained at
// one of them. When several strikes tie for the minimum payout the
// lowest strike wins.
func Solve(c chain.Chain) (maxPainPrice, minPayout float64, err error) {
	if err := chain.Validate(c); err != nil {
		return 0, 0, err
	}

	for i, row := range c {
		total, _, _ := PayoutAt(row.Strike, c)
		if i == 0 || total < minPayout || (total == minPayout && row.Strike < maxPainPrice) {
			maxPainPrice = row.Strike
			minPayout = total
		}
	}
	return maxPainPrice, minPayout, nil
}
