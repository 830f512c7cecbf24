package maxpain

import "github.com/dgnsrekt/maxpain/internal/chain"

// ContractMultiplier is the per-contract share count applied when
// converting open interest into a currency payout.
const ContractMultiplier = 100

// PayoutAt evaluates the aggregate option-holder payout if the
// underlying settles at price. Calls are in the money below the
// settlement price, puts above it; a row whose strike equals the
// settlement price has no intrinsic value and contributes nothing.
func PayoutAt(price float64, c chain.Chain) (total, callPayout, putPayout float64) {
	for _, row := range c {
		switch {
		case row.Strike < price:
			callPayout += (price - row.Strike) * float64(row.CallOI) * ContractMultiplier
		case row.Strike > price:
			putPayout += (row.Strike - price) * float64(row.PutOI) * ContractMultiplier
		}
	}
	return callPayout + putPayout, callPayout, putPayout
}
