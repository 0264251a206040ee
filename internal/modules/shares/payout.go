package shares

import (
	"fmt"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// RedemptionAmounts computes the proportional payout for burning the given
// shares: per asset, shares * balance / totalShares with floor division, so
// the payout never exceeds what the vault holds.
func RedemptionAmounts(sharesBurned, totalShares uint64, balances domain.Balances) (domain.Balances, error) {
	var amounts domain.Balances

	if totalShares == 0 {
		return amounts, domain.PreconditionError("no shares outstanding")
	}
	if sharesBurned > totalShares {
		return amounts, domain.PreconditionError("redeeming %d of %d total shares", sharesBurned, totalShares)
	}

	for i, balance := range balances {
		amount, err := umath.MulDiv(sharesBurned, balance, totalShares)
		if err != nil {
			return domain.Balances{}, fmt.Errorf("payout for asset %d: %w", i, err)
		}
		amounts[i] = amount
	}

	return amounts, nil
}
