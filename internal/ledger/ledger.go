/*

This file contains the pure share/asset conversion functions used by the vault
accounting core. The ledger owns no state: callers pass the two live totals and
are responsible for applying the result in the rounding direction that favors
the vault (floor on amounts paid out, ceiling on shares burned to cover a
withdrawal).

*/

package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/gammaworks/yvm/internal/types"
)

var (
	ErrNilAmount      = errors.New("amount is nil")
	ErrNegativeAmount = errors.New("amount is negative")
)

// validateConversionInputs rejects nil or negative operands before any math.
func validateConversionInputs(amounts ...sdkmath.Int) error {
	for _, a := range amounts {
		if a.IsNil() {
			return ErrNilAmount
		}
		if a.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}

// SharesForAssets returns the shares minted for a deposit of assetAmount given
// the pre-deposit totals. The first deposit mints 1:1; afterwards the result is
// floor(assetAmount * totalShares / totalAssets), so depositors can never mint
// more than their pro-rata claim.
//
// A nonzero totalShares with zero totalAssets is a desynchronized ledger and
// fails loudly with ErrStateDesynced.
func SharesForAssets(assetAmount, totalShares, totalAssets sdkmath.Int) (sdkmath.Int, error) {
	if err := validateConversionInputs(assetAmount, totalShares, totalAssets); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if totalShares.IsZero() {
		return assetAmount, nil
	}
	if totalAssets.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrStateDesynced,
			fmt.Errorf("totalShares=%s with totalAssets=0", totalShares))
	}
	return assetAmount.Mul(totalShares).Quo(totalAssets), nil
}

// AssetsForShares returns the assets redeemable for shareAmount given the
// current totals: floor(shareAmount * totalAssets / totalShares). An empty
// vault converts to zero.
func AssetsForShares(shareAmount, totalShares, totalAssets sdkmath.Int) (sdkmath.Int, error) {
	if err := validateConversionInputs(shareAmount, totalShares, totalAssets); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return shareAmount.Mul(totalAssets).Quo(totalShares), nil
}

// SharesToCover returns the minimum shares that convert to at least
// assetAmount at current rates: ceil(assetAmount * totalShares / totalAssets).
// Withdrawals burn this amount so rounding never favors the withdrawer.
func SharesToCover(assetAmount, totalShares, totalAssets sdkmath.Int) (sdkmath.Int, error) {
	if err := validateConversionInputs(assetAmount, totalShares, totalAssets); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if totalAssets.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrStateDesynced,
			fmt.Errorf("totalShares=%s with totalAssets=0", totalShares))
	}
	numerator := assetAmount.Mul(totalShares)
	shares := numerator.Quo(totalAssets)
	if !numerator.Mod(totalAssets).IsZero() {
		shares = shares.AddRaw(1)
	}
	return shares, nil
}
