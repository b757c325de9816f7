/*
This file contains common utility functions for converting vault amounts and
X128 fixed-point prices into display values for the API surface. Accounting
always stays in integers; float64 exists only at the presentation edge.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrNotFinite      = errors.New("value is not finite")
)

var oneX128 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 128))

// PriceX128ToFloat64 converts an X128 fixed-point price to a display float.
// Never used for accounting; precision loss is acceptable at this edge.
func PriceX128ToFloat64(priceX128 sdkmath.Int) (float64, error) {
	if priceX128.IsNil() {
		return 0, ErrAmountNil
	}
	if priceX128.IsNegative() {
		return 0, ErrAmountNegative
	}

	value := new(big.Float).SetInt(priceX128.BigInt())
	result, _ := new(big.Float).Quo(value, oneX128).Float64()

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}

	return result, nil
}

// BpsToPercent converts a basis-point rate to a display percentage.
func BpsToPercent(bps int64) float64 {
	return float64(bps) / 100.0
}
