/*

This file contains the ephemeral price snapshot type produced by the oracle
adapter. Prices are fixed-point with an explicit 2^128 denominator so downstream
arithmetic is exact-integer: multiply first, divide last.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PriceSnapshot holds the two composed oracle prices at a single query point.
// It is computed on demand and never persisted.
type PriceSnapshot struct {
	AssetPriceX128  sdkmath.Int `json:"asset_price_x128"`  // Pooled asset, quote units per unit, X128
	RewardPriceX128 sdkmath.Int `json:"reward_price_x128"` // Reward token, quote units per unit, X128
	ObservedAt      time.Time   `json:"observed_at"`
}
