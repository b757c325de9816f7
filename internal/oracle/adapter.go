/*

This file contains the price oracle adapter. It wraps the two external price
feeds (pooled-asset valuation and reward-token valuation) behind a uniform
"price of one unit, X128 fixed point" query. Each feed reports a raw integer
price at its own decimal precision; the adapter normalizes everything to a
2^128 binary-point denominator so downstream arithmetic stays exact-integer.

Scale convention: priceX128 = raw * 2^128 / 10^decimals. Multiplications always
precede divisions to keep truncation to the final step.

*/

package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/types"
)

var oracleLogger = logger.GetForComponent("oracle_adapter")

var (
	ErrInvalidDecimals = errors.New("feed decimals are invalid")
	ErrInvalidPrice    = errors.New("feed price is invalid")
)

// OneX128 is the fixed-point unit: 2^128.
var OneX128 = sdkmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128))

// PriceSource is a single external price feed. Price returns the raw integer
// price of one token unit in the reference quote unit, at the feed's native
// decimal precision, together with the feed's last update time.
type PriceSource interface {
	Price(ctx context.Context) (raw sdkmath.Int, updatedAt time.Time, err error)
}

// Feed binds a price source to its decimal precision.
type Feed struct {
	Source   PriceSource
	Decimals int
}

// Adapter composes the pooled-asset feed and the reward-token feed and
// enforces a shared staleness window.
type Adapter struct {
	asset  Feed
	reward Feed
	maxAge time.Duration
	now    func() time.Time
}

// NewAdapter creates an adapter over the two feeds. maxAge bounds how old a
// feed's last update may be before queries fail with ErrStaleOracle.
func NewAdapter(asset, reward Feed, maxAge time.Duration) (*Adapter, error) {
	if asset.Source == nil || reward.Source == nil {
		return nil, errors.Join(types.ErrOracleUnavailable, errors.New("price source cannot be nil"))
	}
	if err := validateDecimals(asset.Decimals); err != nil {
		return nil, err
	}
	if err := validateDecimals(reward.Decimals); err != nil {
		return nil, err
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("max price age must be positive, got %s", maxAge)
	}
	return &Adapter{
		asset:  asset,
		reward: reward,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

func validateDecimals(decimals int) error {
	if decimals < 0 || decimals > 18 {
		return errors.Join(ErrInvalidDecimals, fmt.Errorf("decimals must be in [0, 18], got %d", decimals))
	}
	return nil
}

// AssetPriceX128 returns the pooled asset's price, X128 fixed point.
func (a *Adapter) AssetPriceX128(ctx context.Context) (sdkmath.Int, error) {
	return a.queryX128(ctx, a.asset, "asset")
}

// RewardPriceX128 returns the reward token's price, X128 fixed point.
func (a *Adapter) RewardPriceX128(ctx context.Context) (sdkmath.Int, error) {
	return a.queryX128(ctx, a.reward, "reward")
}

// Snapshot queries both feeds and returns an ephemeral snapshot for a single
// accounting computation. Both prices come from the same query point so a
// harvest's fee valuation is internally consistent.
func (a *Adapter) Snapshot(ctx context.Context) (types.PriceSnapshot, error) {
	assetPrice, err := a.AssetPriceX128(ctx)
	if err != nil {
		return types.PriceSnapshot{}, err
	}
	rewardPrice, err := a.RewardPriceX128(ctx)
	if err != nil {
		return types.PriceSnapshot{}, err
	}
	return types.PriceSnapshot{
		AssetPriceX128:  assetPrice,
		RewardPriceX128: rewardPrice,
		ObservedAt:      a.now(),
	}, nil
}

// RewardValueInAsset converts a reward-token amount into its pooled-asset
// equivalent at the snapshot's prices:
// floor(amount * rewardPriceX128 / assetPriceX128). The X128 scales cancel, so
// the result is in pooled-asset base units.
func RewardValueInAsset(rewardAmount sdkmath.Int, snapshot types.PriceSnapshot) (sdkmath.Int, error) {
	if rewardAmount.IsNil() || rewardAmount.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidPrice, errors.New("reward amount is nil or negative"))
	}
	if snapshot.AssetPriceX128.IsNil() || !snapshot.AssetPriceX128.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidPrice, errors.New("asset price must be positive"))
	}
	if snapshot.RewardPriceX128.IsNil() || snapshot.RewardPriceX128.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidPrice, errors.New("reward price is nil or negative"))
	}
	return rewardAmount.Mul(snapshot.RewardPriceX128).Quo(snapshot.AssetPriceX128), nil
}

// queryX128 fetches one feed, validates it, and normalizes to X128.
func (a *Adapter) queryX128(ctx context.Context, feed Feed, name string) (sdkmath.Int, error) {
	raw, updatedAt, err := feed.Source.Price(ctx)
	if err != nil {
		oracleLogger.Error().Err(err).Str("feed", name).Msg("Price feed query failed")
		return sdkmath.ZeroInt(), errors.Join(types.ErrOracleUnavailable,
			fmt.Errorf("%s feed query failed: %w", name, err))
	}
	if raw.IsNil() || !raw.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidPrice,
			fmt.Errorf("%s feed returned non-positive price", name))
	}
	if age := a.now().Sub(updatedAt); age > a.maxAge {
		oracleLogger.Warn().
			Str("feed", name).
			Dur("age", age).
			Dur("maxAge", a.maxAge).
			Msg("Price feed is stale")
		return sdkmath.ZeroInt(), errors.Join(types.ErrStaleOracle,
			fmt.Errorf("%s feed is %s old, max age %s", name, age, a.maxAge))
	}

	// Multiply by 2^128 first, divide by the decimal scale last.
	scale := sdkmath.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(feed.Decimals)), nil))
	priceX128 := raw.Mul(OneX128).Quo(scale)

	oracleLogger.Debug().
		Str("feed", name).
		Str("raw", raw.String()).
		Int("decimals", feed.Decimals).
		Msg("Normalized feed price to X128")

	return priceX128, nil
}
