/*

This file contains the fee engine. On each harvest it splits the freshly
claimed reward amount into a performance-fee portion and a net portion at the
current fee rate, values the fee portion in pooled-asset terms for accrual, and
swaps the net portion into the pooled asset for restaking. The fee rate is
bounded by a hard ceiling and a rate change never applies retroactively.

*/

package fees

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/oracle"
	"github.com/gammaworks/yvm/internal/types"
)

var feeLogger = logger.GetForComponent("fee_engine")

const bpsDenominator = 10_000

var (
	ErrNilRouter       = errors.New("swap router is nil")
	ErrInvalidFeeRate  = errors.New("fee rate is invalid")
	ErrInvalidSlippage = errors.New("slippage tolerance is invalid")
)

// SwapRouter is the external router used to convert harvested reward tokens
// into the pooled asset. The engine always supplies a minimum-output guard.
type SwapRouter interface {
	SwapExactIn(ctx context.Context, tokenIn, tokenOut string, amountIn, minAmountOut sdkmath.Int) (sdkmath.Int, error)
}

// Split is the accounting outcome of routing one claimed reward amount.
type Split struct {
	FeeRewards     sdkmath.Int // Fee portion, reward-token terms
	NetRewards     sdkmath.Int // Compounded portion, reward-token terms
	FeeAssets      sdkmath.Int // Fee portion valued in the pooled asset
	RestakedAssets sdkmath.Int // Pooled asset actually received from the swap
	DustAssets     sdkmath.Int // Valuation truncation absorbed by the vault
	FeeRateBps     int64       // Rate applied to this split
}

// Engine computes and routes performance fees.
type Engine struct {
	router      SwapRouter
	rewardDenom string
	assetDenom  string
	rateBps     int64
	ceilingBps  int64
	slippageBps int64
}

// NewEngine creates a fee engine. rateBps must not exceed ceilingBps, and the
// slippage tolerance applies to the min-out guard on every compounding swap.
func NewEngine(router SwapRouter, rewardDenom, assetDenom string, rateBps, ceilingBps, slippageBps int64) (*Engine, error) {
	if router == nil {
		return nil, ErrNilRouter
	}
	if rewardDenom == "" || assetDenom == "" {
		return nil, errors.New("reward and asset denoms cannot be empty")
	}
	if ceilingBps < 0 || ceilingBps > bpsDenominator {
		return nil, errors.Join(ErrInvalidFeeRate, fmt.Errorf("ceiling %d bps out of [0, %d]", ceilingBps, bpsDenominator))
	}
	if rateBps < 0 || rateBps > ceilingBps {
		return nil, errors.Join(types.ErrFeeOutOfBounds, fmt.Errorf("rate %d bps exceeds ceiling %d bps", rateBps, ceilingBps))
	}
	if slippageBps < 0 || slippageBps >= bpsDenominator {
		return nil, errors.Join(ErrInvalidSlippage, fmt.Errorf("slippage %d bps out of [0, %d)", slippageBps, bpsDenominator))
	}
	return &Engine{
		router:      router,
		rewardDenom: rewardDenom,
		assetDenom:  assetDenom,
		rateBps:     rateBps,
		ceilingBps:  ceilingBps,
		slippageBps: slippageBps,
	}, nil
}

// RateBps returns the current performance-fee rate.
func (e *Engine) RateBps() int64 {
	return e.rateBps
}

// CeilingBps returns the configured fee ceiling.
func (e *Engine) CeilingBps() int64 {
	return e.ceilingBps
}

// ChangeFee atomically replaces the fee rate. Fails with FeeOutOfBounds when
// newRateBps exceeds the ceiling or is negative. The new rate applies only to
// future harvests.
func (e *Engine) ChangeFee(newRateBps int64) error {
	if newRateBps < 0 || newRateBps > e.ceilingBps {
		return errors.Join(types.ErrFeeOutOfBounds,
			fmt.Errorf("rate %d bps outside [0, %d]", newRateBps, e.ceilingBps))
	}
	old := e.rateBps
	e.rateBps = newRateBps
	feeLogger.Info().
		Int64("oldRateBps", old).
		Int64("newRateBps", newRateBps).
		Msg("Performance fee rate changed")
	return nil
}

// SplitRewards computes the fee and net portions of a claimed reward amount at
// the current rate: fee = floor(claimed * rateBps / 10000), net = claimed - fee.
func (e *Engine) SplitRewards(claimed sdkmath.Int) (fee, net sdkmath.Int, err error) {
	if claimed.IsNil() || claimed.IsNegative() {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), errors.New("claimed amount is nil or negative")
	}
	fee = claimed.MulRaw(e.rateBps).QuoRaw(bpsDenominator)
	net = claimed.Sub(fee)
	return fee, net, nil
}

// Route splits a claimed reward amount, values the fee in pooled-asset terms
// at the snapshot's prices, and swaps the net portion into the pooled asset
// with a min-out guard of (1 - slippage) of its oracle value. It performs no
// vault accounting itself; the caller stakes RestakedAssets and accrues
// FeeAssets.
func (e *Engine) Route(ctx context.Context, claimed sdkmath.Int, snapshot types.PriceSnapshot) (Split, error) {
	fee, net, err := e.SplitRewards(claimed)
	if err != nil {
		return Split{}, err
	}

	feeAssets, err := oracle.RewardValueInAsset(fee, snapshot)
	if err != nil {
		return Split{}, fmt.Errorf("fee valuation failed: %w", err)
	}
	expectedNetAssets, err := oracle.RewardValueInAsset(net, snapshot)
	if err != nil {
		return Split{}, fmt.Errorf("net valuation failed: %w", err)
	}
	totalAssets, err := oracle.RewardValueInAsset(claimed, snapshot)
	if err != nil {
		return Split{}, fmt.Errorf("claimed valuation failed: %w", err)
	}

	minOut := expectedNetAssets.MulRaw(bpsDenominator - e.slippageBps).QuoRaw(bpsDenominator)
	received, err := e.router.SwapExactIn(ctx, e.rewardDenom, e.assetDenom, net, minOut)
	if err != nil {
		feeLogger.Error().Err(err).
			Str("amountIn", net.String()).
			Str("minOut", minOut.String()).
			Msg("Compounding swap failed")
		return Split{}, errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("swap of %s %s failed: %w", net, e.rewardDenom, err))
	}
	if received.IsNil() || received.LT(minOut) {
		return Split{}, errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("router returned %s, below min out %s", received, minOut))
	}

	// The double floor (reward split, then valuation) leaves dust relative to
	// valuing the whole claim at once. It stays with the vault.
	dust := totalAssets.Sub(feeAssets).Sub(expectedNetAssets)

	split := Split{
		FeeRewards:     fee,
		NetRewards:     net,
		FeeAssets:      feeAssets,
		RestakedAssets: received,
		DustAssets:     dust,
		FeeRateBps:     e.rateBps,
	}

	feeLogger.Info().
		Str("claimed", claimed.String()).
		Str("feeRewards", fee.String()).
		Str("netRewards", net.String()).
		Str("feeAssets", feeAssets.String()).
		Str("restakedAssets", received.String()).
		Int64("rateBps", e.rateBps).
		Msg("Routed harvest through fee engine")

	return split, nil
}
