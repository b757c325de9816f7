/*

This file contains the vault accounting core. It orchestrates deposits,
withdrawals, harvests, and fee withdrawals as atomic transitions over the
conversion ledger, the position manager, and the fee engine, and it enforces
the deposit cap and share/asset invariants.

Every mutating operation runs to completion under a single per-vault mutex:
no operation may observe a partially updated totalShares/totalStakedAssets
pair, and re-entrant calls during an in-flight external call simply queue on
the mutex. Internal accounting is only mutated after every external call of an
operation has succeeded, so a failed operation commits nothing.

*/

package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/gammaworks/yvm/internal/fees"
	"github.com/gammaworks/yvm/internal/ledger"
	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/oracle"
	"github.com/gammaworks/yvm/internal/position"
	"github.com/gammaworks/yvm/internal/types"
)

// Config wires the vault core's collaborators and initial parameters.
type Config struct {
	Custody   TokenCustody
	Converter DerivativeConverter
	Position  *position.Manager
	Fees      *fees.Engine
	Oracle    *oracle.Adapter

	AssetDenom      string
	RewardDenom     string
	DerivativeDenom string

	Admin        string
	FeeRecipient string
	DepositCap   sdkmath.Int
}

// Vault is a single vault instance. All exported methods are safe for
// concurrent use; mutating operations are totally ordered by the internal
// mutex.
type Vault struct {
	mu     sync.Mutex
	logger zerolog.Logger

	custody   TokenCustody
	converter DerivativeConverter
	position  *position.Manager
	fees      *fees.Engine
	oracle    *oracle.Adapter

	assetDenom      string
	rewardDenom     string
	derivativeDenom string

	admin        string
	feeRecipient string

	depositCap       sdkmath.Int
	totalShares      sdkmath.Int
	accruedFeeAssets sdkmath.Int // Pooled-asset valuation of fees owed
	feeRewards       sdkmath.Int // Reward tokens backing the accrued fees

	// Carry-over from harvests that failed after an irreversible external
	// step: claimed-but-unrouted reward tokens and swapped-but-unstaked
	// assets, both sitting in custody until the next harvest folds them in.
	pendingRewards     sdkmath.Int
	pendingStakeAssets sdkmath.Int

	balances map[string]sdkmath.Int
}

// New creates a vault with zero shares and assets.
func New(cfg Config) (*Vault, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("vault configuration validation failed: %w", err)
	}
	v := &Vault{
		logger:           logger.GetForComponent("vault_core"),
		custody:          cfg.Custody,
		converter:        cfg.Converter,
		position:         cfg.Position,
		fees:             cfg.Fees,
		oracle:           cfg.Oracle,
		assetDenom:       cfg.AssetDenom,
		rewardDenom:      cfg.RewardDenom,
		derivativeDenom:  cfg.DerivativeDenom,
		admin:            cfg.Admin,
		feeRecipient:     cfg.FeeRecipient,
		depositCap:       cfg.DepositCap,
		totalShares:      sdkmath.ZeroInt(),
		accruedFeeAssets: sdkmath.ZeroInt(),
		feeRewards:       sdkmath.ZeroInt(),

		pendingRewards:     sdkmath.ZeroInt(),
		pendingStakeAssets: sdkmath.ZeroInt(),

		balances: make(map[string]sdkmath.Int),
	}
	v.logger.Info().
		Str("assetDenom", v.assetDenom).
		Str("rewardDenom", v.rewardDenom).
		Str("depositCap", v.depositCap.String()).
		Int64("feeRateBps", v.fees.RateBps()).
		Msg("Vault initialized")
	return v, nil
}

func validateConfig(cfg Config) error {
	if cfg.Custody == nil {
		return errors.New("custody cannot be nil")
	}
	if cfg.Converter == nil {
		return errors.New("derivative converter cannot be nil")
	}
	if cfg.Position == nil {
		return errors.New("position manager cannot be nil")
	}
	if cfg.Fees == nil {
		return errors.New("fee engine cannot be nil")
	}
	if cfg.Oracle == nil {
		return errors.New("oracle adapter cannot be nil")
	}
	if cfg.AssetDenom == "" || cfg.RewardDenom == "" || cfg.DerivativeDenom == "" {
		return errors.New("token denoms cannot be empty")
	}
	if cfg.Admin == "" {
		return errors.New("admin identity cannot be empty")
	}
	if cfg.FeeRecipient == "" {
		return errors.New("fee recipient cannot be empty")
	}
	if cfg.DepositCap.IsNil() || cfg.DepositCap.IsNegative() {
		return errors.New("deposit cap must be a non-negative integer")
	}
	return nil
}

// Deposit pulls assetAmount of the pooled asset from caller, stakes it, and
// mints proportional shares to receiver. Shares are computed on pre-deposit
// totals, so the deposit itself grants no front-running advantage. Fails with
// DepositCapExceeded if the staked total would pass the cap.
func (v *Vault) Deposit(ctx context.Context, caller, receiver string, assetAmount sdkmath.Int) (sdkmath.Int, error) {
	if err := validateAmount(assetAmount); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if caller == "" || receiver == "" {
		return sdkmath.ZeroInt(), types.ErrInvalidReceiver
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.custody.TransferIn(ctx, v.assetDenom, caller, assetAmount); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("asset transfer from %s failed: %w", caller, err))
	}

	shares, err := v.depositLocked(ctx, receiver, assetAmount)
	if err != nil {
		// The pull succeeded but a later step did not; return the assets so the
		// failed operation leaves no trace.
		if refundErr := v.custody.TransferOut(ctx, v.assetDenom, caller, assetAmount); refundErr != nil {
			v.logger.Error().Err(refundErr).
				Str("caller", caller).
				Str("amount", assetAmount.String()).
				Msg("CRITICAL: deposit refund failed, assets stranded in custody")
		}
		return sdkmath.ZeroInt(), err
	}
	return shares, nil
}

// DepositDerivative converts a secondary-asset amount into the pooled asset
// through the external pool's liquidity path, then proceeds as Deposit with
// the resulting amount. Shares accrue to the caller.
func (v *Vault) DepositDerivative(ctx context.Context, caller string, derivativeAmount sdkmath.Int) (sdkmath.Int, error) {
	if err := validateAmount(derivativeAmount); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if caller == "" {
		return sdkmath.ZeroInt(), types.ErrInvalidReceiver
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.custody.TransferIn(ctx, v.derivativeDenom, caller, derivativeAmount); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("derivative transfer from %s failed: %w", caller, err))
	}

	assetAmount, err := v.converter.AddLiquidity(ctx, derivativeAmount)
	if err != nil {
		if refundErr := v.custody.TransferOut(ctx, v.derivativeDenom, caller, derivativeAmount); refundErr != nil {
			v.logger.Error().Err(refundErr).Str("caller", caller).
				Msg("CRITICAL: derivative refund failed after conversion error")
		}
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("liquidity provision failed: %w", err))
	}
	if assetAmount.IsNil() || !assetAmount.IsPositive() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			errors.New("pool returned non-positive pooled-asset amount"))
	}

	shares, err := v.depositLocked(ctx, caller, assetAmount)
	if err != nil {
		// Unwind the conversion so the caller gets derivative back.
		if derivativeOut, convErr := v.converter.RemoveLiquidity(ctx, assetAmount); convErr != nil {
			v.logger.Error().Err(convErr).Str("caller", caller).
				Msg("CRITICAL: conversion unwind failed, pooled assets stranded in custody")
		} else if refundErr := v.custody.TransferOut(ctx, v.derivativeDenom, caller, derivativeOut); refundErr != nil {
			v.logger.Error().Err(refundErr).Str("caller", caller).
				Msg("CRITICAL: derivative refund failed after unwind")
		}
		return sdkmath.ZeroInt(), err
	}
	return shares, nil
}

// depositLocked performs the cap check, stake, and mint for assets already in
// vault custody. Caller holds the mutex.
func (v *Vault) depositLocked(ctx context.Context, receiver string, assetAmount sdkmath.Int) (sdkmath.Int, error) {
	staked := v.position.Staked()

	if staked.Add(assetAmount).GT(v.depositCap) {
		return sdkmath.ZeroInt(), errors.Join(types.ErrDepositCapExceeded,
			fmt.Errorf("staked %s + deposit %s exceeds cap %s", staked, assetAmount, v.depositCap))
	}

	// Shares come from pre-transition totals; floor favors the vault.
	shares, err := ledger.SharesForAssets(assetAmount, v.totalShares, staked)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrZeroAmount,
			fmt.Errorf("deposit of %s converts to zero shares", assetAmount))
	}

	if err := v.position.Stake(ctx, assetAmount); err != nil {
		return sdkmath.ZeroInt(), err
	}

	v.mint(receiver, shares)

	v.logger.Info().
		Str("receiver", receiver).
		Str("assets", assetAmount.String()).
		Str("shares", shares.String()).
		Str("totalShares", v.totalShares.String()).
		Str("totalStakedAssets", v.position.Staked().String()).
		Msg("Deposit completed")

	return shares, nil
}

// Withdraw unstakes assetAmount, burns the minimum shares that cover it at
// current rates (rounded up, in the vault's favor), and transfers the assets
// to receiver. The caller must be the share owner. If the burn empties the
// share supply, any residual staked dust is swept to the receiver so an empty
// vault holds no assets. Returns the assets actually paid out, which exceeds
// assetAmount on a sweep, and the shares burned.
func (v *Vault) Withdraw(ctx context.Context, caller, receiver, owner string, assetAmount sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	assetOut, shares, err := v.withdrawLocked(ctx, caller, receiver, owner, assetAmount)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}

	if err := v.custody.TransferOut(ctx, v.assetDenom, receiver, assetOut); err != nil {
		// Restake so accounting and the external position stay aligned.
		if restakeErr := v.position.Stake(ctx, assetOut); restakeErr != nil {
			v.logger.Error().Err(restakeErr).
				Msg("CRITICAL: restake after failed payout also failed, position desynced")
		} else {
			v.mint(owner, shares)
		}
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("asset transfer to %s failed: %w", receiver, err))
	}
	return assetOut, shares, nil
}

// WithdrawDerivative is the withdrawal counterpart of DepositDerivative: it
// unstakes assetAmount, converts it back to the secondary asset through the
// pool, and transfers the proceeds to receiver. Returns the pooled assets
// actually redeemed and the shares burned.
func (v *Vault) WithdrawDerivative(ctx context.Context, caller, receiver, owner string, assetAmount sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	assetOut, shares, err := v.withdrawLocked(ctx, caller, receiver, owner, assetAmount)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}

	derivativeOut, err := v.converter.RemoveLiquidity(ctx, assetOut)
	if err != nil {
		if restakeErr := v.position.Stake(ctx, assetOut); restakeErr != nil {
			v.logger.Error().Err(restakeErr).
				Msg("CRITICAL: restake after failed conversion also failed, position desynced")
		} else {
			v.mint(owner, shares)
		}
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("liquidity removal failed: %w", err))
	}

	if err := v.custody.TransferOut(ctx, v.derivativeDenom, receiver, derivativeOut); err != nil {
		v.logger.Error().Err(err).Str("receiver", receiver).
			Msg("CRITICAL: derivative payout failed after conversion, proceeds stranded in custody")
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("derivative transfer to %s failed: %w", receiver, err))
	}
	return assetOut, shares, nil
}

// withdrawLocked validates, burns, and unstakes; the caller pays out and holds
// the mutex. Returns the unstaked asset amount and the shares burned.
func (v *Vault) withdrawLocked(ctx context.Context, caller, receiver, owner string, assetAmount sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	zero := sdkmath.ZeroInt()
	if err := validateAmount(assetAmount); err != nil {
		return zero, zero, err
	}
	if caller == "" || receiver == "" || owner == "" {
		return zero, zero, types.ErrInvalidReceiver
	}
	if caller != owner {
		return zero, zero, errors.Join(types.ErrUnauthorized,
			fmt.Errorf("caller %s cannot burn shares owned by %s", caller, owner))
	}

	staked := v.position.Staked()

	shares, err := ledger.SharesToCover(assetAmount, v.totalShares, staked)
	if err != nil {
		return zero, zero, err
	}
	// A withdrawal must burn something. A zero cover only happens when the
	// supply is empty, and letting it through would trip the sweep below on
	// 0 == 0 and hand the whole position to a shareless caller.
	if shares.IsZero() {
		return zero, zero, errors.Join(types.ErrInsufficientShares,
			fmt.Errorf("withdrawal of %s covers zero shares, supply is %s", assetAmount, v.totalShares))
	}
	balance := v.balanceOf(owner)
	if balance.LT(shares) {
		return zero, zero, errors.Join(types.ErrInsufficientShares,
			fmt.Errorf("owner %s holds %s shares, needs %s", owner, balance, shares))
	}

	assetOut := assetAmount
	// Last-holder sweep: burning the whole supply must leave zero staked assets
	// (empty vault invariant), so the residual goes out with this withdrawal.
	if v.totalShares.IsPositive() && shares.Equal(v.totalShares) {
		assetOut = staked
	}

	if err := v.position.Unstake(ctx, assetOut); err != nil {
		return zero, zero, err
	}

	v.burn(owner, shares)

	v.logger.Info().
		Str("owner", owner).
		Str("receiver", receiver).
		Str("assets", assetOut.String()).
		Str("shares", shares.String()).
		Str("totalShares", v.totalShares.String()).
		Str("totalStakedAssets", v.position.Staked().String()).
		Msg("Withdrawal completed")

	return assetOut, shares, nil
}

// HarvestFees claims accrued rewards from the staking target, routes them
// through the fee engine, restakes the net proceeds, and accrues the fee.
// Permissionless: it only ever benefits holders and the fee recipient. A zero
// claim is a no-op and returns a nil record.
//
// Claims settle at the gauge before routing, and routing can fail after the
// swap settles, so partial progress is carried in pendingRewards and
// pendingStakeAssets and folded into the next harvest rather than lost.
func (v *Vault) HarvestFees(ctx context.Context) (*types.HarvestRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// No shares means no one to compound for. Leave the rewards unclaimed at
	// the gauge; restaking into an empty supply would create assets that no
	// share backs.
	if v.totalShares.IsZero() {
		v.logger.Debug().Msg("No shares outstanding, harvest skipped")
		return nil, nil
	}

	claimed, err := v.position.ClaimRewards(ctx)
	if err != nil {
		return nil, err
	}
	v.pendingRewards = v.pendingRewards.Add(claimed)
	if v.pendingRewards.IsZero() && v.pendingStakeAssets.IsZero() {
		v.logger.Debug().Msg("No rewards accrued, harvest is a no-op")
		return nil, nil
	}

	snapshot, err := v.oracle.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	routed := v.pendingRewards
	split := fees.Split{
		FeeRewards:     sdkmath.ZeroInt(),
		NetRewards:     sdkmath.ZeroInt(),
		FeeAssets:      sdkmath.ZeroInt(),
		RestakedAssets: sdkmath.ZeroInt(),
		DustAssets:     sdkmath.ZeroInt(),
		FeeRateBps:     v.fees.RateBps(),
	}
	if !routed.IsZero() {
		split, err = v.fees.Route(ctx, routed, snapshot)
		if err != nil {
			// Nothing irreversible happened yet; the claimed rewards stay
			// pending and the next harvest routes them again.
			return nil, err
		}
	}
	v.pendingRewards = sdkmath.ZeroInt()
	v.accruedFeeAssets = v.accruedFeeAssets.Add(split.FeeAssets)
	v.feeRewards = v.feeRewards.Add(split.FeeRewards)

	// Restake the swapped proceeds without minting shares; this is how
	// existing shares appreciate. Proceeds stranded by an earlier failed
	// restake ride along.
	restake := split.RestakedAssets.Add(v.pendingStakeAssets)
	if !restake.IsZero() {
		if err := v.position.Stake(ctx, restake); err != nil {
			v.pendingStakeAssets = restake
			v.logger.Error().Err(err).
				Str("restakeAssets", restake.String()).
				Msg("Restake of harvested assets failed, proceeds held in custody for next harvest")
			return nil, err
		}
	}
	v.pendingStakeAssets = sdkmath.ZeroInt()

	record := &types.HarvestRecord{
		Timestamp:      time.Now().UTC(),
		ClaimedRewards: routed,
		FeeRewards:     split.FeeRewards,
		NetRewards:     split.NetRewards,
		FeeAssets:      split.FeeAssets,
		RestakedAssets: restake,
		DustAssets:     split.DustAssets,
		FeeRateBps:     split.FeeRateBps,
		PriceX128:      v.priceX128Locked(snapshot.AssetPriceX128),
		TotalAssets:    v.position.Staked(),
		TotalShares:    v.totalShares,
	}

	v.logger.Info().
		Str("claimed", routed.String()).
		Str("feeAssets", split.FeeAssets.String()).
		Str("restaked", restake.String()).
		Str("totalStakedAssets", record.TotalAssets.String()).
		Msg("Harvest completed")

	return record, nil
}

// WithdrawFees transfers the reward tokens backing the accrued fee to the fee
// recipient and resets the accrual. Idempotent when nothing is pending: a
// zero accrual is a no-op, not an error. TotalAssets is unaffected because
// fees were never counted in it.
func (v *Vault) WithdrawFees(ctx context.Context) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.accruedFeeAssets.IsZero() {
		v.logger.Debug().Msg("No accrued fees, fee withdrawal is a no-op")
		return sdkmath.ZeroInt(), nil
	}

	payout := v.feeRewards
	if err := v.custody.TransferOut(ctx, v.rewardDenom, v.feeRecipient, payout); err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("fee transfer to %s failed: %w", v.feeRecipient, err))
	}

	withdrawn := v.accruedFeeAssets
	v.accruedFeeAssets = sdkmath.ZeroInt()
	v.feeRewards = sdkmath.ZeroInt()

	v.logger.Info().
		Str("recipient", v.feeRecipient).
		Str("feeRewards", payout.String()).
		Str("feeAssets", withdrawn.String()).
		Msg("Accrued fees withdrawn")

	return withdrawn, nil
}

// TotalAssets returns the staked total exclusive of accrued fees. Harvesting
// increases it; withdrawing fees does not decrease it.
func (v *Vault) TotalAssets() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position.Staked()
}

// TotalShares returns the outstanding share supply.
func (v *Vault) TotalShares() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalShares
}

// BalanceOf returns holder's share balance.
func (v *Vault) BalanceOf(holder string) sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balanceOf(holder)
}

// AccruedFeeAssets returns the pooled-asset valuation of fees owed but not
// yet withdrawn.
func (v *Vault) AccruedFeeAssets() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.accruedFeeAssets
}

// ClaimableRewards reports reward tokens accrued at the staking target but not
// yet claimed. Read-only; the next harvest settles them.
func (v *Vault) ClaimableRewards(ctx context.Context) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position.ClaimableRewards(ctx)
}

// ConvertToShares converts an asset amount to shares at current rates.
func (v *Vault) ConvertToShares(assetAmount sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ledger.SharesForAssets(assetAmount, v.totalShares, v.position.Staked())
}

// ConvertToAssets converts a share amount to assets at current rates.
func (v *Vault) ConvertToAssets(shareAmount sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ledger.AssetsForShares(shareAmount, v.totalShares, v.position.Staked())
}

// GetPriceX128 returns the price of one share in quote units, X128 fixed
// point: assetPriceX128 * totalAssets / totalShares. An empty vault prices a
// share at exactly one pooled-asset unit.
func (v *Vault) GetPriceX128(ctx context.Context) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	assetPriceX128, err := v.oracle.AssetPriceX128(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return v.priceX128Locked(assetPriceX128), nil
}

// priceX128Locked derives price per share from the asset price and current
// totals. Caller holds the mutex. Multiply first, divide last.
func (v *Vault) priceX128Locked(assetPriceX128 sdkmath.Int) sdkmath.Int {
	if v.totalShares.IsZero() {
		return assetPriceX128
	}
	return assetPriceX128.Mul(v.position.Staked()).Quo(v.totalShares)
}

// UpdateDepositCap atomically replaces the deposit cap. Admin-gated; no effect
// on existing shares or staked value. A cap below the current staked total
// only blocks further deposits.
func (v *Vault) UpdateDepositCap(caller string, newCap sdkmath.Int) error {
	if caller != v.admin {
		return errors.Join(types.ErrUnauthorized, fmt.Errorf("caller %s is not the vault admin", caller))
	}
	if newCap.IsNil() || newCap.IsNegative() {
		return errors.New("deposit cap must be a non-negative integer")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	old := v.depositCap
	v.depositCap = newCap
	v.logger.Info().
		Str("oldCap", old.String()).
		Str("newCap", newCap.String()).
		Msg("Deposit cap updated")
	return nil
}

// ChangeFee atomically replaces the performance-fee rate. Admin-gated; bounded
// by the engine's ceiling; applies only to future harvests.
func (v *Vault) ChangeFee(caller string, newRateBps int64) error {
	if caller != v.admin {
		return errors.Join(types.ErrUnauthorized, fmt.Errorf("caller %s is not the vault admin", caller))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	return v.fees.ChangeFee(newRateBps)
}

// FeeRateBps returns the current performance-fee rate.
func (v *Vault) FeeRateBps() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fees.RateBps()
}

// DepositCap returns the current deposit cap.
func (v *Vault) DepositCap() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.depositCap
}

// Snapshot produces a persistable image of the vault's state. The price field
// is zero when the oracle cannot be reached; a snapshot must not fail on a
// read-only price miss.
func (v *Vault) Snapshot(ctx context.Context) types.VaultSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	price := sdkmath.ZeroInt()
	if assetPrice, err := v.oracle.AssetPriceX128(ctx); err == nil {
		price = v.priceX128Locked(assetPrice)
	}

	return types.VaultSnapshot{
		Timestamp:         time.Now().UTC(),
		TotalShares:       v.totalShares,
		TotalStakedAssets: v.position.Staked(),
		AccruedFeeAssets:  v.accruedFeeAssets,
		DepositCap:        v.depositCap,
		FeeRateBps:        v.fees.RateBps(),
		HolderCount:       len(v.balances),
		PriceX128:         price,
	}
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errors.New("amount is nil or negative")
	}
	if amount.IsZero() {
		return types.ErrZeroAmount
	}
	return nil
}

func (v *Vault) balanceOf(holder string) sdkmath.Int {
	if b, ok := v.balances[holder]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (v *Vault) mint(receiver string, shares sdkmath.Int) {
	v.balances[receiver] = v.balanceOf(receiver).Add(shares)
	v.totalShares = v.totalShares.Add(shares)
}

func (v *Vault) burn(owner string, shares sdkmath.Int) {
	remaining := v.balanceOf(owner).Sub(shares)
	if remaining.IsZero() {
		delete(v.balances, owner)
	} else {
		v.balances[owner] = remaining
	}
	v.totalShares = v.totalShares.Sub(shares)
}
