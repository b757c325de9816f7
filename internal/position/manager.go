/*

This file contains the position manager, the sole component authorized to move
the vault's externally staked position. It mirrors the external staked balance
in local accounting and refuses any unstake that the mirror says cannot be
covered, before the external call is ever issued.

*/

package position

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/types"
)

var positionLogger = logger.GetForComponent("position_manager")

var (
	ErrNilTarget     = errors.New("staking target is nil")
	ErrInvalidAmount = errors.New("amount is nil or negative")
)

// StakingTarget is the external reward-bearing staking contract (gauge). All
// amounts are non-negative integers in the relevant token's base unit.
type StakingTarget interface {
	// Stake deposits amount of the pooled asset into the staking target.
	Stake(ctx context.Context, amount sdkmath.Int) error

	// Unstake withdraws amount of the pooled asset back to vault custody.
	Unstake(ctx context.Context, amount sdkmath.Int) error

	// ClaimableRewards reports reward tokens accrued but not yet claimed.
	ClaimableRewards(ctx context.Context) (sdkmath.Int, error)

	// ClaimRewards settles reward accrual and returns the newly credited
	// reward-token amount. Zero when nothing has accrued.
	ClaimRewards(ctx context.Context) (sdkmath.Int, error)
}

// Manager owns the relationship between vault accounting and the staked
// position. It is not safe for concurrent use; the vault core serializes all
// calls under its operation mutex.
type Manager struct {
	target StakingTarget
	staked sdkmath.Int // Local mirror of the externally staked balance
}

// NewManager creates a position manager over the staking target. initialStaked
// seeds the mirror when resuming an existing position; pass zero for a fresh
// vault.
func NewManager(target StakingTarget, initialStaked sdkmath.Int) (*Manager, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if initialStaked.IsNil() || initialStaked.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Manager{
		target: target,
		staked: initialStaked,
	}, nil
}

// Staked returns the locally tracked staked balance.
func (m *Manager) Staked() sdkmath.Int {
	return m.staked
}

// Stake deposits assetAmount into the staking target. The mirror increases by
// exactly assetAmount; slippage, if any, is an external-collaborator concern.
func (m *Manager) Stake(ctx context.Context, assetAmount sdkmath.Int) error {
	if assetAmount.IsNil() || assetAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if assetAmount.IsZero() {
		return types.ErrZeroAmount
	}

	if err := m.target.Stake(ctx, assetAmount); err != nil {
		positionLogger.Error().Err(err).Str("amount", assetAmount.String()).Msg("Stake call failed")
		return errors.Join(types.ErrExternalCallFailed, fmt.Errorf("stake of %s failed: %w", assetAmount, err))
	}

	m.staked = m.staked.Add(assetAmount)
	positionLogger.Debug().
		Str("amount", assetAmount.String()).
		Str("staked", m.staked.String()).
		Msg("Staked into external target")
	return nil
}

// Unstake withdraws assetAmount from the staking target back to vault custody.
// Fails with InsufficientStakedBalance before any external call if the mirror
// cannot cover the request.
func (m *Manager) Unstake(ctx context.Context, assetAmount sdkmath.Int) error {
	if assetAmount.IsNil() || assetAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if assetAmount.IsZero() {
		return types.ErrZeroAmount
	}
	if m.staked.LT(assetAmount) {
		return errors.Join(types.ErrInsufficientStakedBalance,
			fmt.Errorf("staked %s, requested %s", m.staked, assetAmount))
	}

	if err := m.target.Unstake(ctx, assetAmount); err != nil {
		positionLogger.Error().Err(err).Str("amount", assetAmount.String()).Msg("Unstake call failed")
		return errors.Join(types.ErrExternalCallFailed, fmt.Errorf("unstake of %s failed: %w", assetAmount, err))
	}

	m.staked = m.staked.Sub(assetAmount)
	positionLogger.Debug().
		Str("amount", assetAmount.String()).
		Str("staked", m.staked.String()).
		Msg("Unstaked from external target")
	return nil
}

// ClaimRewards settles reward accrual with the staking target and returns the
// newly credited reward-token amount. A zero claim is a valid outcome, not an
// error; a negative claim from the target is rejected as invalid.
func (m *Manager) ClaimRewards(ctx context.Context) (sdkmath.Int, error) {
	claimed, err := m.target.ClaimRewards(ctx)
	if err != nil {
		positionLogger.Error().Err(err).Msg("ClaimRewards call failed")
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("reward claim failed: %w", err))
	}
	if claimed.IsNil() || claimed.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			errors.New("staking target returned nil or negative reward amount"))
	}
	positionLogger.Debug().Str("claimed", claimed.String()).Msg("Claimed gauge rewards")
	return claimed, nil
}

// ClaimableRewards reports accrued-but-unclaimed rewards for read-only
// surfaces; it never mutates the target.
func (m *Manager) ClaimableRewards(ctx context.Context) (sdkmath.Int, error) {
	claimable, err := m.target.ClaimableRewards(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			fmt.Errorf("claimable rewards query failed: %w", err))
	}
	if claimable.IsNil() || claimable.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(types.ErrExternalCallFailed,
			errors.New("staking target returned nil or negative claimable amount"))
	}
	return claimable, nil
}
