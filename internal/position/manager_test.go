package position

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gammaworks/yvm/internal/types"
)

// fakeTarget tracks the external staked balance and pending rewards.
type fakeTarget struct {
	staked  sdkmath.Int
	rewards sdkmath.Int

	stakeErr   error
	unstakeErr error
	claimErr   error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{staked: sdkmath.ZeroInt(), rewards: sdkmath.ZeroInt()}
}

func (f *fakeTarget) Stake(ctx context.Context, amount sdkmath.Int) error {
	if f.stakeErr != nil {
		return f.stakeErr
	}
	f.staked = f.staked.Add(amount)
	return nil
}

func (f *fakeTarget) Unstake(ctx context.Context, amount sdkmath.Int) error {
	if f.unstakeErr != nil {
		return f.unstakeErr
	}
	f.staked = f.staked.Sub(amount)
	return nil
}

func (f *fakeTarget) ClaimableRewards(ctx context.Context) (sdkmath.Int, error) {
	return f.rewards, nil
}

func (f *fakeTarget) ClaimRewards(ctx context.Context) (sdkmath.Int, error) {
	if f.claimErr != nil {
		return sdkmath.ZeroInt(), f.claimErr
	}
	claimed := f.rewards
	f.rewards = sdkmath.ZeroInt()
	return claimed, nil
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrNilTarget)

	_, err = NewManager(newFakeTarget(), sdkmath.Int{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewManager(newFakeTarget(), sdkmath.NewInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestStakeUpdatesMirror(t *testing.T) {
	target := newFakeTarget()
	manager, err := NewManager(target, sdkmath.ZeroInt())
	require.NoError(t, err)

	require.NoError(t, manager.Stake(context.Background(), sdkmath.NewInt(1000)))
	assert.True(t, sdkmath.NewInt(1000).Equal(manager.Staked()))
	assert.True(t, sdkmath.NewInt(1000).Equal(target.staked))

	require.NoError(t, manager.Stake(context.Background(), sdkmath.NewInt(500)))
	assert.True(t, sdkmath.NewInt(1500).Equal(manager.Staked()))
}

func TestStakeFailureLeavesMirrorUntouched(t *testing.T) {
	target := newFakeTarget()
	target.stakeErr = errors.New("gauge paused")
	manager, err := NewManager(target, sdkmath.ZeroInt())
	require.NoError(t, err)

	err = manager.Stake(context.Background(), sdkmath.NewInt(1000))
	require.ErrorIs(t, err, types.ErrExternalCallFailed)
	assert.True(t, manager.Staked().IsZero())
}

func TestUnstakeChecksMirrorFirst(t *testing.T) {
	target := newFakeTarget()
	manager, err := NewManager(target, sdkmath.NewInt(1000))
	require.NoError(t, err)
	target.staked = sdkmath.NewInt(1000)

	// Over the mirror fails before the external call.
	target.unstakeErr = errors.New("should not be called")
	err = manager.Unstake(context.Background(), sdkmath.NewInt(1001))
	require.ErrorIs(t, err, types.ErrInsufficientStakedBalance)
	assert.True(t, sdkmath.NewInt(1000).Equal(manager.Staked()))

	target.unstakeErr = nil
	require.NoError(t, manager.Unstake(context.Background(), sdkmath.NewInt(400)))
	assert.True(t, sdkmath.NewInt(600).Equal(manager.Staked()))
}

func TestZeroAmountsRejected(t *testing.T) {
	manager, err := NewManager(newFakeTarget(), sdkmath.ZeroInt())
	require.NoError(t, err)

	require.ErrorIs(t, manager.Stake(context.Background(), sdkmath.ZeroInt()), types.ErrZeroAmount)
	require.ErrorIs(t, manager.Unstake(context.Background(), sdkmath.ZeroInt()), types.ErrZeroAmount)
}

func TestClaimRewards(t *testing.T) {
	target := newFakeTarget()
	target.rewards = sdkmath.NewInt(777)
	manager, err := NewManager(target, sdkmath.ZeroInt())
	require.NoError(t, err)

	claimed, err := manager.ClaimRewards(context.Background())
	require.NoError(t, err)
	assert.True(t, sdkmath.NewInt(777).Equal(claimed))

	// Second claim settles nothing.
	claimed, err = manager.ClaimRewards(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed.IsZero())
}

func TestClaimRewardsFailurePropagates(t *testing.T) {
	target := newFakeTarget()
	target.claimErr = errors.New("gauge unreachable")
	manager, err := NewManager(target, sdkmath.ZeroInt())
	require.NoError(t, err)

	_, err = manager.ClaimRewards(context.Background())
	require.ErrorIs(t, err, types.ErrExternalCallFailed)
}
