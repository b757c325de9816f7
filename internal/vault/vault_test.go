package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gammaworks/yvm/internal/fees"
	"github.com/gammaworks/yvm/internal/oracle"
	"github.com/gammaworks/yvm/internal/position"
	"github.com/gammaworks/yvm/internal/types"
)

const (
	testAsset      = "uusdc"
	testReward     = "ucrv"
	testDerivative = "ueth"
	testAdmin      = "admin-addr"
	testRecipient  = "fee-addr"
)

// fakeCustody tracks per-token, per-holder balances plus the vault's own
// custody balance.
type fakeCustody struct {
	balances map[string]map[string]sdkmath.Int // token -> holder -> balance
	vault    map[string]sdkmath.Int            // token -> custody balance

	transferInErr  error
	transferOutErr error
}

func newFakeCustody() *fakeCustody {
	return &fakeCustody{
		balances: make(map[string]map[string]sdkmath.Int),
		vault:    make(map[string]sdkmath.Int),
	}
}

func (f *fakeCustody) fund(token, holder string, amount sdkmath.Int) {
	if f.balances[token] == nil {
		f.balances[token] = make(map[string]sdkmath.Int)
	}
	f.balances[token][holder] = f.holderBalance(token, holder).Add(amount)
}

func (f *fakeCustody) holderBalance(token, holder string) sdkmath.Int {
	if m, ok := f.balances[token]; ok {
		if b, ok := m[holder]; ok {
			return b
		}
	}
	return sdkmath.ZeroInt()
}

func (f *fakeCustody) vaultBalance(token string) sdkmath.Int {
	if b, ok := f.vault[token]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (f *fakeCustody) TransferIn(ctx context.Context, token, from string, amount sdkmath.Int) error {
	if f.transferInErr != nil {
		return f.transferInErr
	}
	balance := f.holderBalance(token, from)
	if balance.LT(amount) {
		return errors.New("insufficient holder balance")
	}
	f.balances[token][from] = balance.Sub(amount)
	f.vault[token] = f.vaultBalance(token).Add(amount)
	return nil
}

func (f *fakeCustody) TransferOut(ctx context.Context, token, to string, amount sdkmath.Int) error {
	if f.transferOutErr != nil {
		return f.transferOutErr
	}
	f.vault[token] = f.vaultBalance(token).Sub(amount)
	f.fund(token, to, amount)
	return nil
}

func (f *fakeCustody) BalanceOf(ctx context.Context, token, holder string) (sdkmath.Int, error) {
	return f.holderBalance(token, holder), nil
}

// fakeGauge is the external staking target.
type fakeGauge struct {
	staked  sdkmath.Int
	rewards sdkmath.Int

	stakeErr error
}

func newFakeGauge() *fakeGauge {
	return &fakeGauge{staked: sdkmath.ZeroInt(), rewards: sdkmath.ZeroInt()}
}

func (f *fakeGauge) Stake(ctx context.Context, amount sdkmath.Int) error {
	if f.stakeErr != nil {
		return f.stakeErr
	}
	f.staked = f.staked.Add(amount)
	return nil
}

func (f *fakeGauge) Unstake(ctx context.Context, amount sdkmath.Int) error {
	f.staked = f.staked.Sub(amount)
	return nil
}

func (f *fakeGauge) ClaimableRewards(ctx context.Context) (sdkmath.Int, error) {
	return f.rewards, nil
}

func (f *fakeGauge) ClaimRewards(ctx context.Context) (sdkmath.Int, error) {
	claimed := f.rewards
	f.rewards = sdkmath.ZeroInt()
	return claimed, nil
}

// fakeRouter swaps 1:1 unless told to fail.
type fakeRouter struct {
	err error
}

func (f *fakeRouter) SwapExactIn(ctx context.Context, tokenIn, tokenOut string, amountIn, minAmountOut sdkmath.Int) (sdkmath.Int, error) {
	if f.err != nil {
		return sdkmath.ZeroInt(), f.err
	}
	return amountIn, nil
}

// fakeConverter converts derivative to asset at a fixed rate.
type fakeConverter struct {
	rateNum, rateDen int64
	addErr           error
}

func (f *fakeConverter) AddLiquidity(ctx context.Context, derivativeAmount sdkmath.Int) (sdkmath.Int, error) {
	if f.addErr != nil {
		return sdkmath.ZeroInt(), f.addErr
	}
	return derivativeAmount.MulRaw(f.rateNum).QuoRaw(f.rateDen), nil
}

func (f *fakeConverter) RemoveLiquidity(ctx context.Context, assetAmount sdkmath.Int) (sdkmath.Int, error) {
	return assetAmount.MulRaw(f.rateDen).QuoRaw(f.rateNum), nil
}

// fakeSource is a fresh unit-price feed.
type fakeSource struct {
	price sdkmath.Int
}

func (f *fakeSource) Price(ctx context.Context) (sdkmath.Int, time.Time, error) {
	return f.price, time.Now(), nil
}

type testHarness struct {
	vault   *Vault
	custody *fakeCustody
	gauge   *fakeGauge
	router  *fakeRouter
}

func newTestVault(t *testing.T, depositCap int64) *testHarness {
	t.Helper()

	custody := newFakeCustody()
	gauge := newFakeGauge()
	router := &fakeRouter{}

	positionManager, err := position.NewManager(gauge, sdkmath.ZeroInt())
	require.NoError(t, err)

	feeEngine, err := fees.NewEngine(router, testReward, testAsset, 1000, 2000, 100)
	require.NoError(t, err)

	// Both feeds report a unit price at 6 decimals.
	oracleAdapter, err := oracle.NewAdapter(
		oracle.Feed{Source: &fakeSource{price: sdkmath.NewInt(1_000_000)}, Decimals: 6},
		oracle.Feed{Source: &fakeSource{price: sdkmath.NewInt(1_000_000)}, Decimals: 6},
		time.Hour,
	)
	require.NoError(t, err)

	v, err := New(Config{
		Custody:         custody,
		Converter:       &fakeConverter{rateNum: 1, rateDen: 1},
		Position:        positionManager,
		Fees:            feeEngine,
		Oracle:          oracleAdapter,
		AssetDenom:      testAsset,
		RewardDenom:     testReward,
		DerivativeDenom: testDerivative,
		Admin:           testAdmin,
		FeeRecipient:    testRecipient,
		DepositCap:      sdkmath.NewInt(depositCap),
	})
	require.NoError(t, err)

	return &testHarness{vault: v, custody: custody, gauge: gauge, router: router}
}

func TestFirstDepositMintsOneToOne(t *testing.T) {
	h := newTestVault(t, 1_000_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	shares, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	assert.True(t, sdkmath.NewInt(1000).Equal(shares))
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.TotalShares()))
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.BalanceOf("alice")))
	assert.True(t, h.custody.holderBalance(testAsset, "alice").IsZero())
	assert.True(t, sdkmath.NewInt(1000).Equal(h.gauge.staked))
}

func TestSequentialDepositsStayProRata(t *testing.T) {
	h := newTestVault(t, 1_000_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))
	h.custody.fund(testAsset, "bob", sdkmath.NewInt(500))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	// No yield yet, so bob also mints 1:1.
	shares, err := h.vault.Deposit(context.Background(), "bob", "bob", sdkmath.NewInt(500))
	require.NoError(t, err)
	assert.True(t, sdkmath.NewInt(500).Equal(shares))
	assert.True(t, sdkmath.NewInt(1500).Equal(h.vault.TotalShares()))
	assert.True(t, sdkmath.NewInt(1500).Equal(h.vault.TotalAssets()))
}

func TestDepositCapEnforced(t *testing.T) {
	h := newTestVault(t, 1000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(2000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(800))
	require.NoError(t, err)

	// 800 + 300 > 1000: rejected, nothing committed, assets refunded.
	_, err = h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(300))
	require.ErrorIs(t, err, types.ErrDepositCapExceeded)
	assert.True(t, sdkmath.NewInt(800).Equal(h.vault.TotalShares()))
	assert.True(t, sdkmath.NewInt(800).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(1200).Equal(h.custody.holderBalance(testAsset, "alice")))

	// Exactly to the cap is allowed.
	_, err = h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(200))
	require.NoError(t, err)
}

func TestDepositZeroAmountRejected(t *testing.T) {
	h := newTestVault(t, 1000)

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestDepositStakeFailureRefunds(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))
	h.gauge.stakeErr = errors.New("gauge paused")

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.ErrorIs(t, err, types.ErrExternalCallFailed)

	// All-or-nothing: the pulled assets went back.
	assert.True(t, sdkmath.NewInt(1000).Equal(h.custody.holderBalance(testAsset, "alice")))
	assert.True(t, h.vault.TotalShares().IsZero())
	assert.True(t, h.vault.TotalAssets().IsZero())
}

func TestDepositDerivative(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testDerivative, "alice", sdkmath.NewInt(400))

	shares, err := h.vault.DepositDerivative(context.Background(), "alice", sdkmath.NewInt(400))
	require.NoError(t, err)

	// 1:1 converter, empty vault: 400 derivative -> 400 assets -> 400 shares.
	assert.True(t, sdkmath.NewInt(400).Equal(shares))
	assert.True(t, sdkmath.NewInt(400).Equal(h.vault.BalanceOf("alice")))
	assert.True(t, sdkmath.NewInt(400).Equal(h.vault.TotalAssets()))
}

func TestDepositDerivativeConversionFailureRefunds(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testDerivative, "alice", sdkmath.NewInt(400))

	custody := h.custody
	converter := &fakeConverter{rateNum: 1, rateDen: 1, addErr: errors.New("pool imbalanced")}
	gauge := newFakeGauge()
	positionManager, err := position.NewManager(gauge, sdkmath.ZeroInt())
	require.NoError(t, err)
	feeEngine, err := fees.NewEngine(&fakeRouter{}, testReward, testAsset, 1000, 2000, 100)
	require.NoError(t, err)
	oracleAdapter, err := oracle.NewAdapter(
		oracle.Feed{Source: &fakeSource{price: sdkmath.NewInt(1_000_000)}, Decimals: 6},
		oracle.Feed{Source: &fakeSource{price: sdkmath.NewInt(1_000_000)}, Decimals: 6},
		time.Hour,
	)
	require.NoError(t, err)

	v, err := New(Config{
		Custody: custody, Converter: converter, Position: positionManager,
		Fees: feeEngine, Oracle: oracleAdapter,
		AssetDenom: testAsset, RewardDenom: testReward, DerivativeDenom: testDerivative,
		Admin: testAdmin, FeeRecipient: testRecipient, DepositCap: sdkmath.NewInt(1_000_000),
	})
	require.NoError(t, err)

	_, err = v.DepositDerivative(context.Background(), "alice", sdkmath.NewInt(400))
	require.ErrorIs(t, err, types.ErrExternalCallFailed)
	assert.True(t, sdkmath.NewInt(400).Equal(custody.holderBalance(testDerivative, "alice")))
	assert.True(t, v.TotalShares().IsZero())
}

func TestWithdrawPaysOutAndBurns(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	paid, burned, err := h.vault.Withdraw(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(400))
	require.NoError(t, err)

	assert.True(t, sdkmath.NewInt(400).Equal(paid))
	assert.True(t, sdkmath.NewInt(400).Equal(burned))
	assert.True(t, sdkmath.NewInt(600).Equal(h.vault.TotalShares()))
	assert.True(t, sdkmath.NewInt(600).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(400).Equal(h.custody.holderBalance(testAsset, "alice")))
}

func TestWithdrawRequiresOwnership(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	_, _, err = h.vault.Withdraw(context.Background(), "mallory", "mallory", "alice", sdkmath.NewInt(400))
	require.ErrorIs(t, err, types.ErrUnauthorized)
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.BalanceOf("alice")))
}

func TestWithdrawInsufficientShares(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	_, _, err = h.vault.Withdraw(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(1001))
	require.ErrorIs(t, err, types.ErrInsufficientShares)
}

func TestWithdrawPayoutFailureRestoresState(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	h.custody.transferOutErr = errors.New("custody frozen")
	_, _, err = h.vault.Withdraw(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(400))
	require.ErrorIs(t, err, types.ErrExternalCallFailed)

	// Compensation restaked and re-minted: nothing changed.
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.TotalShares()))
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.BalanceOf("alice")))
}

func TestWithdrawDerivative(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	redeemed, burned, err := h.vault.WithdrawDerivative(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(300))
	require.NoError(t, err)

	assert.True(t, sdkmath.NewInt(300).Equal(redeemed))
	assert.True(t, sdkmath.NewInt(300).Equal(burned))
	assert.True(t, sdkmath.NewInt(300).Equal(h.custody.holderBalance(testDerivative, "alice")))
	assert.True(t, sdkmath.NewInt(700).Equal(h.vault.TotalAssets()))
}

func TestHarvestCompoundsAndAccruesFee(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	h.gauge.rewards = sdkmath.NewInt(1000)

	record, err := h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	require.NotNil(t, record)

	// 10% fee: 100 reward tokens accrue as fee, 900 swap 1:1 and restake.
	assert.True(t, sdkmath.NewInt(1000).Equal(record.ClaimedRewards))
	assert.True(t, sdkmath.NewInt(100).Equal(record.FeeRewards))
	assert.True(t, sdkmath.NewInt(900).Equal(record.RestakedAssets))
	assert.True(t, sdkmath.NewInt(10_900).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(100).Equal(h.vault.AccruedFeeAssets()))

	// Shares did not move; each share is now worth more.
	assert.True(t, sdkmath.NewInt(10_000).Equal(h.vault.TotalShares()))
	assets, err := h.vault.ConvertToAssets(sdkmath.NewInt(10_000))
	require.NoError(t, err)
	assert.True(t, sdkmath.NewInt(10_900).Equal(assets))
}

func TestClaimableRewardsReadThrough(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.gauge.rewards = sdkmath.NewInt(555)

	claimable, err := h.vault.ClaimableRewards(context.Background())
	require.NoError(t, err)
	assert.True(t, sdkmath.NewInt(555).Equal(claimable))

	// Reading settles nothing.
	claimable, err = h.vault.ClaimableRewards(context.Background())
	require.NoError(t, err)
	assert.True(t, sdkmath.NewInt(555).Equal(claimable))
}

func TestHarvestWithNoRewardsIsNoOp(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	record, err := h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.True(t, sdkmath.NewInt(1000).Equal(h.vault.TotalAssets()))
}

func TestWithdrawFees(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	h.gauge.rewards = sdkmath.NewInt(1000)
	_, err = h.vault.HarvestFees(context.Background())
	require.NoError(t, err)

	totalBefore := h.vault.TotalAssets()

	withdrawn, err := h.vault.WithdrawFees(context.Background())
	require.NoError(t, err)
	assert.True(t, sdkmath.NewInt(100).Equal(withdrawn))

	// The fee recipient got the reward tokens; totalAssets is untouched because
	// the fee was never part of it.
	assert.True(t, sdkmath.NewInt(100).Equal(h.custody.holderBalance(testReward, testRecipient)))
	assert.True(t, totalBefore.Equal(h.vault.TotalAssets()))
	assert.True(t, h.vault.AccruedFeeAssets().IsZero())

	// A second withdrawal with nothing pending is a no-op.
	withdrawn, err = h.vault.WithdrawFees(context.Background())
	require.NoError(t, err)
	assert.True(t, withdrawn.IsZero())
	assert.True(t, sdkmath.NewInt(100).Equal(h.custody.holderBalance(testReward, testRecipient)))
}

func TestRoundTripNeverProfitsTheUser(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))
	h.custody.fund(testAsset, "bob", sdkmath.NewInt(997))

	// Seed an uneven rate: deposit then harvest.
	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)
	h.gauge.rewards = sdkmath.NewInt(777)
	_, err = h.vault.HarvestFees(context.Background())
	require.NoError(t, err)

	shares, err := h.vault.Deposit(context.Background(), "bob", "bob", sdkmath.NewInt(997))
	require.NoError(t, err)

	redeemable, err := h.vault.ConvertToAssets(shares)
	require.NoError(t, err)

	_, burned, err := h.vault.Withdraw(context.Background(), "bob", "bob", "bob", redeemable)
	require.NoError(t, err)
	assert.True(t, burned.LTE(shares), "burned %s shares for %s minted", burned, shares)
	assert.True(t, h.custody.holderBalance(testAsset, "bob").LTE(sdkmath.NewInt(997)))
}

func TestLastHolderSweepEmptiesVault(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)
	h.gauge.rewards = sdkmath.NewInt(777)
	_, err = h.vault.HarvestFees(context.Background())
	require.NoError(t, err)

	// Ask for one unit less than the full position: covering it still burns
	// the whole supply, so the residual sweeps out with the final burn and the
	// empty vault holds zero staked assets.
	all, err := h.vault.ConvertToAssets(h.vault.BalanceOf("alice"))
	require.NoError(t, err)

	paid, burned, err := h.vault.Withdraw(context.Background(), "alice", "alice", "alice", all.SubRaw(1))
	require.NoError(t, err)

	// The returned payout is what actually moved, not what was requested.
	assert.True(t, all.Equal(paid), "paid %s, position was %s", paid, all)
	assert.True(t, sdkmath.NewInt(10_000).Equal(burned))
	assert.True(t, all.Equal(h.custody.holderBalance(testAsset, "alice")))
	assert.True(t, h.vault.TotalShares().IsZero())
	assert.True(t, h.vault.TotalAssets().IsZero())
	assert.True(t, h.gauge.staked.IsZero())
}

func TestWithdrawFromEmptyVaultRejected(t *testing.T) {
	h := newTestVault(t, 1_000_000)

	// No supply means no withdrawal can cover itself with a burn.
	_, _, err := h.vault.Withdraw(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrInsufficientShares)
	assert.True(t, h.custody.holderBalance(testAsset, "alice").IsZero())
}

func TestHarvestSkippedWithoutShares(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)
	_, _, err = h.vault.Withdraw(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	// Rewards that accrued during the staked period stay claimable at the
	// gauge: harvesting into an empty supply would mint assets no share backs.
	h.gauge.rewards = sdkmath.NewInt(777)

	record, err := h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.True(t, h.vault.TotalShares().IsZero())
	assert.True(t, h.vault.TotalAssets().IsZero())
	assert.True(t, sdkmath.NewInt(777).Equal(h.gauge.rewards))

	// A shareless caller cannot extract anything from the emptied vault.
	_, _, err = h.vault.Withdraw(context.Background(), "mallory", "mallory", "mallory", sdkmath.NewInt(700))
	require.ErrorIs(t, err, types.ErrInsufficientShares)
	assert.True(t, h.custody.holderBalance(testAsset, "mallory").IsZero())
}

func TestHarvestRetriesClaimedRewardsAfterSwapFailure(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	h.gauge.rewards = sdkmath.NewInt(777)
	h.router.err = errors.New("pool congested")

	// The claim settles at the gauge before the swap fails; nothing is
	// accrued or staked yet.
	_, err = h.vault.HarvestFees(context.Background())
	require.ErrorIs(t, err, types.ErrExternalCallFailed)
	assert.True(t, h.gauge.rewards.IsZero())
	assert.True(t, sdkmath.NewInt(10_000).Equal(h.vault.TotalAssets()))
	assert.True(t, h.vault.AccruedFeeAssets().IsZero())

	// The retry routes the stranded claim together with newly accrued rewards.
	h.router.err = nil
	h.gauge.rewards = sdkmath.NewInt(223)

	record, err := h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, sdkmath.NewInt(1000).Equal(record.ClaimedRewards))
	assert.True(t, sdkmath.NewInt(100).Equal(record.FeeRewards))
	assert.True(t, sdkmath.NewInt(900).Equal(record.RestakedAssets))
	assert.True(t, sdkmath.NewInt(10_900).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(100).Equal(h.vault.AccruedFeeAssets()))
}

func TestHarvestRetriesSwappedProceedsAfterRestakeFailure(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	h.gauge.rewards = sdkmath.NewInt(1000)
	h.gauge.stakeErr = errors.New("gauge paused")

	// The swap settled, so the fee is accrued; the proceeds wait in custody.
	_, err = h.vault.HarvestFees(context.Background())
	require.Error(t, err)
	assert.True(t, sdkmath.NewInt(10_000).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(100).Equal(h.vault.AccruedFeeAssets()))

	// The next harvest stakes the stranded proceeds even with no new rewards.
	h.gauge.stakeErr = nil

	record, err := h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.ClaimedRewards.IsZero())
	assert.True(t, sdkmath.NewInt(900).Equal(record.RestakedAssets))
	assert.True(t, sdkmath.NewInt(10_900).Equal(h.vault.TotalAssets()))
	assert.True(t, sdkmath.NewInt(100).Equal(h.vault.AccruedFeeAssets()))
}

func TestChangeFeeAdminGated(t *testing.T) {
	h := newTestVault(t, 1_000_000)

	require.ErrorIs(t, h.vault.ChangeFee("mallory", 500), types.ErrUnauthorized)

	require.NoError(t, h.vault.ChangeFee(testAdmin, 2000))
	assert.Equal(t, int64(2000), h.vault.FeeRateBps())

	require.ErrorIs(t, h.vault.ChangeFee(testAdmin, 2001), types.ErrFeeOutOfBounds)
	assert.Equal(t, int64(2000), h.vault.FeeRateBps())
}

func TestChangeFeeNotRetroactive(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	h.gauge.rewards = sdkmath.NewInt(1000)
	record, err := h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), record.FeeRateBps)
	assert.True(t, sdkmath.NewInt(100).Equal(record.FeeRewards))

	require.NoError(t, h.vault.ChangeFee(testAdmin, 2000))

	// Already-accrued fees keep the old rate's valuation; only the next
	// harvest uses the new rate.
	assert.True(t, sdkmath.NewInt(100).Equal(h.vault.AccruedFeeAssets()))

	h.gauge.rewards = sdkmath.NewInt(1000)
	record, err = h.vault.HarvestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2000), record.FeeRateBps)
	assert.True(t, sdkmath.NewInt(200).Equal(record.FeeRewards))
}

func TestUpdateDepositCap(t *testing.T) {
	h := newTestVault(t, 1000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(5000))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)

	require.ErrorIs(t, h.vault.UpdateDepositCap("mallory", sdkmath.NewInt(5000)), types.ErrUnauthorized)

	require.NoError(t, h.vault.UpdateDepositCap(testAdmin, sdkmath.NewInt(5000)))
	_, err = h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(4000))
	require.NoError(t, err)

	// Lowering the cap below the staked total blocks deposits but touches
	// nothing else.
	require.NoError(t, h.vault.UpdateDepositCap(testAdmin, sdkmath.NewInt(100)))
	assert.True(t, sdkmath.NewInt(5000).Equal(h.vault.TotalAssets()))
	_, err = h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrDepositCapExceeded)

	// Withdrawals remain live under the lowered cap.
	_, _, err = h.vault.Withdraw(context.Background(), "alice", "alice", "alice", sdkmath.NewInt(500))
	require.NoError(t, err)
}

func TestGetPriceX128TracksAppreciation(t *testing.T) {
	h := newTestVault(t, 1_000_000)

	// Empty vault: price of one share equals the asset price.
	price, err := h.vault.GetPriceX128(context.Background())
	require.NoError(t, err)
	assert.True(t, oracle.OneX128.Equal(price))

	h.custody.fund(testAsset, "alice", sdkmath.NewInt(10_000))
	_, err = h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(10_000))
	require.NoError(t, err)

	price, err = h.vault.GetPriceX128(context.Background())
	require.NoError(t, err)
	assert.True(t, oracle.OneX128.Equal(price))

	h.gauge.rewards = sdkmath.NewInt(1000)
	_, err = h.vault.HarvestFees(context.Background())
	require.NoError(t, err)

	// 10900 assets over 10000 shares: price = assetPrice * 109 / 100.
	price, err = h.vault.GetPriceX128(context.Background())
	require.NoError(t, err)
	expected := oracle.OneX128.MulRaw(10_900).QuoRaw(10_000)
	assert.True(t, expected.Equal(price), "expected %s, got %s", expected, price)
}

func TestSnapshotReflectsState(t *testing.T) {
	h := newTestVault(t, 1_000_000)
	h.custody.fund(testAsset, "alice", sdkmath.NewInt(1000))
	h.custody.fund(testAsset, "bob", sdkmath.NewInt(500))

	_, err := h.vault.Deposit(context.Background(), "alice", "alice", sdkmath.NewInt(1000))
	require.NoError(t, err)
	_, err = h.vault.Deposit(context.Background(), "bob", "bob", sdkmath.NewInt(500))
	require.NoError(t, err)

	snapshot := h.vault.Snapshot(context.Background())
	assert.True(t, sdkmath.NewInt(1500).Equal(snapshot.TotalShares))
	assert.True(t, sdkmath.NewInt(1500).Equal(snapshot.TotalStakedAssets))
	assert.Equal(t, 2, snapshot.HolderCount)
	assert.Equal(t, int64(1000), snapshot.FeeRateBps)
	assert.True(t, oracle.OneX128.Equal(snapshot.PriceX128))
}
