/*

This file contains the default vault parameters for the YVM.

These parameters govern real user deposits in a production environment. Each
value balances fee revenue and compounding efficiency against depositor
protection.

*/

package config

import (
	sdkmath "cosmossdk.io/math"
)

// VaultParameters holds the tunable accounting parameters for one vault.
type VaultParameters struct {
	// FeeRateBps is the performance fee on harvested rewards, basis points.
	FeeRateBps int64

	// FeeCeilingBps is the hard upper bound any fee change must respect.
	FeeCeilingBps int64

	// SlippageToleranceBps bounds the min-out guard on compounding swaps.
	SlippageToleranceBps int64

	// DepositCap is the ceiling on total staked assets, pooled-asset units.
	DepositCap sdkmath.Int

	// OracleMaxAgeSeconds is the staleness window for both price feeds.
	OracleMaxAgeSeconds int64

	// HarvestIntervalSeconds is the period of the automatic harvest loop.
	HarvestIntervalSeconds int64
}

// DefaultVaultParameters provides the baseline parameter set, used when no
// overrides are supplied through the environment.
var DefaultVaultParameters = VaultParameters{
	FeeRateBps: 1000, // 10% of harvested rewards.
	// Rationale: matches the prevailing performance fee for compounding LP
	// vaults. Fees only apply to yield, never to principal.

	FeeCeilingBps: 2000, // Fee changes above 20% are rejected outright.
	// Rationale: a hard ceiling protects depositors from governance mistakes;
	// no admin action can push the fee past it without a redeploy.

	SlippageToleranceBps: 100, // Accept at most 1% below oracle value on swaps.
	// Rationale: the compounding swap runs unattended. A tight min-out guard
	// means a thin or manipulated pool fails the harvest instead of bleeding
	// reward value; the rewards remain claimable for the next attempt.

	DepositCap: sdkmath.NewInt(1_000_000_000_000),
	// Rationale: caps exposure while the strategy builds a track record. The
	// admin raises it as gauge liquidity and oracle coverage mature.

	OracleMaxAgeSeconds: 3600, // Refuse prices older than one hour.
	// Rationale: fee valuation and the price-per-share surface both depend on
	// these feeds. A stale price fails the operation; it is never estimated.

	HarvestIntervalSeconds: 21600, // Harvest every 6 hours.
	// Rationale: frequent enough that reward exposure between harvests stays
	// small, infrequent enough that swap overhead does not erode the yield.
}
