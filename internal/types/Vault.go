/*

This file contains the core vault accounting types: the mutable vault state, the
per-holder share ledger entry, and the record types persisted after harvests and
user operations.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// VaultState is the full accounting state of a single vault instance. All
// amounts are unsigned big integers in the pooled asset's native base unit;
// shares are in the vault's own share unit (1:1 with assets at genesis).
type VaultState struct {
	TotalShares       sdkmath.Int `json:"total_shares"`        // Outstanding share supply
	TotalStakedAssets sdkmath.Int `json:"total_staked_assets"` // Vault's claim on the staked position
	DepositCap        sdkmath.Int `json:"deposit_cap"`         // Ceiling on TotalStakedAssets
	FeeRateBps        int64       `json:"fee_rate_bps"`        // Current performance fee, basis points
	AccruedFeeAssets  sdkmath.Int `json:"accrued_fee_assets"`  // Fee owed, excluded from TotalAssets
}

// HarvestRecord captures the outcome of a single harvest for persistence and
// the dashboard. Dust is the truncation loss from the double-floor in fee
// valuation; it is absorbed by the vault in the shareholders' favor.
type HarvestRecord struct {
	RecordID        int64       `json:"record_id,omitempty"` // Auto-incremented by DB
	Timestamp       time.Time   `json:"timestamp"`
	ClaimedRewards  sdkmath.Int `json:"claimed_rewards"`   // Reward tokens claimed from the gauge
	FeeRewards      sdkmath.Int `json:"fee_rewards"`       // Fee portion, reward-token terms
	NetRewards      sdkmath.Int `json:"net_rewards"`       // Compounded portion, reward-token terms
	FeeAssets       sdkmath.Int `json:"fee_assets"`        // Fee portion valued in pooled asset
	RestakedAssets  sdkmath.Int `json:"restaked_assets"`   // Pooled asset received from swap and restaked
	DustAssets      sdkmath.Int `json:"dust_assets"`       // Valuation truncation absorbed by the vault
	FeeRateBps      int64       `json:"fee_rate_bps"`      // Rate in force for this harvest
	PriceX128       sdkmath.Int `json:"price_x128"`        // Price per share after the harvest
	TotalAssets     sdkmath.Int `json:"total_assets"`      // Post-harvest staked total
	TotalShares     sdkmath.Int `json:"total_shares"`      // Share supply (unchanged by harvest)
}

// OperationType identifies a user-facing vault operation for receipts.
type OperationType string

const (
	OpDeposit            OperationType = "DEPOSIT"
	OpDepositDerivative  OperationType = "DEPOSIT_DERIVATIVE"
	OpWithdraw           OperationType = "WITHDRAW"
	OpWithdrawDerivative OperationType = "WITHDRAW_DERIVATIVE"
	OpWithdrawFees       OperationType = "WITHDRAW_FEES"
)

// OperationReceipt records a completed (or rejected) vault operation.
type OperationReceipt struct {
	ReceiptID    int64         `json:"receipt_id,omitempty"` // Auto-incremented by DB
	Timestamp    time.Time     `json:"timestamp"`
	Type         OperationType `json:"type"`
	Caller       string        `json:"caller"`
	Receiver     string        `json:"receiver,omitempty"`
	AssetAmount  sdkmath.Int   `json:"asset_amount"`
	ShareAmount  sdkmath.Int   `json:"share_amount"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// VaultSnapshot is the persisted image of VaultState plus totals needed for
// restart continuity and the dashboard summary.
type VaultSnapshot struct {
	SnapshotID        int64       `json:"snapshot_id,omitempty"`
	Timestamp         time.Time   `json:"timestamp"`
	TotalShares       sdkmath.Int `json:"total_shares"`
	TotalStakedAssets sdkmath.Int `json:"total_staked_assets"`
	AccruedFeeAssets  sdkmath.Int `json:"accrued_fee_assets"`
	DepositCap        sdkmath.Int `json:"deposit_cap"`
	FeeRateBps        int64       `json:"fee_rate_bps"`
	HolderCount       int         `json:"holder_count"`
	PriceX128         sdkmath.Int `json:"price_x128"`
}
