// ./internal/state/snapshot_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gammaworks/yvm/internal/types"
)

// SaveVaultSnapshot persists a complete image of the vault's accounting state.
func SaveVaultSnapshot(snapshot types.VaultSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO vault_snapshots (
			snapshot_timestamp, total_shares, total_staked_assets, accrued_fee_assets,
			deposit_cap, fee_rate_bps, holder_count, price_x128
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		snapshot.Timestamp,
		snapshot.TotalShares.String(), snapshot.TotalStakedAssets.String(), snapshot.AccruedFeeAssets.String(),
		snapshot.DepositCap.String(), snapshot.FeeRateBps, snapshot.HolderCount, snapshot.PriceX128.String(),
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save vault snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("total_shares", snapshot.TotalShares.String()).
		Str("total_staked_assets", snapshot.TotalStakedAssets.String()).
		Msg("Vault snapshot saved to database")

	return snapshotID, nil
}

// LoadLatestSnapshot returns the most recent vault snapshot, or nil if no
// snapshot has ever been saved. Used at startup to resume accounting totals.
func LoadLatestSnapshot() (*types.VaultSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, snapshot_timestamp, total_shares, total_staked_assets,
		       accrued_fee_assets, deposit_cap, fee_rate_bps, holder_count, price_x128
		FROM vault_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`

	var snapshot types.VaultSnapshot
	var totalShares, totalStaked, accruedFees, depositCap, price string

	err := DB.QueryRow(query).Scan(
		&snapshot.SnapshotID, &snapshot.Timestamp,
		&totalShares, &totalStaked, &accruedFees, &depositCap,
		&snapshot.FeeRateBps, &snapshot.HolderCount, &price,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest vault snapshot: %w", err)
	}

	snapshot.TotalShares, err = parseNumeric(totalShares, "total_shares")
	if err != nil {
		return nil, err
	}
	snapshot.TotalStakedAssets, err = parseNumeric(totalStaked, "total_staked_assets")
	if err != nil {
		return nil, err
	}
	snapshot.AccruedFeeAssets, err = parseNumeric(accruedFees, "accrued_fee_assets")
	if err != nil {
		return nil, err
	}
	snapshot.DepositCap, err = parseNumeric(depositCap, "deposit_cap")
	if err != nil {
		return nil, err
	}
	snapshot.PriceX128, err = parseNumeric(price, "price_x128")
	if err != nil {
		return nil, err
	}

	return &snapshot, nil
}
