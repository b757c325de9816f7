// ./internal/state/harvest_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/gammaworks/yvm/internal/types"
)

// SaveHarvestRecord persists the outcome of a single harvest. Amounts travel
// as decimal strings so NUMERIC columns never round through floats.
func SaveHarvestRecord(record types.HarvestRecord) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO harvest_records (
			harvest_timestamp, claimed_rewards, fee_rewards, net_rewards,
			fee_assets, restaked_assets, dust_assets,
			fee_rate_bps, price_x128, total_assets, total_shares
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING record_id;
	`

	var recordID int64
	err := DB.QueryRow(
		query,
		record.Timestamp,
		record.ClaimedRewards.String(), record.FeeRewards.String(), record.NetRewards.String(),
		record.FeeAssets.String(), record.RestakedAssets.String(), record.DustAssets.String(),
		record.FeeRateBps, record.PriceX128.String(),
		record.TotalAssets.String(), record.TotalShares.String(),
	).Scan(&recordID)

	if err != nil {
		return 0, fmt.Errorf("failed to save harvest record: %w", err)
	}

	log.Info().
		Int64("record_id", recordID).
		Str("claimed_rewards", record.ClaimedRewards.String()).
		Str("fee_assets", record.FeeAssets.String()).
		Str("restaked_assets", record.RestakedAssets.String()).
		Msg("Harvest record saved to database")

	return recordID, nil
}

// GetRecentHarvests retrieves the most recent harvest records, newest first.
func GetRecentHarvests(limit int) ([]types.HarvestRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT record_id, harvest_timestamp, claimed_rewards, fee_rewards, net_rewards,
		       fee_assets, restaked_assets, dust_assets,
		       fee_rate_bps, price_x128, total_assets, total_shares
		FROM harvest_records
		ORDER BY harvest_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvest records: %w", err)
	}
	defer rows.Close()

	var records []types.HarvestRecord
	for rows.Next() {
		var record types.HarvestRecord
		var claimed, feeRewards, netRewards, feeAssets, restaked, dust, price, totalAssets, totalShares string

		err := rows.Scan(
			&record.RecordID, &record.Timestamp,
			&claimed, &feeRewards, &netRewards,
			&feeAssets, &restaked, &dust,
			&record.FeeRateBps, &price, &totalAssets, &totalShares,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan harvest record row: %w", err)
		}

		record.ClaimedRewards, err = parseNumeric(claimed, "claimed_rewards")
		if err != nil {
			return nil, err
		}
		record.FeeRewards, err = parseNumeric(feeRewards, "fee_rewards")
		if err != nil {
			return nil, err
		}
		record.NetRewards, err = parseNumeric(netRewards, "net_rewards")
		if err != nil {
			return nil, err
		}
		record.FeeAssets, err = parseNumeric(feeAssets, "fee_assets")
		if err != nil {
			return nil, err
		}
		record.RestakedAssets, err = parseNumeric(restaked, "restaked_assets")
		if err != nil {
			return nil, err
		}
		record.DustAssets, err = parseNumeric(dust, "dust_assets")
		if err != nil {
			return nil, err
		}
		record.PriceX128, err = parseNumeric(price, "price_x128")
		if err != nil {
			return nil, err
		}
		record.TotalAssets, err = parseNumeric(totalAssets, "total_assets")
		if err != nil {
			return nil, err
		}
		record.TotalShares, err = parseNumeric(totalShares, "total_shares")
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating harvest record rows: %w", err)
	}

	return records, nil
}

// parseNumeric converts a NUMERIC column value back into an integer amount.
func parseNumeric(value string, column string) (sdkmath.Int, error) {
	parsed, ok := sdkmath.NewIntFromString(value)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("failed to parse %s value %q", column, value)
	}
	return parsed, nil
}
