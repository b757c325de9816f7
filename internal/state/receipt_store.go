// ./internal/state/receipt_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gammaworks/yvm/internal/types"
)

// SaveOperationReceipt persists a user-facing vault operation, successful or
// rejected. Rejected operations are kept too: the audit trail covers every
// attempt, not just the ones that moved funds.
func SaveOperationReceipt(receipt types.OperationReceipt) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var receiver sql.NullString
	if receipt.Receiver != "" {
		receiver = sql.NullString{String: receipt.Receiver, Valid: true}
	}
	var errorMessage sql.NullString
	if receipt.ErrorMessage != "" {
		errorMessage = sql.NullString{String: receipt.ErrorMessage, Valid: true}
	}

	query := `
		INSERT INTO operation_receipts (
			operation_timestamp, operation_type, caller, receiver,
			asset_amount, share_amount, success, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING receipt_id;
	`

	var receiptID int64
	err := DB.QueryRow(
		query,
		receipt.Timestamp, string(receipt.Type), receipt.Caller, receiver,
		receipt.AssetAmount.String(), receipt.ShareAmount.String(),
		receipt.Success, errorMessage,
	).Scan(&receiptID)

	if err != nil {
		return 0, fmt.Errorf("failed to save operation receipt: %w", err)
	}

	log.Debug().
		Int64("receipt_id", receiptID).
		Str("type", string(receipt.Type)).
		Str("caller", receipt.Caller).
		Bool("success", receipt.Success).
		Msg("Operation receipt saved to database")

	return receiptID, nil
}

// GetRecentReceipts retrieves the most recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT receipt_id, operation_timestamp, operation_type, caller, receiver,
		       asset_amount, share_amount, success, error_message
		FROM operation_receipts
		ORDER BY operation_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.OperationReceipt
	for rows.Next() {
		var receipt types.OperationReceipt
		var opType string
		var receiver, errorMessage sql.NullString
		var assetAmount, shareAmount string

		err := rows.Scan(
			&receipt.ReceiptID, &receipt.Timestamp, &opType, &receipt.Caller, &receiver,
			&assetAmount, &shareAmount, &receipt.Success, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation receipt row: %w", err)
		}

		receipt.Type = types.OperationType(opType)
		receipt.Receiver = receiver.String
		receipt.ErrorMessage = errorMessage.String
		receipt.AssetAmount, err = parseNumeric(assetAmount, "asset_amount")
		if err != nil {
			return nil, err
		}
		receipt.ShareAmount, err = parseNumeric(shareAmount, "share_amount")
		if err != nil {
			return nil, err
		}

		receipts = append(receipts, receipt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation receipt rows: %w", err)
	}

	return receipts, nil
}
