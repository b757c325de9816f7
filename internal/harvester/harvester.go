/*

This file contains the autonomous harvest loop. On a fixed interval it claims
accrued staking rewards, routes them through the fee engine, and persists the
resulting harvest record and a fresh vault snapshot. A failed cycle is logged
and skipped; the loop never dies on a single bad cycle.

*/

package harvester

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/state"
	"github.com/gammaworks/yvm/internal/vault"
)

// Harvester drives periodic reward compounding against a single vault.
type Harvester struct {
	logger zerolog.Logger
	vault  *vault.Vault

	cycleCount int
}

// New creates a harvester bound to the given vault.
func New(v *vault.Vault) (*Harvester, error) {
	if v == nil {
		return nil, fmt.Errorf("vault cannot be nil")
	}
	return &Harvester{
		logger: logger.GetForComponent("harvester"),
		vault:  v,
	}, nil
}

// RunLoop starts the harvest loop with the specified interval. The first cycle
// runs immediately; the loop exits when ctx is cancelled.
func (h *Harvester) RunLoop(ctx context.Context, interval time.Duration) {
	h.logger.Info().
		Dur("interval", interval).
		Msg("Starting harvest loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.cycleCount++
	h.logger.Info().Int("cycle", h.cycleCount).Msg("Initiating harvest cycle")
	h.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("Harvest loop stopped due to context cancellation")
			return
		case <-ticker.C:
			h.cycleCount++
			h.logger.Info().Int("cycle", h.cycleCount).Msg("Initiating harvest cycle")
			h.RunCycle(ctx)
		}
	}
}

// RunCycle executes one claim-route-restake pass and persists the outcome.
func (h *Harvester) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := h.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting harvest cycle ---")

	record, err := h.vault.HarvestFees(ctx)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: harvest failed")
		return
	}
	if record == nil {
		cycleLogger.Info().Msg("No rewards accrued, nothing to persist")
		return
	}

	recordID, err := state.SaveHarvestRecord(*record)
	if err != nil {
		// The restake already committed; losing the record costs history, not funds.
		cycleLogger.Error().Err(err).Msg("Failed to persist harvest record")
	} else {
		record.RecordID = recordID
	}

	snapshot := h.vault.Snapshot(ctx)
	if _, err := state.SaveVaultSnapshot(snapshot); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to persist vault snapshot")
	}

	cycleLogger.Info().
		Str("claimed", record.ClaimedRewards.String()).
		Str("restaked", record.RestakedAssets.String()).
		Str("feeAssets", record.FeeAssets.String()).
		Dur("duration", time.Since(cycleStartTime)).
		Msg("--- Harvest cycle completed ---")
}
