/*

This file defines the error taxonomy shared across the YVM system. Every mutating
vault operation rejects with one of these sentinels (possibly wrapped with
additional context via errors.Join / fmt.Errorf %w) and commits no partial state.

*/

package types

import "errors"

// Error definitions for zero-tolerance error handling
var (
	// ErrDepositCapExceeded is returned when a deposit would push the staked
	// total above the configured cap. Deposits are rejected, never clamped.
	ErrDepositCapExceeded = errors.New("deposit cap exceeded")

	// ErrInsufficientShares is returned when a withdrawal requires more shares
	// than the owner holds.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrInsufficientStakedBalance is returned when an unstake request exceeds
	// the externally staked balance.
	ErrInsufficientStakedBalance = errors.New("insufficient staked balance")

	// ErrFeeOutOfBounds is returned when a fee-rate change exceeds the ceiling.
	ErrFeeOutOfBounds = errors.New("fee out of bounds")

	// ErrZeroAmount is returned for zero-amount deposits and withdrawals. These
	// are rejected rather than treated as no-ops to avoid masking caller bugs.
	ErrZeroAmount = errors.New("amount is zero")

	// ErrStaleOracle is returned when a price feed's last update is older than
	// the configured maximum age. Prices are never estimated around staleness.
	ErrStaleOracle = errors.New("oracle price is stale")

	// ErrOracleUnavailable is returned when a price feed cannot be queried.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrExternalCallFailed is returned when a staking, swap, or custody call
	// fails. The enclosing operation aborts; it is never retried automatically.
	ErrExternalCallFailed = errors.New("external call failed")

	// ErrUnauthorized is returned when a non-admin caller invokes an admin-gated
	// operation (cap or fee-rate changes).
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrInvalidReceiver is returned when a deposit or withdrawal names an empty
	// receiver or owner identity.
	ErrInvalidReceiver = errors.New("receiver identity is invalid")

	// ErrStateDesynced signals the fatal ledger invariant violation of nonzero
	// shares with zero assets. It must never be swallowed or approximated.
	ErrStateDesynced = errors.New("share ledger desynchronized from asset total")
)
