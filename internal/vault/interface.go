package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// TokenCustody abstracts fungible-asset transfer mechanics for the tokens the
// vault touches (pooled asset, reward token, derivative asset). Amounts are
// non-negative integers in each token's native base unit. Token transfer
// internals are an external-collaborator concern; the vault only relies on
// these capabilities.
type TokenCustody interface {
	// TransferIn pulls amount of token from the holder into vault custody.
	TransferIn(ctx context.Context, token, from string, amount sdkmath.Int) error

	// TransferOut pushes amount of token from vault custody to the holder.
	TransferOut(ctx context.Context, token, to string, amount sdkmath.Int) error

	// BalanceOf reports the holder's balance of token.
	BalanceOf(ctx context.Context, token, holder string) (sdkmath.Int, error)
}

// DerivativeConverter is the external pool's own liquidity-provision path,
// used to move between a secondary (derivative) asset and the pooled asset.
// The conversion rate is whatever the pool quotes at call time; the vault does
// not second-guess or clamp it.
type DerivativeConverter interface {
	// AddLiquidity converts derivativeAmount of the secondary asset into the
	// pooled asset and returns the amount received.
	AddLiquidity(ctx context.Context, derivativeAmount sdkmath.Int) (sdkmath.Int, error)

	// RemoveLiquidity converts assetAmount of the pooled asset back into the
	// secondary asset and returns the amount received.
	RemoveLiquidity(ctx context.Context, assetAmount sdkmath.Int) (sdkmath.Int, error)
}
