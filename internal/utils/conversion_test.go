package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gammaworks/yvm/internal/oracle"
)

func TestPriceX128ToFloat64(t *testing.T) {
	value, err := PriceX128ToFloat64(oracle.OneX128)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, value, 1e-12)

	value, err = PriceX128ToFloat64(oracle.OneX128.MulRaw(109).QuoRaw(100))
	require.NoError(t, err)
	assert.InDelta(t, 1.09, value, 1e-12)

	value, err = PriceX128ToFloat64(sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.Zero(t, value)

	_, err = PriceX128ToFloat64(sdkmath.Int{})
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = PriceX128ToFloat64(sdkmath.NewInt(-1))
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestBpsToPercent(t *testing.T) {
	assert.Equal(t, 10.0, BpsToPercent(1000))
	assert.Equal(t, 0.0, BpsToPercent(0))
	assert.Equal(t, 100.0, BpsToPercent(10_000))
}
