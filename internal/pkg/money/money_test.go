package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(3), Round(decimal.RequireFromString("2.5")))
	assert.Equal(t, int64(2), Round(decimal.RequireFromString("2.49")))
	assert.Equal(t, int64(-3), Round(decimal.RequireFromString("-2.5")))
}

func TestApplyRate(t *testing.T) {
	assert.Equal(t, int64(75000), ApplyRate(500000, Percent(15)))
	assert.Equal(t, int64(30000), ApplyRate(300000, Percent(10)))
	assert.Equal(t, int64(1), ApplyRate(5, Percent(10)))
	assert.Equal(t, int64(0), ApplyRate(0, Percent(10)))
}

func TestMultiplier(t *testing.T) {
	assert.True(t, decimal.RequireFromString("1.1").Equal(Multiplier(Percent(10))))
}
