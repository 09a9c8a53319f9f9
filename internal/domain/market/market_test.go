package market

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/domain/model"
)

func TestRingDropsOldest(t *testing.T) {
	r := NewRing[int](3)
	_, ok := r.Last()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Values())
	assert.Equal(t, []int{4, 5}, r.Tail(2))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 5, last)
}

func TestSymbolStateBuffersAreBounded(t *testing.T) {
	st := NewSymbolState("WETH", model.DefaultTokenParams())
	for i := 0; i < 300; i++ {
		require.True(t, st.Update(100+float64(i), 10))
	}
	snap := st.Snapshot()
	assert.Len(t, snap.Prices, PriceCapacity)
	assert.Len(t, snap.Volumes, VolumeCapacity)
	assert.Len(t, snap.Returns, ReturnCapacity)
	assert.Equal(t, 399.0, snap.LastPrice)
	assert.Equal(t, 300, snap.Ticks)
}

func TestSymbolStateWarmup(t *testing.T) {
	st := NewSymbolState("WBTC", model.DefaultTokenParams())
	st.Update(100, 0)
	snap := st.Snapshot()
	assert.False(t, snap.Indicators.HasEMA)
	assert.False(t, snap.Indicators.HasRSI)
	assert.False(t, snap.Indicators.HasATR)
	assert.Empty(t, snap.Returns)
	assert.Empty(t, snap.Volumes, "zero volume is not recorded")

	for i := 1; i < 15; i++ {
		st.Update(100+float64(i), 0)
	}
	snap = st.Snapshot()
	assert.True(t, snap.Indicators.HasRSI, "RSI needs period+1 prices")
	assert.True(t, snap.Indicators.HasATR)
	assert.True(t, snap.Indicators.HasADX)
	assert.False(t, snap.Indicators.HasBands)
	assert.False(t, snap.Indicators.HasEMA, "trend EMA needs 50 prices")

	for i := 15; i < 50; i++ {
		st.Update(100+float64(i), 0)
	}
	snap = st.Snapshot()
	assert.True(t, snap.Indicators.HasEMA)
	assert.True(t, snap.Indicators.HasBands)
	assert.True(t, snap.Indicators.HasMACD)
}

func TestSymbolStateRejectsInvalidPrice(t *testing.T) {
	st := NewSymbolState("SOL", model.DefaultTokenParams())
	require.True(t, st.Update(20, 5))
	before := st.Snapshot()

	for _, p := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.False(t, st.Update(p, 5))
	}
	after := st.Snapshot()
	assert.Equal(t, before, after)
}

func TestSnapshotHelpers(t *testing.T) {
	st := NewSymbolState("ARB", model.DefaultTokenParams())
	for i := 0; i < 12; i++ {
		st.Update(float64(i+1), float64(10*(i+1)))
	}
	snap := st.Snapshot()
	assert.Equal(t, 2.0, snap.PriceBack(10))
	assert.Equal(t, 12.0, snap.PriceBack(50), "short series falls back to last price")

	avg, ok := snap.AvgVolume(2)
	require.True(t, ok)
	assert.Equal(t, 115.0, avg)
}

func TestRegistryEnsure(t *testing.T) {
	calls := 0
	reg := NewRegistry(func(sym string) model.TokenParams {
		calls++
		p := model.DefaultTokenParams()
		if sym == "OP" {
			p.EMAFast = 5
		}
		return p
	})

	_, ok := reg.Get("op")
	assert.False(t, ok, "Get never creates")

	a := reg.Ensure(" op ")
	b := reg.Ensure("OP")
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 5, a.Params().EMAFast)

	reg.Ensure("ETH")
	assert.Equal(t, []string{"OP", "ETH"}, reg.Symbols())
}

func TestCheckParams(t *testing.T) {
	require.NoError(t, CheckParams(model.DefaultTokenParams()))

	p := model.DefaultTokenParams()
	p.EMATrend = PriceCapacity
	p.RSIPeriod = PriceCapacity - 1
	p.ADXPeriod = ReturnCapacity
	assert.NoError(t, CheckParams(p), "boundary values fit")

	p.EMATrend = 150
	err := CheckParams(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLookbackTooLong))
	assert.Contains(t, err.Error(), "ema_trend")

	p = model.DefaultTokenParams()
	p.ADXPeriod = 300
	p.MACDSlow, p.MACDSignal = 80, 30
	err = CheckParams(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adx_period")
	assert.Contains(t, err.Error(), "macd_slow+macd_signal")
	assert.NotContains(t, err.Error(), "ema_trend")
}

func TestLookbackAtCapacityBecomesReady(t *testing.T) {
	p := model.DefaultTokenParams()
	p.EMATrend = PriceCapacity
	require.NoError(t, CheckParams(p))

	st := NewSymbolState("WETH", p)
	for i := 0; i < PriceCapacity; i++ {
		st.Update(100+float64(i), 1)
	}
	assert.True(t, st.Snapshot().Indicators.HasEMA)
}
