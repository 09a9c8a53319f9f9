package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNextEMAColdStart(t *testing.T) {
	for _, p := range []float64{0.5, 1, 100, 3150.25} {
		for _, n := range []int{1, 8, 50} {
			assert.Equal(t, p, NextEMA(nil, p, n))
		}
	}
}

func TestNextEMAStep(t *testing.T) {
	prev := 10.0
	// k = 2/(3+1) = 0.5
	assert.InDelta(t, 15.0, NextEMA(&prev, 20, 3), 1e-12)
}

func TestStdev(t *testing.T) {
	assert.Equal(t, 0.0, Stdev(nil))
	assert.Equal(t, 0.0, Stdev([]float64{42}))
	assert.InDelta(t, 0.0, Stdev(flat(10, 7)), 1e-12)
	// sample stdev of 2,4,4,4,5,5,7,9 is sqrt(32/7)
	assert.InDelta(t, math.Sqrt(32.0/7.0), Stdev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestRSI(t *testing.T) {
	_, ok := RSI(ramp(14, 1, 1), 14)
	assert.False(t, ok, "needs period+1 prices")

	v, ok := RSI(flat(30, 100), 14)
	require.True(t, ok)
	assert.Equal(t, RSIFlat, v)
	assert.False(t, math.IsNaN(v))

	v, ok = RSI(ramp(30, 100, 1), 14)
	require.True(t, ok)
	assert.Equal(t, RSINoLoss, v)

	v, ok = RSI(ramp(30, 100, -1), 14)
	require.True(t, ok)
	assert.InDelta(t, 0, v, 1e-9)

	alt := make([]float64, 31)
	for i := range alt {
		alt[i] = 100
		if i%2 == 1 {
			alt[i] = 101
		}
	}
	v, ok = RSI(alt, 14)
	require.True(t, ok)
	assert.InDelta(t, 50, v, 5)
}

func TestBollinger(t *testing.T) {
	_, ok := Bollinger(ramp(19, 1, 1), 20, 2)
	assert.False(t, ok)

	b, ok := Bollinger(flat(25, 10), 20, 2)
	require.True(t, ok)
	assert.Equal(t, 10.0, b.Middle)
	assert.Equal(t, 0.0, b.Width())

	b, ok = Bollinger(ramp(40, 100, 1), 20, 2)
	require.True(t, ok)
	assert.InDelta(t, 129.5, b.Middle, 1e-9)
	assert.InDelta(t, b.Middle+2*b.StdDev, b.Upper, 1e-9)
	assert.InDelta(t, b.Middle-2*b.StdDev, b.Lower, 1e-9)
}

func TestMACDSignalIsSeparateEMA(t *testing.T) {
	_, ok := MACD(ramp(30, 100, 1), 12, 26, 9)
	assert.False(t, ok)

	// Accelerating series so the MACD line keeps moving away from its signal.
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i*i)*0.05
	}
	m, ok := MACD(prices, 12, 26, 9)
	require.True(t, ok)
	assert.Greater(t, m.Line, 0.0)
	assert.NotEqual(t, m.Line, m.Signal)
	assert.InDelta(t, m.Line-m.Signal, m.Histogram, 1e-12)
	assert.Greater(t, m.Histogram, 0.0)

	m, ok = MACD(flat(60, 5), 12, 26, 9)
	require.True(t, ok)
	assert.Equal(t, MACDValue{}, m)
}

func TestATR(t *testing.T) {
	_, ok := ATR(ramp(14, 1, 1), 14)
	assert.False(t, ok)

	v, ok := ATR(ramp(30, 100, 2), 14)
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-12)

	v, ok = ATR(flat(30, 100), 14)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestADX(t *testing.T) {
	_, ok := ADX(make([]float64, 13), 14)
	assert.False(t, ok)

	v, ok := ADX(make([]float64, 20), 14)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	up := make([]float64, 20)
	for i := range up {
		up[i] = 0.01
	}
	v, ok = ADX(up, 14)
	require.True(t, ok)
	assert.InDelta(t, 100, v, 1e-9)

	zigzag := make([]float64, 20)
	for i := range zigzag {
		zigzag[i] = 0.01
		if i%2 == 1 {
			zigzag[i] = -0.01
		}
	}
	v, ok = ADX(zigzag, 14)
	require.True(t, ok)
	assert.Less(t, v, 10.0)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(1))
	assert.False(t, Valid(0))
	assert.False(t, Valid(-3))
	assert.False(t, Valid(math.NaN()))
	assert.False(t, Valid(math.Inf(1)))
}
