package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/domain/market"
	"tradepilot/internal/domain/model"
)

func feed(t *testing.T, prices []float64, volume float64) market.Snapshot {
	t.Helper()
	st := market.NewSymbolState("BTC", model.DefaultTokenParams())
	for _, p := range prices {
		require.True(t, st.Update(p, volume))
	}
	return st.Snapshot()
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
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

func TestGenerateInsufficientData(t *testing.T) {
	g := NewSignalGenerator()

	sig := g.Generate(market.Snapshot{Symbol: "BTC"})
	assert.Equal(t, model.VerdictWait, sig.Verdict)
	assert.Equal(t, model.ReasonInsufficientData, sig.Reason)

	sig = g.Generate(feed(t, rising(20), 0))
	assert.Equal(t, model.VerdictWait, sig.Verdict)
	assert.Equal(t, model.ReasonInsufficientData, sig.Reason)
	assert.Zero(t, sig.Strength)
}

func TestGenerateSteadyUptrend(t *testing.T) {
	sig := NewSignalGenerator().Generate(feed(t, rising(60), 0))

	assert.Equal(t, model.RegimeTrending, sig.Regime)
	assert.True(t, sig.Verdict.IsBuy(), "verdict %s", sig.Verdict)
	assert.Greater(t, sig.Bullish, sig.Bearish)
	assert.Greater(t, sig.Strength, ThresholdsFor(model.RegimeTrending).Min)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
	assert.Equal(t, 1.0, sig.Breakdown.Trend.Direction)
	assert.Equal(t, "overbought", sig.Breakdown.RSI.Label)
}

func TestGenerateDeviationWindow(t *testing.T) {
	snap := feed(t, rising(60), 0)
	// 窗口为最近 10 个价格：150 ... 159
	require.Equal(t, 150.0, snap.Prices[len(snap.Prices)-10])

	sig := NewSignalGenerator().Generate(snap)
	want := fmt.Sprintf("deviation %.2f%% over 10 ticks", (159.0-150.0)/150.0*100)
	assert.Contains(t, sig.Reasons, want)
}

func TestGenerateFlatSeriesWaits(t *testing.T) {
	sig := NewSignalGenerator().Generate(feed(t, flat(60, 100), 0))

	assert.Equal(t, model.RegimeChoppy, sig.Regime)
	assert.Equal(t, model.VerdictWait, sig.Verdict)
	assert.Equal(t, model.ReasonBelowThreshold, sig.Reason)
	assert.Equal(t, "flat", sig.Breakdown.Bollinger.Label)
	assert.Zero(t, sig.Confidence)
}

func TestGenerateDoesNotMutateSnapshot(t *testing.T) {
	snap := feed(t, rising(60), 10)
	before := append([]float64(nil), snap.Prices...)
	NewSignalGenerator().Generate(snap)
	assert.Equal(t, before, snap.Prices)
}

func TestScoresBounded(t *testing.T) {
	g := NewSignalGenerator()
	series := [][]float64{rising(60), flat(60, 50)}
	zig := make([]float64, 80)
	for i := range zig {
		zig[i] = 100 + float64(i%7)*3 - float64(i%3)*2
	}
	series = append(series, zig)

	for _, s := range series {
		sig := g.Generate(feed(t, s, 5))
		assert.GreaterOrEqual(t, sig.Bullish, 0.0)
		assert.LessOrEqual(t, sig.Bullish, 1.0)
		assert.GreaterOrEqual(t, sig.Bearish, 0.0)
		assert.LessOrEqual(t, sig.Bearish, 1.0)
		assert.True(t, sig.Regime.Valid())
	}
}

func TestAnalyzeVolume(t *testing.T) {
	s := analyzeVolume(true, 3, 101, 100, 1.5)
	assert.Equal(t, 1.0, s.Direction)
	assert.Equal(t, "confirm_up", s.Label)
	assert.InDelta(t, 1.0, s.Strength, 1e-12)

	s = analyzeVolume(true, 1.8, 100.05, 100, 1.5)
	assert.Equal(t, "accumulation", s.Label)
	assert.Equal(t, 0.5, s.Direction)

	s = analyzeVolume(false, 1, 100, 100, 1.5)
	assert.Equal(t, "n/a", s.Label)
	assert.Zero(t, s.Direction)
}

func TestAnalyzeTrend(t *testing.T) {
	assert.Equal(t, -1.0, analyzeTrend(90, 95, 100).Direction)
	assert.Equal(t, 1.0, analyzeTrend(110, 105, 100).Direction)
	assert.Zero(t, analyzeTrend(100, 105, 100).Direction)
}
