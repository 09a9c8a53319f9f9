// Package indicator contains the technical indicators used by the signal
// engine. Every function is pure. A false second return value means the
// lookback window is not filled yet and the result must be ignored.
package indicator

import "math"

// NextEMA advances an exponential moving average by one price.
// A nil prev is a cold start and returns price unchanged.
func NextEMA(prev *float64, price float64, length int) float64 {
	if prev == nil || length <= 0 {
		return price
	}
	k := 2.0 / float64(length+1)
	return (price-*prev)*k + *prev
}

// SMA is the arithmetic mean, 0 for an empty slice.
func SMA(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stdev is the sample standard deviation (n-1). Returns 0 for n < 2.
func Stdev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := SMA(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// RSI sentinels for series without losses.
const (
	RSIFlat    = 50.0  // no gains and no losses
	RSINoLoss  = 100.0 // gains only
	rsiMaximum = 100.0
)

// RSI computes Wilder's relative strength index. The first period deltas
// seed the average gain/loss, later deltas are Wilder-smoothed.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	p := float64(period)
	for i := period + 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return RSIFlat, true
	case avgLoss == 0:
		return RSINoLoss, true
	}
	rs := avgGain / avgLoss
	return rsiMaximum - rsiMaximum/(1+rs), true
}

// Bands is a Bollinger band snapshot.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	StdDev float64 `json:"std"`
}

// Width is Upper-Lower.
func (b Bands) Width() float64 { return b.Upper - b.Lower }

// Bollinger returns SMA ± mult·stdev over the trailing period.
func Bollinger(prices []float64, period int, mult float64) (Bands, bool) {
	if period <= 0 || len(prices) < period {
		return Bands{}, false
	}
	window := prices[len(prices)-period:]
	mid := SMA(window)
	sd := Stdev(window)
	return Bands{
		Upper:  mid + mult*sd,
		Middle: mid,
		Lower:  mid - mult*sd,
		StdDev: sd,
	}, true
}

// MACDValue holds the last bar of a MACD computation.
type MACDValue struct {
	Line          float64 `json:"macd"`
	Signal        float64 `json:"signal"`
	Histogram     float64 `json:"histogram"`
	PrevHistogram float64 `json:"prev_histogram"`
}

// MACD computes EMA(fast)-EMA(slow) and an EMA(signalPeriod) of that line.
// It needs enough prices for signalPeriod+1 MACD points so the previous
// histogram is defined as well.
func MACD(prices []float64, fast, slow, signalPeriod int) (MACDValue, bool) {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || fast >= slow {
		return MACDValue{}, false
	}
	if len(prices)-(slow-1) < signalPeriod+1 {
		return MACDValue{}, false
	}

	var emaFast, emaSlow, sig *float64
	var hist, prevHist, line, sigVal float64
	for i, p := range prices {
		f := NextEMA(emaFast, p, fast)
		s := NextEMA(emaSlow, p, slow)
		emaFast, emaSlow = &f, &s
		if i < slow-1 {
			continue
		}
		line = f - s
		sigVal = NextEMA(sig, line, signalPeriod)
		sig = &sigVal
		prevHist = hist
		hist = line - sigVal
	}
	return MACDValue{Line: line, Signal: sigVal, Histogram: hist, PrevHistogram: prevHist}, true
}

// ATR approximates the average true range from a close-only series:
// true range degenerates to |p[i]-p[i-1]|.
func ATR(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	start := len(prices) - period
	sum := 0.0
	for i := start; i < len(prices); i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}
	return sum / float64(period), true
}

// ADX is a directional movement proxy built from log-returns. The last
// period returns are exponentiated back into a relative price path, and
// DX = 100·|ΣDM+ − ΣDM−| / (ΣDM+ + ΣDM−). A path without movement is 0.
func ADX(returns []float64, period int) (float64, bool) {
	if period <= 0 || len(returns) < period {
		return 0, false
	}
	window := returns[len(returns)-period:]
	level, cum := 1.0, 0.0
	var plus, minus float64
	for _, r := range window {
		cum += r
		next := math.Exp(cum)
		d := next - level
		if d > 0 {
			plus += d
		} else {
			minus -= d
		}
		level = next
	}
	if plus+minus == 0 {
		return 0, true
	}
	return 100 * math.Abs(plus-minus) / (plus + minus), true
}

// LogReturn is ln(price/prev). Non-positive inputs yield false.
func LogReturn(prev, price float64) (float64, bool) {
	if prev <= 0 || price <= 0 {
		return 0, false
	}
	return math.Log(price / prev), true
}

// Valid reports whether price is usable (finite and positive).
func Valid(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}
