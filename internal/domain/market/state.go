package market

import (
	"errors"
	"fmt"
	"sync"

	"tradepilot/internal/domain/indicator"
	"tradepilot/internal/domain/model"
)

// Buffer capacities. Returns hold about four hours at one-minute polling.
const (
	PriceCapacity      = 100
	VolumeCapacity     = 100
	ReturnCapacity     = 240
	RSIHistoryCapacity = 20
)

// ErrLookbackTooLong means a period needs more samples than its buffer keeps,
// so the indicator would never become available.
var ErrLookbackTooLong = errors.New("lookback exceeds buffer capacity")

// CheckParams reports every period in p that cannot fit its buffer.
func CheckParams(p model.TokenParams) error {
	var errs []error
	need := func(name string, samples, capacity int) {
		if samples > capacity {
			errs = append(errs, fmt.Errorf("%w: %s needs %d samples, buffer holds %d", ErrLookbackTooLong, name, samples, capacity))
		}
	}
	need("ema_fast", p.EMAFast, PriceCapacity)
	need("ema_slow", p.EMASlow, PriceCapacity)
	need("ema_trend", p.EMATrend, PriceCapacity)
	need("rsi_period", p.RSIPeriod+1, PriceCapacity)
	need("bollinger_period", p.BollingerPeriod, PriceCapacity)
	need("macd_slow+macd_signal", p.MACDSlow+p.MACDSignal, PriceCapacity)
	need("atr_period", p.ATRPeriod+1, PriceCapacity)
	need("adx_period", p.ADXPeriod, ReturnCapacity)
	need("volume_period", p.VolumePeriod, VolumeCapacity)
	return errors.Join(errs...)
}

// Indicators is a copy of the derived values. A Has* flag is false until
// the matching lookback window is filled.
type Indicators struct {
	EMAFast  float64 `json:"ema_fast"`
	EMASlow  float64 `json:"ema_slow"`
	EMATrend float64 `json:"ema_trend"`
	HasEMA   bool    `json:"has_ema"`

	RSI    float64 `json:"rsi"`
	HasRSI bool    `json:"has_rsi"`

	Bands    indicator.Bands `json:"bollinger"`
	HasBands bool            `json:"has_bollinger"`

	MACD    indicator.MACDValue `json:"macd"`
	HasMACD bool                `json:"has_macd"`

	ATR    float64 `json:"atr"`
	HasATR bool    `json:"has_atr"`

	ADX    float64 `json:"adx"`
	HasADX bool    `json:"has_adx"`
}

// SymbolState holds the rolling series of one instrument and the
// indicators derived from them. Only Update mutates it.
type SymbolState struct {
	mu sync.RWMutex

	symbol string
	params model.TokenParams

	prices  *Ring[float64]
	volumes *Ring[float64]
	returns *Ring[float64]
	rsiHist *Ring[float64]

	emaFast, emaSlow, emaTrend *float64

	ind        Indicators
	lastPrice  float64
	lastVolume float64
	hasPrice   bool
	ticks      int
}

func NewSymbolState(symbol string, params model.TokenParams) *SymbolState {
	return &SymbolState{
		symbol:  symbol,
		params:  params,
		prices:  NewRing[float64](PriceCapacity),
		volumes: NewRing[float64](VolumeCapacity),
		returns: NewRing[float64](ReturnCapacity),
		rsiHist: NewRing[float64](RSIHistoryCapacity),
	}
}

func (s *SymbolState) Symbol() string { return s.symbol }

func (s *SymbolState) Params() model.TokenParams { return s.params }

// Update appends a tick and recomputes indicators. An invalid price leaves
// the state untouched and returns false. volume <= 0 means no volume data.
func (s *SymbolState) Update(price, volume float64) bool {
	if !indicator.Valid(price) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.params
	s.prices.Push(price)
	if indicator.Valid(volume) {
		s.volumes.Push(volume)
		s.lastVolume = volume
	}

	f := indicator.NextEMA(s.emaFast, price, p.EMAFast)
	sl := indicator.NextEMA(s.emaSlow, price, p.EMASlow)
	tr := indicator.NextEMA(s.emaTrend, price, p.EMATrend)
	s.emaFast, s.emaSlow, s.emaTrend = &f, &sl, &tr

	if s.hasPrice {
		if r, ok := indicator.LogReturn(s.lastPrice, price); ok {
			s.returns.Push(r)
		}
	}

	prices := s.prices.Values()
	n := len(prices)

	s.ind.EMAFast, s.ind.EMASlow, s.ind.EMATrend = f, sl, tr
	s.ind.HasEMA = n >= p.EMAFast && n >= p.EMASlow && n >= p.EMATrend

	if v, ok := indicator.RSI(prices, p.RSIPeriod); ok {
		s.ind.RSI, s.ind.HasRSI = v, true
		s.rsiHist.Push(v)
	}
	if b, ok := indicator.Bollinger(prices, p.BollingerPeriod, p.BollingerStdDev); ok {
		s.ind.Bands, s.ind.HasBands = b, true
	}
	if m, ok := indicator.MACD(prices, p.MACDFast, p.MACDSlow, p.MACDSignal); ok {
		s.ind.MACD, s.ind.HasMACD = m, true
	}
	if v, ok := indicator.ATR(prices, p.ATRPeriod); ok {
		s.ind.ATR, s.ind.HasATR = v, true
	}
	if v, ok := indicator.ADX(s.returns.Values(), p.ADXPeriod); ok {
		s.ind.ADX, s.ind.HasADX = v, true
	}

	s.lastPrice = price
	s.hasPrice = true
	s.ticks++
	return true
}

// Snapshot is an immutable view handed to the signal generator and sizer.
type Snapshot struct {
	Symbol     string
	Params     model.TokenParams
	Prices     []float64
	Volumes    []float64
	Returns    []float64
	RSIHistory []float64
	Indicators Indicators
	LastPrice  float64
	LastVolume float64
	HasPrice   bool
	Ticks      int
}

func (s *SymbolState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Symbol:     s.symbol,
		Params:     s.params,
		Prices:     s.prices.Values(),
		Volumes:    s.volumes.Values(),
		Returns:    s.returns.Values(),
		RSIHistory: s.rsiHist.Values(),
		Indicators: s.ind,
		LastPrice:  s.lastPrice,
		LastVolume: s.lastVolume,
		HasPrice:   s.hasPrice,
		Ticks:      s.ticks,
	}
}

// PriceBack returns the price k ticks before the newest one, or the last
// price when the series is shorter.
func (s Snapshot) PriceBack(k int) float64 {
	if k < len(s.Prices) {
		return s.Prices[len(s.Prices)-1-k]
	}
	return s.LastPrice
}

// AvgVolume averages up to n most recent volumes.
func (s Snapshot) AvgVolume(n int) (float64, bool) {
	if len(s.Volumes) == 0 || n <= 0 {
		return 0, false
	}
	if n > len(s.Volumes) {
		n = len(s.Volumes)
	}
	return indicator.SMA(s.Volumes[len(s.Volumes)-n:]), true
}

// Volatility is the sample stdev of the stored log-returns.
func (s Snapshot) Volatility() float64 {
	return indicator.Stdev(s.Returns)
}
