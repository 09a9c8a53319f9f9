package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

const defaultStartPrice = 100.0

func init() {
	Register("sim", func(opts Options) (port.PriceFeed, error) { return NewSim(opts), nil })
}

// Sim 几何随机游走行情，种子固定时结果可复现
type Sim struct {
	mu     sync.Mutex
	rng    *rand.Rand
	drift  float64
	vol    float64
	prices map[string]float64
	start  map[string]float64
	opts   Options
}

func NewSim(opts Options) *Sim {
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	start := make(map[string]float64, len(opts.StartPrices))
	for k, v := range opts.StartPrices {
		start[strings.ToUpper(k)] = v
	}
	vol := opts.Volatility
	if vol <= 0 {
		vol = 0.01
	}
	return &Sim{
		rng:    rand.New(rand.NewSource(seed)),
		drift:  opts.Drift,
		vol:    vol,
		prices: make(map[string]float64),
		start:  start,
		opts:   opts,
	}
}

func (s *Sim) Name() string { return "sim" }

func (s *Sim) GetPrice(ctx context.Context, symbol string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, fmt.Errorf("%w: %v", port.ErrPriceUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prices[symbol]
	if !ok {
		p = s.start[symbol]
		if p <= 0 {
			p = defaultStartPrice
		}
	} else {
		z := s.rng.NormFloat64()
		p *= math.Exp(s.drift - s.vol*s.vol/2 + s.vol*z)
	}
	s.prices[symbol] = p

	// 成交量围绕 1000 波动，|z| 越大放量越明显
	volume := 1000 * (1 + math.Abs(s.rng.NormFloat64()))
	return model.Quote{
		Symbol: symbol,
		Price:  p,
		Volume: volume,
		Ts:     s.opts.now().UnixMilli(),
	}, nil
}

var _ port.PriceFeed = (*Sim)(nil)
