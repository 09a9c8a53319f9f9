package execution

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

// PaperConfig 模拟成交参数
type PaperConfig struct {
	FeeRate     float64 // 按成交额收取，0.002 = 0.2%
	SpreadRate  float64 // 买入付出半个点差，卖出让出半个点差
	SlippageBps float64 // 额外随机滑点上限
	Seed        int64
}

// Paper 纸面成交，不连接任何交易所
type Paper struct {
	cfg   PaperConfig
	clock func() time.Time

	mu    sync.Mutex
	rng   *rand.Rand
	fills int
}

func NewPaper(cfg PaperConfig) *Paper {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Paper{cfg: cfg, clock: time.Now, rng: rand.New(rand.NewSource(seed))}
}

func (p *Paper) SetClock(clock func() time.Time) { p.clock = clock }

func (p *Paper) Name() string { return "paper" }

// Fills 成功成交笔数
func (p *Paper) Fills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fills
}

func (p *Paper) Execute(ctx context.Context, o model.Order) (model.Fill, error) {
	fill := model.Fill{OrderID: o.ID, FilledAt: p.clock()}
	if err := ctx.Err(); err != nil {
		fill.Error = err.Error()
		return fill, fmt.Errorf("%w: %v", port.ErrExecutionFailed, err)
	}
	if !o.Quantity.IsPositive() || !o.Price.IsPositive() {
		fill.Error = "invalid order quantity or price"
		return fill, fmt.Errorf("%w: %s qty=%s price=%s", port.ErrExecutionFailed, o.Symbol, o.Quantity, o.Price)
	}

	p.mu.Lock()
	noise := 0.0
	if p.cfg.SlippageBps > 0 {
		noise = p.rng.Float64() * p.cfg.SlippageBps / 10000
	}
	p.fills++
	p.mu.Unlock()

	adj := p.cfg.SpreadRate/2 + noise
	if o.Side == model.SideSell {
		adj = -adj
	}
	price := o.Price.Mul(decimal.NewFromFloat(1 + adj))
	fee := o.Quantity.Mul(price).Mul(decimal.NewFromFloat(p.cfg.FeeRate))

	fill.Success = true
	fill.Quantity = o.Quantity
	fill.Price = price
	fill.Fee = fee
	log.Debug().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Str("qty", o.Quantity.String()).
		Str("price", price.StringFixed(6)).
		Str("fee", fee.StringFixed(6)).
		Msg("paper fill")
	return fill, nil
}

// DryRun 只记录日志，按参考价零费用成交
type DryRun struct {
	clock func() time.Time
}

func NewDryRun() *DryRun { return &DryRun{clock: time.Now} }

func (d *DryRun) Name() string { return "dryrun" }

func (d *DryRun) Execute(ctx context.Context, o model.Order) (model.Fill, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	log.Info().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Str("qty", o.Quantity.String()).
		Str("reason", o.Reason).
		Msg("dry run: order not sent")
	return model.Fill{
		OrderID:  o.ID,
		Success:  true,
		Quantity: o.Quantity,
		Price:    o.Price,
		Fee:      decimal.Zero,
		FilledAt: d.clock(),
	}, nil
}

var (
	_ port.OrderExecutor = (*Paper)(nil)
	_ port.OrderExecutor = (*DryRun)(nil)
)
