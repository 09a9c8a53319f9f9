package execution

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

// RateLimited 限制下单频率，等待期间 ctx 取消则放弃该笔
type RateLimited struct {
	inner   port.OrderExecutor
	limiter *rate.Limiter
}

func NewRateLimited(inner port.OrderExecutor, perSec float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Name() string { return r.inner.Name() }

func (r *RateLimited) Execute(ctx context.Context, o model.Order) (model.Fill, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return model.Fill{OrderID: o.ID, Error: err.Error()}, fmt.Errorf("%w: rate limit: %v", port.ErrExecutionFailed, err)
	}
	return r.inner.Execute(ctx, o)
}

// New 按 kind 创建执行器并套上限速
func New(kind string, cfg PaperConfig, perSec float64, burst int) (port.OrderExecutor, error) {
	var inner port.OrderExecutor
	switch kind {
	case "", "paper":
		inner = NewPaper(cfg)
	case "dryrun":
		inner = NewDryRun()
	default:
		return nil, fmt.Errorf("unknown execution kind %q", kind)
	}
	return NewRateLimited(inner, perSec, burst), nil
}

var _ port.OrderExecutor = (*RateLimited)(nil)
