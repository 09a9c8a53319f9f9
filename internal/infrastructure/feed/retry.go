package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"

	"github.com/rs/zerolog/log"
)

const jitterFraction = 0.1

// RetryConfig 指数退避参数
type RetryConfig struct {
	Retries int           // 失败后重试次数，默认 3
	Base    time.Duration // 首次等待，默认 1s
	Timeout time.Duration // 单次请求超时，0 表示不限制
}

// Retrying 对内部行情源做指数退避重试，ctx 取消时立即返回
type Retrying struct {
	inner port.PriceFeed
	cfg   RetryConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRetrying(inner port.PriceFeed, cfg RetryConfig) *Retrying {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Base <= 0 {
		cfg.Base = time.Second
	}
	return &Retrying{
		inner: inner,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Retrying) Name() string { return r.inner.Name() }

func (r *Retrying) GetPrice(ctx context.Context, symbol string) (model.Quote, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		if attempt > 0 {
			wait := r.backoff(attempt)
			log.Debug().Str("symbol", symbol).Int("attempt", attempt).Dur("wait", wait).Err(lastErr).Msg("retrying price fetch")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return model.Quote{}, fmt.Errorf("%w: %s: %v", port.ErrPriceUnavailable, symbol, ctx.Err())
			case <-timer.C:
			}
		}

		q, err := r.fetch(ctx, symbol)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrReplayExhausted) {
			break
		}
	}
	if errors.Is(lastErr, port.ErrPriceUnavailable) {
		return model.Quote{}, lastErr
	}
	return model.Quote{}, fmt.Errorf("%w: %s: %w", port.ErrPriceUnavailable, symbol, lastErr)
}

func (r *Retrying) fetch(ctx context.Context, symbol string) (model.Quote, error) {
	if r.cfg.Timeout <= 0 {
		return r.inner.GetPrice(ctx, symbol)
	}
	cctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.inner.GetPrice(cctx, symbol)
}

// backoff base * 2^(attempt-1)，±10% 抖动
func (r *Retrying) backoff(attempt int) time.Duration {
	d := r.cfg.Base << (attempt - 1)
	r.mu.Lock()
	j := (r.rng.Float64()*2 - 1) * jitterFraction
	r.mu.Unlock()
	return time.Duration(float64(d) * (1 + j))
}

var _ port.PriceFeed = (*Retrying)(nil)
