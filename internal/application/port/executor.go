package port

import (
	"context"
	"errors"

	"tradepilot/internal/domain/model"
)

// ErrExecutionFailed 下单失败（网络、拒单、余额不足）
var ErrExecutionFailed = errors.New("execution failed")

// OrderExecutor 每条决策腿调用一次
type OrderExecutor interface {
	Name() string
	Execute(ctx context.Context, order model.Order) (model.Fill, error)
}
