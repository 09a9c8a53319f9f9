package port

import (
	"context"
	"errors"

	"tradepilot/internal/domain/model"
)

// ErrPriceUnavailable 报价缺失或无效，本周期跳过该标的
var ErrPriceUnavailable = errors.New("price unavailable")

type PriceFeed interface {
	Name() string
	// GetPrice 拉取最新报价，失败时返回包装了 ErrPriceUnavailable 的错误
	GetPrice(ctx context.Context, symbol string) (model.Quote, error)
}
