package port

import (
	"context"

	"tradepilot/internal/domain/model"
)

// StateStore 持仓状态持久化 {symbol: {qty, cost, trailingHigh}}
type StateStore interface {
	Load(ctx context.Context) (model.Book, error)
	Save(ctx context.Context, book model.Book) error
}
