package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

type mockRepository struct {
	mu        sync.Mutex
	latest    map[string]float64
	decisions []model.Decision
	trades    []model.Order
	closed    []model.PositionRecord
	snapshots []string
	fail      bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{latest: make(map[string]float64)}
}

var errMockRepo = errors.New("repo down")

func (m *mockRepository) UpsertLatestPrice(ctx context.Context, q model.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMockRepo
	}
	m.latest[q.Symbol] = q.Price
	return nil
}

func (m *mockRepository) InsertDecision(ctx context.Context, d model.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMockRepo
	}
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *mockRepository) InsertTrade(ctx context.Context, o model.Order, f model.Fill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMockRepo
	}
	m.trades = append(m.trades, o)
	return nil
}

func (m *mockRepository) InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, rec)
	return nil
}

func (m *mockRepository) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMockRepo
	}
	m.snapshots = append(m.snapshots, payload)
	return nil
}

func (m *mockRepository) Close() error { return nil }

// mockExecutor 以下单参考价全部成交，fee 为固定 USD
type mockExecutor struct {
	orders []model.Order
	fee    decimal.Decimal
	err    error
}

func (m *mockExecutor) Name() string { return "mock" }

func (m *mockExecutor) Execute(ctx context.Context, o model.Order) (model.Fill, error) {
	m.orders = append(m.orders, o)
	if m.err != nil {
		return model.Fill{OrderID: o.ID, Error: m.err.Error()}, m.err
	}
	return model.Fill{
		OrderID:  o.ID,
		Success:  true,
		Quantity: o.Quantity,
		Price:    o.Price,
		Fee:      m.fee,
		FilledAt: o.CreatedAt,
	}, nil
}

type memStore struct {
	book  model.Book
	saves int
}

func (m *memStore) Load(ctx context.Context) (model.Book, error) {
	if m.book == nil {
		return model.NewBook(), nil
	}
	return m.book.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, b model.Book) error {
	m.book = b.Clone()
	m.saves++
	return nil
}

type mockPublisher struct {
	events []port.Event
}

func (m *mockPublisher) Publish(ctx context.Context, ev port.Event) error {
	m.events = append(m.events, ev)
	return nil
}
