package execution

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

func order(side model.Side, qty, price string) model.Order {
	return model.Order{
		ID:       "o1",
		Symbol:   "WETH",
		Side:     side,
		Quantity: decimal.RequireFromString(qty),
		Price:    decimal.RequireFromString(price),
	}
}

func TestPaperFillAppliesSpreadAndFee(t *testing.T) {
	p := NewPaper(PaperConfig{FeeRate: 0.002, SpreadRate: 0.001, Seed: 1})
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return ts })
	ctx := context.Background()

	buy, err := p.Execute(ctx, order(model.SideBuy, "2", "100"))
	require.NoError(t, err)
	assert.True(t, buy.Success)
	assert.True(t, buy.Price.Equal(decimal.RequireFromString("100.05")), buy.Price.String())
	assert.True(t, buy.Fee.Equal(decimal.RequireFromString("0.4002")), buy.Fee.String())
	assert.Equal(t, ts, buy.FilledAt)

	sell, err := p.Execute(ctx, order(model.SideSell, "2", "100"))
	require.NoError(t, err)
	assert.True(t, sell.Price.Equal(decimal.RequireFromString("99.95")), sell.Price.String())
	assert.Equal(t, 2, p.Fills())
}

func TestPaperSlippageBounded(t *testing.T) {
	p := NewPaper(PaperConfig{SlippageBps: 10, Seed: 3})
	for i := 0; i < 20; i++ {
		f, err := p.Execute(context.Background(), order(model.SideBuy, "1", "100"))
		require.NoError(t, err)
		px, _ := f.Price.Float64()
		assert.GreaterOrEqual(t, px, 100.0)
		assert.LessOrEqual(t, px, 100.1)
	}
}

func TestPaperRejectsInvalidOrder(t *testing.T) {
	p := NewPaper(PaperConfig{})
	f, err := p.Execute(context.Background(), order(model.SideBuy, "0", "100"))
	assert.ErrorIs(t, err, port.ErrExecutionFailed)
	assert.False(t, f.Success)
	assert.NotEmpty(t, f.Error)
}

func TestDryRunFillsAtReference(t *testing.T) {
	d := NewDryRun()
	f, err := d.Execute(context.Background(), order(model.SideSell, "1.5", "42"))
	require.NoError(t, err)
	assert.True(t, f.Price.Equal(decimal.NewFromInt(42)))
	assert.True(t, f.Fee.IsZero())
	assert.Equal(t, "dryrun", d.Name())
}

func TestRateLimitedCancel(t *testing.T) {
	r := NewRateLimited(NewPaper(PaperConfig{}), 0.001, 1)
	ctx := context.Background()

	_, err := r.Execute(ctx, order(model.SideBuy, "1", "10"))
	require.NoError(t, err, "first order uses the burst")

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = r.Execute(cctx, order(model.SideBuy, "1", "10"))
	assert.ErrorIs(t, err, port.ErrExecutionFailed)
}

func TestNewByKind(t *testing.T) {
	ex, err := New("paper", PaperConfig{}, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, "paper", ex.Name())

	ex, err = New("dryrun", PaperConfig{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "dryrun", ex.Name())

	_, err = New("binance", PaperConfig{}, 1, 1)
	assert.Error(t, err)
}
