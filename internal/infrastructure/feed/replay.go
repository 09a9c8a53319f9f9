package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

// ErrReplayExhausted 回放数据已读完
var ErrReplayExhausted = errors.New("replay exhausted")

func init() {
	Register("replay", func(opts Options) (port.PriceFeed, error) { return OpenReplay(opts.ReplayPath, opts) })
}

// Replay 按行回放 CSV：symbol,price[,volume[,ts_ms]]，首行可为表头
type Replay struct {
	mu     sync.Mutex
	ticks  map[string][]model.Quote
	cursor map[string]int
	opts   Options
}

func OpenReplay(path string, opts Options) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay %s: %w", path, err)
	}
	defer f.Close()
	r, err := NewReplay(f, opts)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return r, nil
}

func NewReplay(in io.Reader, opts Options) (*Replay, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	r := &Replay{
		ticks:  make(map[string][]model.Quote),
		cursor: make(map[string]int),
		opts:   opts,
	}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected at least symbol,price", line)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: bad price %q", line, rec[1])
		}
		q := model.Quote{Symbol: strings.ToUpper(strings.TrimSpace(rec[0])), Price: price}
		if len(rec) > 2 && rec[2] != "" {
			if q.Volume, err = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64); err != nil {
				return nil, fmt.Errorf("line %d: bad volume %q", line, rec[2])
			}
		}
		if len(rec) > 3 && rec[3] != "" {
			if q.Ts, err = strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64); err != nil {
				return nil, fmt.Errorf("line %d: bad ts %q", line, rec[3])
			}
		}
		r.ticks[q.Symbol] = append(r.ticks[q.Symbol], q)
	}
	return r, nil
}

func (r *Replay) Name() string { return "replay" }

// Remaining 某标的剩余 tick 数
func (r *Replay) Remaining(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks[symbol]) - r.cursor[symbol]
}

func (r *Replay) GetPrice(ctx context.Context, symbol string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, fmt.Errorf("%w: %v", port.ErrPriceUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.cursor[symbol]
	ticks := r.ticks[symbol]
	if i >= len(ticks) {
		return model.Quote{}, fmt.Errorf("%w: %s: %w", port.ErrPriceUnavailable, symbol, ErrReplayExhausted)
	}
	r.cursor[symbol] = i + 1

	q := ticks[i]
	if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return model.Quote{}, fmt.Errorf("%w: %s: invalid price %v", port.ErrPriceUnavailable, symbol, q.Price)
	}
	if q.Ts == 0 {
		q.Ts = r.opts.now().UnixMilli()
	}
	return q, nil
}

var _ port.PriceFeed = (*Replay)(nil)
