package agent

import (
	"strings"
	"sync"

	"tradepilot/internal/domain/model"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

// Row 一个标的的显示状态
type Row struct {
	Symbol   string        `json:"symbol"`
	Price    float64       `json:"price"`
	Has      bool          `json:"has"`
	Dir      Dir           `json:"dir"`
	Verdict  model.Verdict `json:"verdict"`
	Regime   model.Regime  `json:"regime"`
	Strength float64       `json:"strength"`
	Reason   model.Reason  `json:"reason,omitempty"`
	Held     float64       `json:"held"`
	Executed bool          `json:"executed"`
}

// State 每个标的最近一次决策，供控制台与快照使用
type State struct {
	mu sync.Mutex

	order []string
	rows  map[string]*Row
}

func NewState(symbols []string) *State {
	order := make([]string, 0, len(symbols))
	rows := make(map[string]*Row, len(symbols))
	for _, s := range symbols {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, dup := rows[u]; dup {
			continue
		}
		order = append(order, u)
		rows[u] = &Row{Symbol: u, Verdict: model.VerdictWait}
	}
	return &State{order: order, rows: rows}
}

func (s *State) Symbols() []string {
	return s.order
}

// Apply 记录决策，返回价格是否变化
func (s *State) Apply(d model.Decision, held float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rows[d.Symbol]
	if r == nil {
		return false
	}
	changed := !r.Has || r.Price != d.Price
	if r.Has && d.Price > 0 {
		switch {
		case d.Price > r.Price:
			r.Dir = DirUp
		case d.Price < r.Price:
			r.Dir = DirDown
		default:
			r.Dir = DirSame
		}
	}
	if d.Price > 0 {
		r.Price = d.Price
		r.Has = true
	}
	r.Verdict = d.Signal.Verdict
	r.Regime = d.Signal.Regime
	r.Strength = d.Signal.Strength
	r.Reason = d.Reason
	r.Held = held
	r.Executed = d.Executed
	return changed
}

// MarkUnavailable 报价失败时只更新原因
func (s *State) MarkUnavailable(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.rows[symbol]; r != nil {
		r.Reason = model.ReasonPriceUnavailable
		r.Dir = DirSame
	}
}

// Snapshot 按配置顺序返回副本
func (s *State) Snapshot() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Row, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, *s.rows[sym])
	}
	return out
}
