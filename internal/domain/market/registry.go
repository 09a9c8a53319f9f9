package market

import (
	"strings"
	"sync"

	"tradepilot/internal/domain/model"
)

// ParamsFunc resolves strategy parameters for a symbol.
type ParamsFunc func(symbol string) model.TokenParams

// Registry owns one SymbolState per symbol. States are created only by Ensure.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	states map[string]*SymbolState
	params ParamsFunc
}

func NewRegistry(params ParamsFunc) *Registry {
	if params == nil {
		params = func(string) model.TokenParams { return model.DefaultTokenParams() }
	}
	return &Registry{states: make(map[string]*SymbolState), params: params}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Ensure returns the state for symbol, creating it on first use.
func (r *Registry) Ensure(symbol string) *SymbolState {
	sym := normalize(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[sym]; ok {
		return st
	}
	st := NewSymbolState(sym, r.params(sym))
	r.states[sym] = st
	r.order = append(r.order, sym)
	return st
}

// Get never creates a state.
func (r *Registry) Get(symbol string) (*SymbolState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.states[normalize(symbol)]
	return st, ok
}

// Symbols in insertion order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
