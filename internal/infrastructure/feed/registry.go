package feed

import (
	"fmt"
	"sort"
	"time"

	"tradepilot/internal/application/port"

	"github.com/rs/zerolog/log"
)

// Options 构造行情源所需的参数
type Options struct {
	Symbols     []string
	Seed        int64
	Drift       float64
	Volatility  float64
	StartPrices map[string]float64
	ReplayPath  string
	Clock       func() time.Time
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Factory 按配置创建行情源
type Factory func(opts Options) (port.PriceFeed, error)

// registry maps feed kinds to their factories
var registry = make(map[string]Factory)

// Register 注册一种行情源，由各实现的 init() 调用
func Register(kind string, factory Factory) {
	if factory == nil {
		log.Warn().Str("kind", kind).Msg("invalid price feed factory")
		return
	}
	if _, exists := registry[kind]; exists {
		log.Warn().Str("kind", kind).Msg("price feed factory already registered, overwriting")
	}
	registry[kind] = factory
}

// Get 获取已注册的 factory
func Get(kind string) (Factory, bool) {
	factory, ok := registry[kind]
	return factory, ok
}

// Kinds 已注册的类型，排序后返回
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New 按 kind 创建行情源
func New(kind string, opts Options) (port.PriceFeed, error) {
	factory, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown feed kind %q (registered: %v)", kind, Kinds())
	}
	return factory(opts)
}
