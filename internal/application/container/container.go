package container

import (
	"time"

	"tradepilot/internal/application/port"
	"tradepilot/internal/application/service"
	"tradepilot/internal/application/usecase/agent"
	"tradepilot/internal/domain/market"
	dsvc "tradepilot/internal/domain/service"
)

// Options 领域服务参数，由基础设施层从配置翻译而来
type Options struct {
	Params market.ParamsFunc

	Capital        float64
	QuoteAsset     string
	DryRun         bool
	MaxDailyTrades int

	MaxPortfolioHeat float64
	MaxPositionRisk  float64

	TPBps            float64
	SLBps            float64
	TrailBps         float64
	UseTrailing      bool
	MaxChunkFraction float64

	SpreadRate float64
	FeeRate    float64

	Executor  port.OrderExecutor
	Store     port.StateStore
	Publisher port.Publisher
}

// AgentOptions 轮询循环参数
type AgentOptions struct {
	Feed          port.PriceFeed
	Sink          port.Sink
	Symbols       []string
	PollInterval  time.Duration
	SnapshotEvery time.Duration
	Color         bool
}

// Container 按需创建并缓存服务，所有服务共享同一个风控、节流与行情状态
type Container struct {
	repo port.Repository
	opts Options

	registry *market.Registry
	risk     *dsvc.RiskManager
	guard    *dsvc.TradeGuard

	priceService    *service.PriceService
	journalService  *service.JournalService
	decisionService *service.DecisionService
	tradeService    *service.TradeService
}

func New(repo port.Repository, opts Options) *Container {
	if repo == nil {
		repo = agent.NewNoopRepo()
	}
	return &Container{
		repo: repo,
		opts: opts,
	}
}

func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) Registry() *market.Registry {
	if c.registry == nil {
		c.registry = market.NewRegistry(c.opts.Params)
	}
	return c.registry
}

func (c *Container) Risk() *dsvc.RiskManager {
	if c.risk == nil {
		c.risk = dsvc.NewRiskManager()
		c.risk.SetLimits(c.opts.MaxPortfolioHeat, c.opts.MaxPositionRisk)
	}
	return c.risk
}

func (c *Container) Guard() *dsvc.TradeGuard {
	if c.guard == nil {
		c.guard = dsvc.NewTradeGuard(c.opts.MaxDailyTrades)
	}
	return c.guard
}

func (c *Container) PriceService() *service.PriceService {
	if c.priceService == nil {
		c.priceService = service.NewPriceService(c.Registry(), c.repo)
	}
	return c.priceService
}

func (c *Container) JournalService() *service.JournalService {
	if c.journalService == nil {
		c.journalService = service.NewJournalService(c.repo, c.opts.Publisher)
	}
	return c.journalService
}

func (c *Container) DecisionService() *service.DecisionService {
	if c.decisionService == nil {
		costs := dsvc.NewCostEstimator(c.opts.SpreadRate, c.opts.FeeRate)
		c.decisionService = service.NewDecisionService(c.Registry(), c.Risk(), c.Guard(), costs)
	}
	return c.decisionService
}

func (c *Container) TradeService() *service.TradeService {
	if c.tradeService == nil {
		exits := dsvc.NewExitMonitor(c.opts.TPBps, c.opts.SLBps, c.opts.TrailBps, c.opts.UseTrailing)
		if c.opts.MaxChunkFraction > 0 {
			exits.MaxChunkFraction = c.opts.MaxChunkFraction
		}
		c.tradeService = service.NewTradeService(service.TradeDeps{
			Executor:   c.opts.Executor,
			Store:      c.opts.Store,
			Risk:       c.Risk(),
			Guard:      c.Guard(),
			Exits:      exits,
			Journal:    c.JournalService(),
			QuoteAsset: c.opts.QuoteAsset,
			Capital:    c.opts.Capital,
			DryRun:     c.opts.DryRun,
		})
	}
	return c.tradeService
}

// Agent 组装轮询循环
func (c *Container) Agent(ao AgentOptions) *agent.Service {
	return agent.NewService(agent.ServiceDeps{
		Feed:          ao.Feed,
		Symbols:       ao.Symbols,
		PollInterval:  ao.PollInterval,
		SnapshotEvery: ao.SnapshotEvery,
		Color:         ao.Color,
		Prices:        c.PriceService(),
		Decisions:     c.DecisionService(),
		Trades:        c.TradeService(),
		Journal:       c.JournalService(),
		Risk:          c.Risk(),
		Sink:          ao.Sink,
	})
}

func (c *Container) Close() error {
	return c.repo.Close()
}
