package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/application/port"
	"tradepilot/internal/application/service"
	"tradepilot/internal/domain/model"
	dsvc "tradepilot/internal/domain/service"
)

type ServiceDeps struct {
	Feed          port.PriceFeed
	Symbols       []string
	PollInterval  time.Duration
	SnapshotEvery time.Duration
	Color         bool

	Prices    *service.PriceService
	Decisions *service.DecisionService
	Trades    *service.TradeService
	Journal   *service.JournalService
	Risk      *dsvc.RiskManager
	Sink      port.Sink
}

// Service 轮询循环：每个 tick 依次处理所有标的，周期之间严格串行
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	if deps.PollInterval <= 0 {
		deps.PollInterval = time.Minute
	}
	return &Service{
		deps: deps,
		st:   NewState(deps.Symbols),
		fmt:  NewFormatter(deps.Color),
	}
}

// State 最近一次周期的显示状态
func (s *Service) State() *State { return s.st }

func (s *Service) Run(ctx context.Context) error {
	if s.deps.Feed == nil {
		return errors.New("no feed")
	}
	if len(s.st.Symbols()) == 0 {
		return errors.New("no symbols")
	}
	if err := s.deps.Trades.Restore(ctx); err != nil {
		return err
	}
	log.Info().
		Str("feed", s.deps.Feed.Name()).
		Strs("symbols", s.st.Symbols()).
		Dur("poll", s.deps.PollInterval).
		Msg("agent started")

	ticker := time.NewTicker(s.deps.PollInterval)
	defer ticker.Stop()

	var snapC <-chan time.Time
	if s.deps.SnapshotEvery > 0 {
		snapTicker := time.NewTicker(s.deps.SnapshotEvery)
		defer snapTicker.Stop()
		snapC = snapTicker.C
	}

	s.Cycle(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			s.deps.Trades.Persist(context.WithoutCancel(ctx))
			s.sink(func(k port.Sink) error { return k.NewLine() })
			return ctx.Err()

		case now := <-snapC:
			s.Snapshot(ctx, now)

		case now := <-ticker.C:
			s.Cycle(ctx, now)
		}
	}
}

// Cycle 一次完整的串行处理。可在标的之间因取消而中止，已处理的标的保持一致
func (s *Service) Cycle(ctx context.Context, now time.Time) {
	for _, sym := range s.st.Symbols() {
		if ctx.Err() != nil {
			log.Info().Str("symbol", sym).Msg("cycle abandoned")
			return
		}
		s.step(ctx, sym, now)
	}
	s.deps.Trades.Persist(ctx)

	heat := s.deps.Risk.HeatStatus(s.deps.Trades.Cash())
	line := s.fmt.Render(s.st.Snapshot(), heat, RenderLive)
	s.sink(func(k port.Sink) error { return k.WriteLive(line) })
}

func (s *Service) step(ctx context.Context, sym string, now time.Time) {
	q, err := s.deps.Feed.GetPrice(ctx, sym)
	if err == nil {
		err = s.deps.Prices.UpdatePrice(ctx, q)
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", sym).Msg("price unavailable, skipping")
		s.st.MarkUnavailable(sym)
		s.deps.Journal.Decision(ctx, model.Decision{
			Symbol: sym,
			Ts:     now.UnixMilli(),
			Reason: model.ReasonPriceUnavailable,
			Note:   err.Error(),
		})
		return
	}

	if sig, hit, err := s.deps.Trades.CheckExits(ctx, sym, q.Price); hit {
		ev := log.Info()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Str("symbol", sym).
			Str("reason", string(sig.Reason)).
			Str("avg_entry", sig.AvgEntry.String()).
			Float64("price", q.Price).
			Msg("exit triggered")
		s.sink(func(k port.Sink) error {
			return k.WriteEvent(now, "EXIT "+sym+" "+string(sig.Reason)+" @ "+sig.Price.String())
		})
		return
	}

	d := s.deps.Decisions.Decide(sym, s.deps.Trades.Cash(), now)
	if err := s.deps.Trades.Apply(ctx, &d); err != nil {
		log.Error().Err(err).Str("symbol", sym).Msg("decision not executed")
	}
	s.deps.Journal.Decision(ctx, d)

	ev := log.Debug()
	if d.Actionable() {
		ev = log.Info()
	}
	ev.Str("symbol", sym).
		Str("verdict", string(d.Signal.Verdict)).
		Str("regime", string(d.Signal.Regime)).
		Float64("strength", d.Signal.Strength).
		Float64("target", d.Target).
		Str("reason", string(d.Reason)).
		Bool("executed", d.Executed).
		Msg("decision")

	if d.Executed {
		line := s.fmt.RenderTrade(d)
		s.sink(func(k port.Sink) error { return k.WriteEvent(now, line) })
	}
	held := s.deps.Trades.Book().Get(sym).Qty.InexactFloat64()
	s.st.Apply(d, held)
}

// CycleSnapshot 周期快照内容
type CycleSnapshot struct {
	Ts       int64                    `json:"ts_ms"`
	Cash     float64                  `json:"cash"`
	Risk     model.RiskReport         `json:"risk"`
	Holdings map[string]model.Holding `json:"holdings"`
	Rows     []Row                    `json:"rows"`
}

// Snapshot 写快照行并记录
func (s *Service) Snapshot(ctx context.Context, now time.Time) {
	cash := s.deps.Trades.Cash()
	rows := s.st.Snapshot()
	snap := CycleSnapshot{
		Ts:       now.UnixMilli(),
		Cash:     cash,
		Risk:     s.deps.Risk.Report(cash),
		Holdings: s.deps.Trades.Book(),
		Rows:     rows,
	}
	if err := s.deps.Journal.Snapshot(ctx, now, snap); err != nil {
		log.Warn().Err(err).Msg("snapshot encode failed")
	}
	line := s.fmt.Render(rows, snap.Risk.Heat, RenderSnapshot)
	s.sink(func(k port.Sink) error { return k.WriteSnapshot(now, line) })
}

func (s *Service) sink(fn func(port.Sink) error) {
	if s.deps.Sink == nil {
		return
	}
	_ = fn(s.deps.Sink)
}
