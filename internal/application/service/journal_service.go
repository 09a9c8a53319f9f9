package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

// JournalService 记录决策、成交、平仓和快照，并推送事件。
// 写失败只记录日志，不影响交易。
type JournalService struct {
	repo port.Repository
	pub  port.Publisher
}

func NewJournalService(repo port.Repository, pub port.Publisher) *JournalService {
	return &JournalService{repo: repo, pub: pub}
}

func (j *JournalService) Decision(ctx context.Context, d model.Decision) {
	if err := j.repo.InsertDecision(ctx, d); err != nil {
		log.Warn().Err(err).Str("symbol", d.Symbol).Msg("journal decision failed")
	}
	j.publish(ctx, port.Event{Type: port.EventDecision, Symbol: d.Symbol, Ts: d.Ts, Payload: d})
}

// TradeRecord 推送的成交事件
type TradeRecord struct {
	Order model.Order `json:"order"`
	Fill  model.Fill  `json:"fill"`
}

func (j *JournalService) Trade(ctx context.Context, o model.Order, f model.Fill) {
	if err := j.repo.InsertTrade(ctx, o, f); err != nil {
		log.Warn().Err(err).Str("symbol", o.Symbol).Str("order_id", o.ID).Msg("journal trade failed")
	}
	j.publish(ctx, port.Event{Type: port.EventTrade, Symbol: o.Symbol, Ts: o.CreatedAt.UnixMilli(), Payload: TradeRecord{Order: o, Fill: f}})
}

func (j *JournalService) Exit(ctx context.Context, sig model.ExitSignal, ts time.Time) {
	j.publish(ctx, port.Event{Type: port.EventExit, Symbol: sig.Symbol, Ts: ts.UnixMilli(), Payload: sig})
}

func (j *JournalService) Closed(ctx context.Context, rec model.PositionRecord) {
	if err := j.repo.InsertClosedPosition(ctx, rec); err != nil {
		log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("journal closed position failed")
	}
}

// Snapshot 以 JSON 保存周期快照
func (j *JournalService) Snapshot(ctx context.Context, ts time.Time, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := j.repo.InsertSnapshot(ctx, ts.UnixMilli(), string(b)); err != nil {
		log.Warn().Err(err).Msg("journal snapshot failed")
	}
	j.publish(ctx, port.Event{Type: port.EventSnapshot, Ts: ts.UnixMilli(), Payload: payload})
	return nil
}

func (j *JournalService) publish(ctx context.Context, ev port.Event) {
	if j.pub == nil {
		return
	}
	if err := j.pub.Publish(ctx, ev); err != nil {
		log.Debug().Err(err).Str("type", ev.Type).Msg("publish event failed")
	}
}
