package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const closedKeep = 500

type Repo struct {
	rdb            *redis.Client
	prefix         string
	ttl            time.Duration
	keyLatest      string // prefix + ":latest"
	keySnapshot    string // prefix + ":snapshot"
	keyClosed      string // prefix + ":closed"
	tradeStream    string // prefix + ":trades"
	eventChan      string // prefix + ":events"
	decisionStream string
	decisionChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, decisionStream, decisionChan string) *Repo {
	if strings.TrimSpace(decisionStream) == "" {
		decisionStream = prefix + ":decisions"
	}
	if strings.TrimSpace(decisionChan) == "" {
		decisionChan = prefix + ":decisions:pub"
	}
	return &Repo{
		rdb:            rdb,
		prefix:         prefix,
		ttl:            ttl,
		keyLatest:      prefix + ":latest",
		keySnapshot:    prefix + ":snapshot",
		keyClosed:      prefix + ":closed",
		tradeStream:    prefix + ":trades",
		eventChan:      prefix + ":events",
		decisionStream: decisionStream,
		decisionChan:   decisionChan,
	}
}

// Close 连接由容器统一关闭
func (r *Repo) Close() error { return nil }

func (r *Repo) UpsertLatestPrice(ctx context.Context, q model.Quote) error {
	if q.Price <= 0 {
		return nil
	}
	b, _ := json.Marshal(q)

	// Hash: field = "WETH" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, q.Symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// LatestPrice 读取 Hash 中的最新报价
func (r *Repo) LatestPrice(ctx context.Context, symbol string) (model.Quote, error) {
	var q model.Quote
	raw, err := r.rdb.HGet(ctx, r.keyLatest, symbol).Result()
	if err != nil {
		return q, err
	}
	err = json.Unmarshal([]byte(raw), &q)
	return q, err
}

func (r *Repo) InsertDecision(ctx context.Context, d model.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}

	// 1) Stream: XADD <stream> * ts symbol verdict reason payload
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.decisionStream,
		Values: map[string]any{
			"ts_ms":   d.Ts,
			"symbol":  d.Symbol,
			"verdict": string(d.Signal.Verdict),
			"reason":  string(d.Reason),
			"target":  d.Target,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: 只推送可执行决策
	if !d.Actionable() {
		return nil
	}
	return r.rdb.Publish(ctx, r.decisionChan, string(payload)).Err()
}

func (r *Repo) InsertTrade(ctx context.Context, o model.Order, f model.Fill) error {
	return r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.tradeStream,
		Values: map[string]any{
			"order_id": o.ID,
			"symbol":   o.Symbol,
			"side":     string(o.Side),
			"quantity": f.Quantity.String(),
			"price":    f.Price.String(),
			"fee":      f.Fee.String(),
			"success":  f.Success,
			"error":    f.Error,
		},
	}).Err()
}

func (r *Repo) InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, r.keyClosed, string(b))
	pipe.LTrim(ctx, r.keyClosed, 0, closedKeep-1)
	_, err = pipe.Exec(ctx)
	return err
}

// InsertSnapshot 只保留最新一份快照
func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	return r.rdb.Set(ctx, r.keySnapshot, payload, r.ttl).Err()
}

// Publish 事件推送到 <prefix>:events 频道
func (r *Repo) Publish(ctx context.Context, ev port.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.eventChan, string(b)).Err()
}

var (
	_ port.Repository = (*Repo)(nil)
	_ port.Publisher  = (*Repo)(nil)
)
