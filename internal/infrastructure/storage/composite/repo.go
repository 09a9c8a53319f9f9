package composite

import (
	"context"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Len 有效后端数量
func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) each(fn func(port.Repository) error) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := fn(repo); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, q model.Quote) error {
	return r.each(func(repo port.Repository) error { return repo.UpsertLatestPrice(ctx, q) })
}

func (r *Repo) InsertDecision(ctx context.Context, d model.Decision) error {
	return r.each(func(repo port.Repository) error { return repo.InsertDecision(ctx, d) })
}

func (r *Repo) InsertTrade(ctx context.Context, o model.Order, f model.Fill) error {
	return r.each(func(repo port.Repository) error { return repo.InsertTrade(ctx, o, f) })
}

func (r *Repo) InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error {
	return r.each(func(repo port.Repository) error { return repo.InsertClosedPosition(ctx, rec) })
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	return r.each(func(repo port.Repository) error { return repo.InsertSnapshot(ctx, ts, payload) })
}

func (r *Repo) Close() error {
	return r.each(func(repo port.Repository) error { return repo.Close() })
}

// Publisher 事件同时推送给多个订阅端（WebSocket、Redis）
type Publisher struct {
	pubs []port.Publisher
}

func NewPublisher(pubs ...port.Publisher) *Publisher {
	out := make([]port.Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return &Publisher{pubs: out}
}

func (p *Publisher) Len() int { return len(p.pubs) }

func (p *Publisher) Publish(ctx context.Context, ev port.Event) error {
	var firstErr error
	for _, pub := range p.pubs {
		if err := pub.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ port.Repository = (*Repo)(nil)
	_ port.Publisher  = (*Publisher)(nil)
)
