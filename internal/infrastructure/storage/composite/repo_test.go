package composite

import (
	"context"
	"errors"
	"testing"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

type countingRepo struct {
	err   error
	calls int
}

func (c *countingRepo) hit() error {
	c.calls++
	return c.err
}

func (c *countingRepo) UpsertLatestPrice(context.Context, model.Quote) error { return c.hit() }
func (c *countingRepo) InsertDecision(context.Context, model.Decision) error { return c.hit() }
func (c *countingRepo) InsertTrade(context.Context, model.Order, model.Fill) error {
	return c.hit()
}
func (c *countingRepo) InsertClosedPosition(context.Context, model.PositionRecord) error {
	return c.hit()
}
func (c *countingRepo) InsertSnapshot(context.Context, int64, string) error { return c.hit() }
func (c *countingRepo) Close() error                                        { return c.hit() }

func TestCompositeFanOut(t *testing.T) {
	errA := errors.New("a down")
	a := &countingRepo{err: errA}
	b := &countingRepo{}
	repo := New(a, nil, b)

	if repo.Len() != 2 {
		t.Fatalf("expected nil repo filtered, got %d", repo.Len())
	}

	ctx := context.Background()
	if err := repo.InsertDecision(ctx, model.Decision{}); !errors.Is(err, errA) {
		t.Errorf("expected first error, got %v", err)
	}
	_ = repo.UpsertLatestPrice(ctx, model.Quote{})
	_ = repo.InsertTrade(ctx, model.Order{}, model.Fill{})
	_ = repo.InsertClosedPosition(ctx, model.PositionRecord{})
	_ = repo.InsertSnapshot(ctx, 1, "{}")
	_ = repo.Close()

	if a.calls != 6 || b.calls != 6 {
		t.Errorf("every backend must see every call despite errors: a=%d b=%d", a.calls, b.calls)
	}
}

type recordingPublisher struct{ got []port.Event }

func (r *recordingPublisher) Publish(_ context.Context, ev port.Event) error {
	r.got = append(r.got, ev)
	return nil
}

func TestCompositePublisher(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	pub := NewPublisher(a, nil, b)
	if err := pub.Publish(context.Background(), port.Event{Type: port.EventTrade}); err != nil {
		t.Fatal(err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("expected both publishers to receive the event")
	}
}
