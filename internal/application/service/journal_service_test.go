package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

func TestJournalServicePublishes(t *testing.T) {
	repo := newMockRepository()
	pub := &mockPublisher{}
	j := NewJournalService(repo, pub)
	ctx := context.Background()

	j.Decision(ctx, model.Decision{ID: "d1", Symbol: "WETH", Ts: 42})
	j.Trade(ctx, model.Order{ID: "o1", Symbol: "WETH", CreatedAt: time.UnixMilli(43)}, model.Fill{Success: true})
	require.NoError(t, j.Snapshot(ctx, time.UnixMilli(44), map[string]int{"n": 1}))

	require.Len(t, pub.events, 3)
	assert.Equal(t, port.EventDecision, pub.events[0].Type)
	assert.Equal(t, int64(42), pub.events[0].Ts)
	assert.Equal(t, port.EventTrade, pub.events[1].Type)
	assert.Equal(t, port.EventSnapshot, pub.events[2].Type)

	assert.Len(t, repo.decisions, 1)
	assert.Len(t, repo.trades, 1)
	assert.Equal(t, []string{`{"n":1}`}, repo.snapshots)
}

func TestJournalServiceToleratesRepoFailure(t *testing.T) {
	repo := newMockRepository()
	repo.fail = true
	j := NewJournalService(repo, nil)
	ctx := context.Background()

	j.Decision(ctx, model.Decision{Symbol: "WETH"})
	assert.NoError(t, j.Snapshot(ctx, time.Now(), struct{}{}))
	assert.Empty(t, repo.decisions)
}
