package service

import (
	"fmt"
	"sync"
	"time"

	"tradepilot/internal/domain/model"
)

// TradeGuard 交易节流：同一标的冷却期 + 每日交易次数上限
type TradeGuard struct {
	mu sync.Mutex

	MaxDailyTrades int // <= 0 表示不限

	lastTrade  map[string]time.Time // symbol -> 上次开仓时间
	day        string               // UTC 日期 2006-01-02
	dailyCount int
}

// NewTradeGuard 创建交易节流器
func NewTradeGuard(maxDaily int) *TradeGuard {
	return &TradeGuard{
		MaxDailyTrades: maxDaily,
		lastTrade:      make(map[string]time.Time),
	}
}

// Allow 检查是否允许交易（不记录）
func (g *TradeGuard) Allow(symbol string, cooldown time.Duration, now time.Time) (bool, model.Reason, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDay(now)

	// 检查 1: 每日上限
	if g.MaxDailyTrades > 0 && g.dailyCount >= g.MaxDailyTrades {
		return false, model.ReasonDailyCap, fmt.Sprintf("daily trade cap %d reached", g.MaxDailyTrades)
	}

	// 检查 2: 冷却期
	if last, ok := g.lastTrade[symbol]; ok && cooldown > 0 {
		if since := now.Sub(last); since < cooldown {
			remaining := cooldown - since
			return false, model.ReasonCooldown, fmt.Sprintf("cooldown active (%.0fs remaining)", remaining.Seconds())
		}
	}
	return true, model.ReasonNone, ""
}

// Record 记录一次成交
func (g *TradeGuard) Record(symbol string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDay(now)
	g.lastTrade[symbol] = now
	g.dailyCount++
}

// DailyCount 当日已成交次数
func (g *TradeGuard) DailyCount(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDay(now)
	return g.dailyCount
}

func (g *TradeGuard) rollDay(now time.Time) {
	d := now.UTC().Format("2006-01-02")
	if d != g.day {
		g.day = d
		g.dailyCount = 0
	}
}
