package agent

import (
	"fmt"
	"strings"

	"tradepilot/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) paint(s, c string) string {
	if !f.Color {
		return s
	}
	return colorize(s, c)
}

// Render 一行显示所有标的：价格（按涨跌着色）、信号、状态、持仓，末尾为组合热度
func (f *Formatter) Render(rows []Row, heat model.HeatStatus, mode RenderMode) string {
	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}
	sb.WriteString(f.paint("[PILOT] ", ansiDim))

	for i, r := range rows {
		if i > 0 {
			sb.WriteString(f.paint("  ||  ", ansiDim))
		}
		px := "--"
		if r.Has {
			px = fmt.Sprintf("%.4f", r.Price)
		}
		pCol := ansiYellow
		switch r.Dir {
		case DirUp:
			pCol = ansiGreen
		case DirDown:
			pCol = ansiRed
		}

		sig := string(r.Verdict)
		sCol := ansiDim
		switch {
		case r.Verdict.IsBuy():
			sCol = ansiGreen
			sig = fmt.Sprintf("%s %.0f%%", sig, r.Strength*100)
		case r.Verdict.IsSell():
			sCol = ansiRed
			sig = fmt.Sprintf("%s %.0f%%", sig, r.Strength*100)
		}

		sb.WriteString(r.Symbol)
		sb.WriteString(" ")
		sb.WriteString(f.paint(px, pCol))
		sb.WriteString(" ")
		sb.WriteString(f.paint(sig, sCol))
		if r.Regime != "" {
			sb.WriteString(" " + string(r.Regime))
		}
		if r.Held > 0 {
			sb.WriteString(fmt.Sprintf(" pos=%.4f", r.Held))
		}
		if r.Reason != model.ReasonNone && mode == RenderSnapshot {
			sb.WriteString(f.paint(" ("+string(r.Reason)+")", ansiDim))
		}
	}

	hCol := ansiGreen
	switch heat.Level {
	case model.HeatMedium:
		hCol = ansiYellow
	case model.HeatHigh, model.HeatCritical:
		hCol = ansiRed
	}
	sb.WriteString(f.paint("  ||  ", ansiDim))
	sb.WriteString(f.paint(fmt.Sprintf("heat %s %.0f%%", heat.Level, heat.Percent), hCol))

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// RenderTrade 成交/退出事件行
func (f *Formatter) RenderTrade(d model.Decision) string {
	side, col := "BUY", ansiGreen
	qty := d.Target
	if d.Target < 0 {
		side, col, qty = "SELL", ansiRed, -d.Target
	}
	return f.paint(fmt.Sprintf("%s %s %.6f @ %.4f (%s)", side, d.Symbol, qty, d.Price, d.Signal.Verdict), col)
}
