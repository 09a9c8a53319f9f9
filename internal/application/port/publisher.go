package port

import "context"

// Event types
const (
	EventDecision = "decision"
	EventTrade    = "trade"
	EventExit     = "exit"
	EventSnapshot = "snapshot"
)

// Event 推送给看板的事件
type Event struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol,omitempty"`
	Ts      int64  `json:"ts_ms"`
	Payload any    `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
