package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommandAction is the verb carried on an engine command message.
type CommandAction string

const (
	CommandStart CommandAction = "start"
	CommandStop  CommandAction = "stop"
)

// Command tells the execution engine to start or stop a bot. The API only
// declares intent; the engine reports actual state back via snapshots.
type Command struct {
	BotID    uuid.UUID     `json:"bot_id"`
	UserID   uuid.UUID     `json:"user_id"`
	Action   CommandAction `json:"action"`
	Strategy string        `json:"strategy"`
	Symbol   string        `json:"symbol"`
	IssuedAt time.Time     `json:"issued_at"`
}

// PerformanceSnapshot is the engine's periodic report for one bot.
type PerformanceSnapshot struct {
	BotID       uuid.UUID       `json:"bot_id"`
	PnL         decimal.Decimal `json:"pnl"`
	WinRate     decimal.Decimal `json:"win_rate"`
	TradeCount  int             `json:"trade_count"`
	LastTradeAt *time.Time      `json:"last_trade_at,omitempty"`
	Status      *string         `json:"status,omitempty"`
}
