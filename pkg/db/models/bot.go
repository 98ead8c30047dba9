package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// Bot is an automated trading bot record. The performance snapshot columns
// are written only by the engine-event consumer; the API reads them and
// toggles Status on explicit user command.
type Bot struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	CredentialID uuid.UUID       `gorm:"column:credential_id;type:uuid;not null"`
	Name         string          `gorm:"column:name;not null"`
	Strategy     string          `gorm:"column:strategy;not null"`
	Symbol       string          `gorm:"column:symbol;not null"`
	Status       enums.BotStatus `gorm:"column:status;type:bot_status;not null;default:'stopped'"`
	PnL          decimal.Decimal `gorm:"column:pnl;type:numeric(20,8);not null;default:0"`
	WinRate      decimal.Decimal `gorm:"column:win_rate;type:numeric(5,4);not null;default:0"`
	TradeCount   int             `gorm:"column:trade_count;not null;default:0"`
	LastTradeAt  *time.Time      `gorm:"column:last_trade_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
