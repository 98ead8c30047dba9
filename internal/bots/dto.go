package bots

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// BotDTO is the transport shape for a bot, performance snapshot included.
type BotDTO struct {
	ID           uuid.UUID       `json:"id"`
	CredentialID uuid.UUID       `json:"credential_id"`
	Name         string          `json:"name"`
	Strategy     string          `json:"strategy"`
	Symbol       string          `json:"symbol"`
	Status       enums.BotStatus `json:"status"`
	PnL          decimal.Decimal `json:"pnl"`
	WinRate      decimal.Decimal `json:"win_rate"`
	TradeCount   int             `json:"trade_count"`
	LastTradeAt  *time.Time      `json:"last_trade_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateBotRequest is the payload accepted by the create endpoint.
type CreateBotRequest struct {
	CredentialID uuid.UUID `json:"credential_id" validate:"required"`
	Name         string    `json:"name" validate:"required,max=120"`
	Strategy     string    `json:"strategy" validate:"required,max=120"`
	Symbol       string    `json:"symbol" validate:"required,max=40"`
}

func FromModel(b *models.Bot) *BotDTO {
	if b == nil {
		return nil
	}
	return &BotDTO{
		ID:           b.ID,
		CredentialID: b.CredentialID,
		Name:         b.Name,
		Strategy:     b.Strategy,
		Symbol:       b.Symbol,
		Status:       b.Status,
		PnL:          b.PnL,
		WinRate:      b.WinRate,
		TradeCount:   b.TradeCount,
		LastTradeAt:  b.LastTradeAt,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func FromModels(list []models.Bot) []BotDTO {
	out := make([]BotDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
