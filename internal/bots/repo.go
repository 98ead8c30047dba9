package bots

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/internal/engine"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
)

// Repository exposes bot persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a bots repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the bot row.
func (r *Repository) Create(ctx context.Context, bot *models.Bot) error {
	if bot.ID == uuid.Nil {
		bot.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(bot).Error
}

// FindByID loads a bot by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	var bot models.Bot
	if err := r.db.WithContext(ctx).First(&bot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}

// ListByUser returns the user's bots, newest first, using cursor pagination.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Bot, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("user_id = ?", userID)

	if query.cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", query.cursor.CreatedAt, query.cursor.CreatedAt, query.cursor.ID)
	}

	q = q.Order("created_at DESC").Order("id DESC")
	if query.limit > 0 {
		q = q.Limit(query.limit)
	}

	var list []models.Bot
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CountByUser reports how many bots the user currently has.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Delete removes the bot row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Bot{}, "id = ?", id).Error
}

// UpdateStatus sets the bot's declared status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BotStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// ApplyPerformance overwrites the performance snapshot columns from an engine
// report. NotFound when the bot no longer exists.
func (r *Repository) ApplyPerformance(ctx context.Context, snapshot engine.PerformanceSnapshot) error {
	updates := map[string]any{
		"pnl":         snapshot.PnL,
		"win_rate":    snapshot.WinRate,
		"trade_count": snapshot.TradeCount,
	}
	if snapshot.LastTradeAt != nil {
		updates["last_trade_at"] = *snapshot.LastTradeAt
	}
	if snapshot.Status != nil {
		status, err := enums.ParseBotStatus(*snapshot.Status)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid bot status in snapshot")
		}
		updates["status"] = status
	}

	res := r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("id = ?", snapshot.BotID).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "apply performance snapshot")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bot not found")
	}
	return nil
}
