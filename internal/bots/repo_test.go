package bots

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/internal/engine"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/pagination"
)

func setupBotsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	table := `
CREATE TABLE IF NOT EXISTS bots (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  credential_id TEXT NOT NULL,
  name TEXT NOT NULL,
  strategy TEXT NOT NULL,
  symbol TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'stopped',
  pnl NUMERIC NOT NULL DEFAULT 0,
  win_rate NUMERIC NOT NULL DEFAULT 0,
  trade_count INTEGER NOT NULL DEFAULT 0,
  last_trade_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(table).Error)
	return conn
}

func seedBot(t *testing.T, repo *Repository, userID uuid.UUID) *models.Bot {
	t.Helper()
	bot := &models.Bot{
		UserID:       userID,
		CredentialID: uuid.New(),
		Name:         "grid",
		Strategy:     "grid",
		Symbol:       "BTC-USDT",
		Status:       enums.BotStatusStopped,
	}
	require.NoError(t, repo.Create(context.Background(), bot))
	return bot
}

func TestRepositoryCountByUser(t *testing.T) {
	repo := NewRepository(setupBotsTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	seedBot(t, repo, userID)
	seedBot(t, repo, userID)
	seedBot(t, repo, uuid.New())

	count, err := repo.CountByUser(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	repo := NewRepository(setupBotsTestDB(t))
	ctx := context.Background()
	bot := seedBot(t, repo, uuid.New())

	require.NoError(t, repo.UpdateStatus(ctx, bot.ID, enums.BotStatusRunning))

	found, err := repo.FindByID(ctx, bot.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BotStatusRunning, found.Status)
}

func TestRepositoryApplyPerformance(t *testing.T) {
	repo := NewRepository(setupBotsTestDB(t))
	ctx := context.Background()
	bot := seedBot(t, repo, uuid.New())

	tradedAt := time.Now().UTC().Truncate(time.Second)
	status := "error"
	err := repo.ApplyPerformance(ctx, engine.PerformanceSnapshot{
		BotID:       bot.ID,
		PnL:         decimal.RequireFromString("125.50000000"),
		WinRate:     decimal.RequireFromString("0.6100"),
		TradeCount:  41,
		LastTradeAt: &tradedAt,
		Status:      &status,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, bot.ID)
	require.NoError(t, err)
	require.True(t, found.PnL.Equal(decimal.RequireFromString("125.5")))
	require.True(t, found.WinRate.Equal(decimal.RequireFromString("0.61")))
	require.Equal(t, 41, found.TradeCount)
	require.NotNil(t, found.LastTradeAt)
	require.Equal(t, enums.BotStatusError, found.Status)
}

func TestRepositoryApplyPerformanceUnknownBot(t *testing.T) {
	repo := NewRepository(setupBotsTestDB(t))

	err := repo.ApplyPerformance(context.Background(), engine.PerformanceSnapshot{
		BotID:   uuid.New(),
		PnL:     decimal.Zero,
		WinRate: decimal.Zero,
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestRepositoryApplyPerformanceRejectsBadStatus(t *testing.T) {
	repo := NewRepository(setupBotsTestDB(t))
	bot := seedBot(t, repo, uuid.New())

	status := "exploded"
	err := repo.ApplyPerformance(context.Background(), engine.PerformanceSnapshot{
		BotID:   bot.ID,
		PnL:     decimal.Zero,
		WinRate: decimal.Zero,
		Status:  &status,
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestRepositoryListByUserCursor(t *testing.T) {
	repo := NewRepository(setupBotsTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		bot := &models.Bot{
			UserID:       userID,
			CredentialID: uuid.New(),
			Name:         "grid",
			Strategy:     "grid",
			Symbol:       "BTC-USDT",
			Status:       enums.BotStatusStopped,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, bot))
		ids[i] = bot.ID
	}
	seedBot(t, repo, uuid.New())

	first, err := repo.ListByUser(ctx, userID, listQuery{limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, ids[2], first[0].ID)
	require.Equal(t, ids[1], first[1].ID)

	rest, err := repo.ListByUser(ctx, userID, listQuery{
		limit: 2,
		cursor: &pagination.Cursor{
			CreatedAt: first[1].CreatedAt,
			ID:        first[1].ID,
		},
	})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, ids[0], rest[0].ID)
}
