package bots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/internal/engine"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	pkgpagination "github.com/tradeforgehq/tradeforge-backend/pkg/pagination"
)

// Service defines the behavior needed by the bots controller.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateBotRequest) (*BotDTO, error)
	List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error)
	Get(ctx context.Context, userID, botID uuid.UUID) (*BotDTO, error)
	Delete(ctx context.Context, userID, botID uuid.UUID) error
	Start(ctx context.Context, userID, botID uuid.UUID) (*BotDTO, error)
	Stop(ctx context.Context, userID, botID uuid.UUID) (*BotDTO, error)
}

type repository interface {
	Create(ctx context.Context, bot *models.Bot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bot, error)
	ListByUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Bot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BotStatus) error
}

type credentialFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
}

type quotaEnforcer interface {
	CanCreateBot(ctx context.Context, userID uuid.UUID) error
}

type commandPublisher interface {
	PublishCommand(ctx context.Context, cmd engine.Command) error
}

type service struct {
	repo        repository
	credentials credentialFinder
	quota       quotaEnforcer
	publisher   commandPublisher
}

// ServiceParams bundles the dependencies required to build a bots service.
type ServiceParams struct {
	Repo        repository
	Credentials credentialFinder
	Quota       quotaEnforcer
	Publisher   commandPublisher
}

// NewService constructs the bots service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bots repository is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credentials repository is required")
	}
	if params.Quota == nil {
		return nil, fmt.Errorf("quota enforcer is required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("engine command publisher is required")
	}
	return &service{
		repo:        params.Repo,
		credentials: params.Credentials,
		quota:       params.Quota,
		publisher:   params.Publisher,
	}, nil
}

// Create validates the credential ownership, enforces the quota, and inserts
// the bot in stopped state. The quota check and the insert are deliberately
// not transactional.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateBotRequest) (*BotDTO, error) {
	credential, err := s.credentials.FindByID(ctx, req.CredentialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "credential not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load credential")
	}
	if credential.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credential not found")
	}

	if err := s.quota.CanCreateBot(ctx, userID); err != nil {
		return nil, err
	}

	bot := &models.Bot{
		UserID:       userID,
		CredentialID: credential.ID,
		Name:         strings.TrimSpace(req.Name),
		Strategy:     strings.TrimSpace(req.Strategy),
		Symbol:       strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Status:       enums.BotStatusStopped,
	}
	if err := s.repo.Create(ctx, bot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bot")
	}
	return FromModel(bot), nil
}

// List returns one page of the caller's bots, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{limit: pkgpagination.LimitWithBuffer(params.Limit)}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.ListByUser(ctx, userID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bots")
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &ListResult{Items: FromModels(rows), Cursor: nextCursor}, nil
}

// Get returns one bot, performance snapshot included.
func (s *service) Get(ctx context.Context, userID, botID uuid.UUID) (*BotDTO, error) {
	bot, err := s.findOwned(ctx, userID, botID)
	if err != nil {
		return nil, err
	}
	return FromModel(bot), nil
}

// Delete removes the bot immediately given ownership.
func (s *service) Delete(ctx context.Context, userID, botID uuid.UUID) error {
	bot, err := s.findOwned(ctx, userID, botID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bot.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bot")
	}
	return nil
}

// Start declares intent to run the bot: publishes the engine command, then
// flips the status. The engine reports actual state back asynchronously.
func (s *service) Start(ctx context.Context, userID, botID uuid.UUID) (*BotDTO, error) {
	return s.transition(ctx, userID, botID, engine.CommandStart, enums.BotStatusRunning)
}

// Stop declares intent to halt the bot.
func (s *service) Stop(ctx context.Context, userID, botID uuid.UUID) (*BotDTO, error) {
	return s.transition(ctx, userID, botID, engine.CommandStop, enums.BotStatusStopped)
}

func (s *service) transition(ctx context.Context, userID, botID uuid.UUID, action engine.CommandAction, status enums.BotStatus) (*BotDTO, error) {
	bot, err := s.findOwned(ctx, userID, botID)
	if err != nil {
		return nil, err
	}
	if bot.Status == status {
		return FromModel(bot), nil
	}

	cmd := engine.Command{
		BotID:    bot.ID,
		UserID:   userID,
		Action:   action,
		Strategy: bot.Strategy,
		Symbol:   bot.Symbol,
		IssuedAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishCommand(ctx, cmd); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish engine command")
	}

	if err := s.repo.UpdateStatus(ctx, bot.ID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bot status")
	}
	bot.Status = status
	return FromModel(bot), nil
}

// findOwned hides other users' bots behind NotFound.
func (s *service) findOwned(ctx context.Context, userID, botID uuid.UUID) (*models.Bot, error) {
	bot, err := s.repo.FindByID(ctx, botID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bot")
	}
	if bot.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bot not found")
	}
	return bot, nil
}
