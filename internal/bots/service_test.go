package bots

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/internal/engine"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	pkgpagination "github.com/tradeforgehq/tradeforge-backend/pkg/pagination"
)

type stubRepo struct {
	byID     map[uuid.UUID]*models.Bot
	statuses map[uuid.UUID]enums.BotStatus
	deleted  []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:     map[uuid.UUID]*models.Bot{},
		statuses: map[uuid.UUID]enums.BotStatus{},
	}
}

func (s *stubRepo) Create(ctx context.Context, bot *models.Bot) error {
	if bot.ID == uuid.Nil {
		bot.ID = uuid.New()
	}
	s.byID[bot.ID] = bot
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	if bot, ok := s.byID[id]; ok {
		copied := *bot
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Bot, error) {
	var list []models.Bot
	for _, bot := range s.byID {
		if bot.UserID != userID {
			continue
		}
		if query.cursor != nil {
			after := bot.CreatedAt.Before(query.cursor.CreatedAt) ||
				(bot.CreatedAt.Equal(query.cursor.CreatedAt) && bot.ID.String() < query.cursor.ID.String())
			if !after {
				continue
			}
		}
		list = append(list, *bot)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID.String() > list[j].ID.String()
	})
	if query.limit > 0 && len(list) > query.limit {
		list = list[:query.limit]
	}
	return list, nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BotStatus) error {
	s.statuses[id] = status
	if bot, ok := s.byID[id]; ok {
		bot.Status = status
	}
	return nil
}

type stubCredentials struct {
	byID map[uuid.UUID]*models.Credential
}

func (s *stubCredentials) FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	if credential, ok := s.byID[id]; ok {
		return credential, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubQuota struct {
	err   error
	calls int
}

func (s *stubQuota) CanCreateBot(ctx context.Context, userID uuid.UUID) error {
	s.calls++
	return s.err
}

type stubPublisher struct {
	commands []engine.Command
	err      error
}

func (s *stubPublisher) PublishCommand(ctx context.Context, cmd engine.Command) error {
	if s.err != nil {
		return s.err
	}
	s.commands = append(s.commands, cmd)
	return nil
}

type fixture struct {
	svc       Service
	repo      *stubRepo
	creds     *stubCredentials
	quota     *stubQuota
	publisher *stubPublisher
	userID    uuid.UUID
	credID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	userID := uuid.New()
	credID := uuid.New()
	repo := newStubRepo()
	creds := &stubCredentials{byID: map[uuid.UUID]*models.Credential{
		credID: {ID: credID, UserID: userID, Exchange: enums.ExchangeBinance},
	}}
	quota := &stubQuota{}
	publisher := &stubPublisher{}

	svc, err := NewService(ServiceParams{
		Repo:        repo,
		Credentials: creds,
		Quota:       quota,
		Publisher:   publisher,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{
		svc:       svc,
		repo:      repo,
		creds:     creds,
		quota:     quota,
		publisher: publisher,
		userID:    userID,
		credID:    credID,
	}
}

func TestCreateBotStartsStopped(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "grid bot",
		Strategy:     "grid",
		Symbol:       "btc-usdt",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Status != enums.BotStatusStopped {
		t.Fatalf("expected stopped, got %s", dto.Status)
	}
	if dto.Symbol != "BTC-USDT" {
		t.Fatalf("expected normalized symbol, got %q", dto.Symbol)
	}
	if f.quota.calls != 1 {
		t.Fatalf("expected quota consulted once, got %d", f.quota.calls)
	}
}

func TestCreateBotQuotaDenied(t *testing.T) {
	f := newFixture(t)
	f.quota.err = pkgerrors.New(pkgerrors.CodeForbidden, "plan limit reached")

	_, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "b",
		Strategy:     "grid",
		Symbol:       "BTCUSD",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.repo.byID) != 0 {
		t.Fatal("denied create persisted a bot")
	}
}

func TestCreateBotRejectsForeignCredential(t *testing.T) {
	f := newFixture(t)
	f.creds.byID[f.credID].UserID = uuid.New()

	_, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "b",
		Strategy:     "grid",
		Symbol:       "BTCUSD",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for foreign credential, got %v", err)
	}
	if f.quota.calls != 0 {
		t.Fatal("quota consulted for invalid credential")
	}
}

func TestStartPublishesCommandAndFlipsStatus(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "b",
		Strategy:     "momentum",
		Symbol:       "ETHUSD",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	started, err := f.svc.Start(context.Background(), f.userID, dto.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != enums.BotStatusRunning {
		t.Fatalf("expected running, got %s", started.Status)
	}
	if len(f.publisher.commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(f.publisher.commands))
	}
	cmd := f.publisher.commands[0]
	if cmd.Action != engine.CommandStart || cmd.BotID != dto.ID || cmd.Symbol != "ETHUSD" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	// Already running: no duplicate command.
	if _, err := f.svc.Start(context.Background(), f.userID, dto.ID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(f.publisher.commands) != 1 {
		t.Fatal("idempotent start published a second command")
	}
}

func TestStartPublishFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "b",
		Strategy:     "momentum",
		Symbol:       "ETHUSD",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.publisher.err = errors.New("pubsub unavailable")
	_, err = f.svc.Start(context.Background(), f.userID, dto.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.repo.byID[dto.ID].Status != enums.BotStatusStopped {
		t.Fatal("status flipped despite publish failure")
	}
}

func TestStopPublishesStopCommand(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "b",
		Strategy:     "momentum",
		Symbol:       "ETHUSD",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Start(context.Background(), f.userID, dto.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	stopped, err := f.svc.Stop(context.Background(), f.userID, dto.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Status != enums.BotStatusStopped {
		t.Fatalf("expected stopped, got %s", stopped.Status)
	}
	if f.publisher.commands[1].Action != engine.CommandStop {
		t.Fatalf("expected stop command, got %+v", f.publisher.commands[1])
	}
}

func TestGetAndDeleteHideForeignBots(t *testing.T) {
	f := newFixture(t)
	dto, err := f.svc.Create(context.Background(), f.userID, CreateBotRequest{
		CredentialID: f.credID,
		Name:         "b",
		Strategy:     "grid",
		Symbol:       "BTCUSD",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stranger := uuid.New()
	_, err = f.svc.Get(context.Background(), stranger, dto.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger get, got %v", err)
	}
	err = f.svc.Delete(context.Background(), stranger, dto.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger delete, got %v", err)
	}
	if len(f.repo.deleted) != 0 {
		t.Fatal("stranger deleted a bot")
	}

	if err := f.svc.Delete(context.Background(), f.userID, dto.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.repo.deleted) != 1 {
		t.Fatal("owner delete did not remove the bot")
	}
}

func TestListPaginatesWithCursor(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := uuid.New()
		f.repo.byID[id] = &models.Bot{
			ID:           id,
			UserID:       f.userID,
			CredentialID: f.credID,
			Name:         "bot",
			Strategy:     "grid",
			Symbol:       "BTC-USDT",
			Status:       enums.BotStatusStopped,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
	}

	var seen []uuid.UUID
	cursor := ""
	pages := 0
	for {
		page, err := f.svc.List(context.Background(), f.userID, ListParams{
			Params: pkgpagination.Params{Limit: 2, Cursor: cursor},
		})
		if err != nil {
			t.Fatalf("list page %d: %v", pages, err)
		}
		pages++
		for _, item := range page.Items {
			seen = append(seen, item.ID)
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 bots across pages, got %d", len(seen))
	}
	unique := map[uuid.UUID]struct{}{}
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	if len(unique) != 5 {
		t.Fatal("pages overlapped or skipped bots")
	}

	_, err := f.svc.List(context.Background(), f.userID, ListParams{
		Params: pkgpagination.Params{Cursor: "not-base64!"},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}
