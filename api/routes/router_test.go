package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/internal/auth"
	"github.com/tradeforgehq/tradeforge-backend/internal/billing"
	"github.com/tradeforgehq/tradeforge-backend/internal/bots"
	"github.com/tradeforgehq/tradeforge-backend/internal/credentials"
	"github.com/tradeforgehq/tradeforge-backend/internal/users"
	pkgAuth "github.com/tradeforgehq/tradeforge-backend/pkg/auth"
	"github.com/tradeforgehq/tradeforge-backend/pkg/auth/session"
	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
	"github.com/tradeforgehq/tradeforge-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubCredentialService struct{}

func (stubCredentialService) Create(ctx context.Context, userID uuid.UUID, req credentials.CreateCredentialRequest) (*credentials.CredentialDTO, error) {
	return &credentials.CredentialDTO{}, nil
}

func (stubCredentialService) List(ctx context.Context, userID uuid.UUID) ([]credentials.CredentialDTO, error) {
	return []credentials.CredentialDTO{}, nil
}

func (stubCredentialService) Reveal(ctx context.Context, userID, credentialID uuid.UUID) (*credentials.RevealResponse, error) {
	return &credentials.RevealResponse{}, nil
}

func (stubCredentialService) Delete(ctx context.Context, userID, credentialID uuid.UUID) error {
	return nil
}

type stubBotService struct {
	listFn func(ctx context.Context, userID uuid.UUID, params bots.ListParams) (*bots.ListResult, error)
}

func (s stubBotService) Create(ctx context.Context, userID uuid.UUID, req bots.CreateBotRequest) (*bots.BotDTO, error) {
	return &bots.BotDTO{}, nil
}

func (s stubBotService) List(ctx context.Context, userID uuid.UUID, params bots.ListParams) (*bots.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, params)
	}
	return &bots.ListResult{Items: []bots.BotDTO{}}, nil
}

func (s stubBotService) Get(ctx context.Context, userID, botID uuid.UUID) (*bots.BotDTO, error) {
	return &bots.BotDTO{}, nil
}

func (s stubBotService) Delete(ctx context.Context, userID, botID uuid.UUID) error {
	return nil
}

func (s stubBotService) Start(ctx context.Context, userID, botID uuid.UUID) (*bots.BotDTO, error) {
	return &bots.BotDTO{}, nil
}

func (s stubBotService) Stop(ctx context.Context, userID, botID uuid.UUID) (*bots.BotDTO, error) {
	return &bots.BotDTO{}, nil
}

type stubBillingService struct{}

func (stubBillingService) StartCheckout(ctx context.Context, userID uuid.UUID, priceID string) (string, error) {
	return "https://checkout.stripe.test/session", nil
}

func (stubBillingService) StartPortal(ctx context.Context, userID uuid.UUID) (string, error) {
	return "https://portal.stripe.test/session", nil
}

func (stubBillingService) Plans(ctx context.Context) []billing.PlanEntry {
	return []billing.PlanEntry{}
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "tradeforge",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginIPLimit:       100,
			LoginEmailLimit:    100,
			RegisterWindow:     time.Minute,
			RegisterIPLimit:    100,
			RegisterEmailLimit: 100,
		},
	}
}

func newTestRouter(cfg *config.Config, botSvc bots.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:            cfg,
		Logger:            logg,
		Redis:             (*redis.Client)(nil),
		SessionChecker:    stubSessionManager{},
		DBPinger:          stubPinger{},
		RedisPinger:       stubPinger{},
		PubSubPinger:      stubPinger{},
		AuthService:       stubAuthService{},
		RegisterService:   stubRegisterService{},
		CredentialService: stubCredentialService{},
		BotService:        botSvc,
		BillingService:    stubBillingService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Plan:   enums.SubscriptionPlanBasic,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubBotService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestHealthReadyAggregatesPingers(t *testing.T) {
	router := newTestRouter(testConfig(), stubBotService{})
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for readiness got %d", resp.Code)
	}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubBotService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestProtectedGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	called := false
	router := newTestRouter(cfg, stubBotService{
		listFn: func(ctx context.Context, userID uuid.UUID, params bots.ListParams) (*bots.ListResult, error) {
			called = true
			return &bots.ListResult{Items: []bots.BotDTO{}}, nil
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d (%s)", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("bot service was not reached")
	}
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
}

func TestBillingPlansRequiresAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubBotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestRequestIDEchoedOnResponses(t *testing.T) {
	router := newTestRouter(testConfig(), stubBotService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "req-1234")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Request-Id"); got != "req-1234" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
