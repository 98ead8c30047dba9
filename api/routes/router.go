package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradeforgehq/tradeforge-backend/api/controllers"
	webhookcontrollers "github.com/tradeforgehq/tradeforge-backend/api/controllers/webhooks"
	"github.com/tradeforgehq/tradeforge-backend/api/middleware"
	"github.com/tradeforgehq/tradeforge-backend/internal/auth"
	"github.com/tradeforgehq/tradeforge-backend/internal/billing"
	"github.com/tradeforgehq/tradeforge-backend/internal/bots"
	"github.com/tradeforgehq/tradeforge-backend/internal/credentials"
	stripewebhook "github.com/tradeforgehq/tradeforge-backend/internal/webhooks/stripe"
	"github.com/tradeforgehq/tradeforge-backend/pkg/auth/session"
	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
	"github.com/tradeforgehq/tradeforge-backend/pkg/redis"
	"github.com/tradeforgehq/tradeforge-backend/pkg/stripe"
)

// Pinger matches the health-check surface of the backing services.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker
	Registry       *prometheus.Registry

	DBPinger     Pinger
	RedisPinger  Pinger
	PubSubPinger Pinger

	AuthService        auth.Service
	RegisterService    auth.RegisterService
	CredentialService  credentials.Service
	BotService         bots.Service
	BillingService     billing.Service
	StripeClient       *stripe.Client
	StripeWebhookSvc   *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(p)))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhookSvc, p.StripeClient, p.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, p.Redis, logg),
			middleware.Idempotency(p.Redis, logg),
		).Post("/register", controllers.AuthRegister(p.RegisterService, p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, p.SessionChecker, logg)).Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", controllers.ListCredentials(p.CredentialService, logg))
			r.Post("/", controllers.CreateCredential(p.CredentialService, logg))
			r.Post("/{credentialID}/reveal", controllers.RevealCredential(p.CredentialService, logg))
			r.Delete("/{credentialID}", controllers.DeleteCredential(p.CredentialService, logg))
		})

		r.Route("/bots", func(r chi.Router) {
			r.Get("/", controllers.ListBots(p.BotService, logg))
			r.Post("/", controllers.CreateBot(p.BotService, logg))
			r.Get("/{botID}", controllers.GetBot(p.BotService, logg))
			r.Delete("/{botID}", controllers.DeleteBot(p.BotService, logg))
			r.Post("/{botID}/start", controllers.StartBot(p.BotService, logg))
			r.Post("/{botID}/stop", controllers.StopBot(p.BotService, logg))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/plans", controllers.BillingPlans(p.BillingService, logg))
			r.Post("/checkout", controllers.BillingCheckout(p.BillingService, logg))
			r.Post("/portal", controllers.BillingPortal(p.BillingService, logg))
		})
	})

	return r
}

func readinessDeps(p RouterParams) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if p.DBPinger != nil {
		deps["postgres"] = p.DBPinger
	}
	if p.RedisPinger != nil {
		deps["redis"] = p.RedisPinger
	}
	if p.PubSubPinger != nil {
		deps["pubsub"] = p.PubSubPinger
	}
	return deps
}
