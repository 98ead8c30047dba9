package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tradeforgehq/tradeforge-backend/api/routes"
	"github.com/tradeforgehq/tradeforge-backend/internal/auth"
	"github.com/tradeforgehq/tradeforge-backend/internal/billing"
	"github.com/tradeforgehq/tradeforge-backend/internal/bots"
	"github.com/tradeforgehq/tradeforge-backend/internal/credentials"
	"github.com/tradeforgehq/tradeforge-backend/internal/engine"
	"github.com/tradeforgehq/tradeforge-backend/internal/entitlements"
	"github.com/tradeforgehq/tradeforge-backend/internal/users"
	stripewebhook "github.com/tradeforgehq/tradeforge-backend/internal/webhooks/stripe"
	"github.com/tradeforgehq/tradeforge-backend/pkg/auth/session"
	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
	"github.com/tradeforgehq/tradeforge-backend/pkg/metrics"
	"github.com/tradeforgehq/tradeforge-backend/pkg/migrate"
	"github.com/tradeforgehq/tradeforge-backend/pkg/pubsub"
	"github.com/tradeforgehq/tradeforge-backend/pkg/redis"
	"github.com/tradeforgehq/tradeforge-backend/pkg/security"
	"github.com/tradeforgehq/tradeforge-backend/pkg/stripe"
)

const webhookIdempotencyTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	cipher, err := security.NewSecretCipher(cfg.Crypto)
	if err != nil {
		logg.Error(context.Background(), "failed to create secret cipher", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	entitlementRepo := entitlements.NewRepository(dbClient.DB())
	credentialRepo := credentials.NewRepository(dbClient.DB())
	botRepo := bots.NewRepository(dbClient.DB())
	catalog := billing.NewCatalog(cfg.Stripe)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	credentialService, err := credentials.NewService(credentials.ServiceParams{
		Repo:   credentialRepo,
		Cipher: cipher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credential service", err)
		os.Exit(1)
	}

	enforcer, err := entitlements.NewEnforcer(entitlements.EnforcerParams{
		Entitlements: entitlementRepo,
		Bots:         botRepo,
		Quota:        cfg.Quota,
		Metrics:      billingMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quota enforcer", err)
		os.Exit(1)
	}

	commandPublisher, err := engine.NewCommandPublisher(pubsubClient.EngineCommandPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create engine publisher", err)
		os.Exit(1)
	}

	botService, err := bots.NewService(bots.ServiceParams{
		Repo:        botRepo,
		Credentials: credentialRepo,
		Quota:       enforcer,
		Publisher:   commandPublisher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bot service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		UserRepo:     userRepo,
		Entitlements: entitlementRepo,
		StripeClient: billing.NewStripeClient(stripeClient),
		Catalog:      catalog,
		StripeConfig: cfg.Stripe,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Entitlements: entitlementRepo,
		Catalog:      catalog,
		Logger:       logg,
		Metrics:      billingMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			Redis:              redisClient,
			SessionChecker:     sessionManager,
			Registry:           registry,
			DBPinger:           dbClient,
			RedisPinger:        redisClient,
			PubSubPinger:       pubsubClient,
			AuthService:        authService,
			RegisterService:    registerService,
			CredentialService:  credentialService,
			BotService:         botService,
			BillingService:     billingService,
			StripeClient:       stripeClient,
			StripeWebhookSvc:   webhookService,
			StripeWebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
