package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "TRADEFORGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Crypto        CryptoConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Quota         QuotaConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADEFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRADEFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRADEFORGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEFORGE_DB_DSN"`
	Driver string `envconfig:"TRADEFORGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEFORGE_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEFORGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEFORGE_DB_USER"`
	LegacyPassword string `envconfig:"TRADEFORGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEFORGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TRADEFORGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TRADEFORGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TRADEFORGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TRADEFORGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TRADEFORGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRADEFORGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRADEFORGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRADEFORGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRADEFORGE_ARGON_KEY_LEN" default:"32"`
}

// CryptoConfig carries the key material for the exchange-credential cipher.
// The key is process-wide configuration, never request-scoped.
type CryptoConfig struct {
	CredentialKey string `envconfig:"TRADEFORGE_CREDENTIAL_KEY" required:"true"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TRADEFORGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TRADEFORGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TRADEFORGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TRADEFORGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TRADEFORGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TRADEFORGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TRADEFORGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TRADEFORGE_AUTO_MIGRATE" default:"false"`
}

// QuotaConfig caps owned resources per subscription plan. Zero means
// unlimited for that plan.
type QuotaConfig struct {
	BasicBotLimit   int `envconfig:"TRADEFORGE_QUOTA_BASIC_BOT_LIMIT" default:"2"`
	PremiumBotLimit int `envconfig:"TRADEFORGE_QUOTA_PREMIUM_BOT_LIMIT" default:"0"`
}

type StripeConfig struct {
	APIKey          string `envconfig:"TRADEFORGE_STRIPE_API_KEY"`
	Secret          string `envconfig:"TRADEFORGE_STRIPE_SECRET"`
	Env             string `envconfig:"TRADEFORGE_STRIPE_ENV" default:"test"`
	BasicPriceID    string `envconfig:"TRADEFORGE_STRIPE_BASIC_PRICE_ID"`
	PremiumPriceID  string `envconfig:"TRADEFORGE_STRIPE_PREMIUM_PRICE_ID"`
	SuccessURL      string `envconfig:"TRADEFORGE_STRIPE_CHECKOUT_SUCCESS_URL"`
	CancelURL       string `envconfig:"TRADEFORGE_STRIPE_CHECKOUT_CANCEL_URL"`
	PortalReturnURL string `envconfig:"TRADEFORGE_STRIPE_PORTAL_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TRADEFORGE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TRADEFORGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TRADEFORGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EngineCommandTopic string `envconfig:"TRADEFORGE_PUBSUB_ENGINE_COMMAND_TOPIC" default:"tf-engine-commands"`
	EngineEventsTopic  string `envconfig:"TRADEFORGE_PUBSUB_ENGINE_EVENTS_TOPIC" default:"tf-engine-events"`
	EngineSubscription string `envconfig:"TRADEFORGE_PUBSUB_ENGINE_SUBSCRIPTION" default:"tf-engine-events-api"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		"TRADEFORGE_DB_HOST": db.LegacyHost,
		"TRADEFORGE_DB_USER": db.LegacyUser,
		"TRADEFORGE_DB_NAME": db.LegacyName,
	}
	for _, env := range []string{"TRADEFORGE_DB_HOST", "TRADEFORGE_DB_USER", "TRADEFORGE_DB_NAME"} {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either TRADEFORGE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
