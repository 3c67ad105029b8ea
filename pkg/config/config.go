package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FLOOROPS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv           = "FLOOROPS_APP_ENV"
	EnvPort             = "FLOOROPS_APP_PORT"
	EnvDBDSN            = "FLOOROPS_DB_DSN"
	EnvDBHost           = "FLOOROPS_DB_HOST"
	EnvDBUser           = "FLOOROPS_DB_USER"
	EnvDBName           = "FLOOROPS_DB_NAME"
	EnvRedisURL         = "FLOOROPS_REDIS_URL"
	EnvJWTSecret        = "FLOOROPS_JWT_SECRET"
	EnvJWTIssuer        = "FLOOROPS_JWT_ISSUER"
	EnvGCPProjectID     = "FLOOROPS_GCP_PROJECT_ID"
	EnvOrdersTopic      = "FLOOROPS_PUBSUB_ORDERS_TOPIC"
	EnvPaymentsTopic    = "FLOOROPS_PUBSUB_PAYMENTS_TOPIC"
	EnvOrderTimeout     = "FLOOROPS_ORDERS_WRITE_TIMEOUT"
	EnvTaxCacheTTL      = "FLOOROPS_ORDERS_TAX_CACHE_TTL"
	EnvRealtimeQueue    = "FLOOROPS_REALTIME_QUEUE_SIZE"
	EnvCORSOrigins      = "FLOOROPS_CORS_ALLOWED_ORIGINS"
	EnvAutoMigrate      = "FLOOROPS_AUTO_MIGRATE"
	EnvCronFireInterval = "FLOOROPS_CRON_SCHEDULED_FIRE_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Orders       OrdersConfig
	Realtime     RealtimeConfig
	Cron         CronConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLOOROPS_APP_ENV" required:"true"`
	Port         string `envconfig:"FLOOROPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLOOROPS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FLOOROPS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FLOOROPS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLOOROPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"FLOOROPS_DB_DSN"`

	LegacyHost     string `envconfig:"FLOOROPS_DB_HOST"`
	LegacyPort     int    `envconfig:"FLOOROPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLOOROPS_DB_USER"`
	LegacyPassword string `envconfig:"FLOOROPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLOOROPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLOOROPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLOOROPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLOOROPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLOOROPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLOOROPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLOOROPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLOOROPS_REDIS_ADDR"`
	Password     string        `envconfig:"FLOOROPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLOOROPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLOOROPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLOOROPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLOOROPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLOOROPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLOOROPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification side of the identity provider's tokens.
// Minting exists only for local tooling and tests.
type JWTConfig struct {
	Secret            string `envconfig:"FLOOROPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FLOOROPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FLOOROPS_JWT_EXPIRATION_MINUTES" default:"720"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FLOOROPS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FLOOROPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FLOOROPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic   string        `envconfig:"FLOOROPS_PUBSUB_ORDERS_TOPIC" default:"fo-order-events"`
	PaymentsTopic string        `envconfig:"FLOOROPS_PUBSUB_PAYMENTS_TOPIC" default:"fo-payment-intents"`
	PublishDelay  time.Duration `envconfig:"FLOOROPS_PUBSUB_PUBLISH_DELAY" default:"10ms"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"FLOOROPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"FLOOROPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"FLOOROPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"FLOOROPS_OUTBOX_RETENTION" default:"720h"`
}

// OrdersConfig tunes the order lifecycle core.
type OrdersConfig struct {
	WriteTimeout         time.Duration `envconfig:"FLOOROPS_ORDERS_WRITE_TIMEOUT" default:"5s"`
	TaxCacheTTL          time.Duration `envconfig:"FLOOROPS_ORDERS_TAX_CACHE_TTL" default:"30s"`
	TaxCacheSize         int           `envconfig:"FLOOROPS_ORDERS_TAX_CACHE_SIZE" default:"1024"`
	TotalsToleranceCents int64         `envconfig:"FLOOROPS_ORDERS_TOTALS_TOLERANCE_CENTS" default:"1"`
	ActiveListLimit      int           `envconfig:"FLOOROPS_ORDERS_ACTIVE_LIST_LIMIT" default:"200"`
	IdempotencyTTL       time.Duration `envconfig:"FLOOROPS_ORDERS_IDEMPOTENCY_TTL" default:"24h"`
}

func (o OrdersConfig) validate() error {
	if o.WriteTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrderTimeout)
	}
	if o.TaxCacheTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvTaxCacheTTL)
	}
	if o.TotalsToleranceCents < 0 {
		return fmt.Errorf("totals tolerance cannot be negative")
	}
	return nil
}

// RealtimeConfig sizes the broadcast pipeline.
type RealtimeConfig struct {
	QueueSize       int           `envconfig:"FLOOROPS_REALTIME_QUEUE_SIZE" default:"1024"`
	Workers         int           `envconfig:"FLOOROPS_REALTIME_WORKERS" default:"4"`
	DeliveryTimeout time.Duration `envconfig:"FLOOROPS_REALTIME_DELIVERY_TIMEOUT" default:"2s"`
	SubscriberBuf   int           `envconfig:"FLOOROPS_REALTIME_SUBSCRIBER_BUFFER" default:"64"`
	KeepAlive       time.Duration `envconfig:"FLOOROPS_REALTIME_KEEPALIVE" default:"15s"`
	UseRedis        bool          `envconfig:"FLOOROPS_REALTIME_USE_REDIS" default:"true"`
}

type CronConfig struct {
	ScheduledFireInterval time.Duration `envconfig:"FLOOROPS_CRON_SCHEDULED_FIRE_INTERVAL" default:"30s"`
	ScheduledFireBatch    int           `envconfig:"FLOOROPS_CRON_SCHEDULED_FIRE_BATCH" default:"100"`
	LockTTL               time.Duration `envconfig:"FLOOROPS_CRON_LOCK_TTL" default:"5m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FLOOROPS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig caps write traffic per tenant and per client IP.
type RateLimitConfig struct {
	Window       time.Duration `envconfig:"FLOOROPS_RATE_LIMIT_WINDOW" default:"1m"`
	TenantWrites int           `envconfig:"FLOOROPS_RATE_LIMIT_TENANT_WRITES" default:"600"`
	IPWrites     int           `envconfig:"FLOOROPS_RATE_LIMIT_IP_WRITES" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FLOOROPS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
