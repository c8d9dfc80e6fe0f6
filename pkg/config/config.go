package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Gateway      GatewayConfig
	FileStore    FileStoreConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Reports      ReportsConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COCOTRADE_APP_ENV" required:"true"`
	Port         string `envconfig:"COCOTRADE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COCOTRADE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COCOTRADE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"COCOTRADE_DB_DSN"`

	Host     string `envconfig:"COCOTRADE_DB_HOST"`
	Port     int    `envconfig:"COCOTRADE_DB_PORT" default:"5432"`
	User     string `envconfig:"COCOTRADE_DB_USER"`
	Password string `envconfig:"COCOTRADE_DB_PASSWORD"`
	Name     string `envconfig:"COCOTRADE_DB_NAME"`
	SSLMode  string `envconfig:"COCOTRADE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COCOTRADE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COCOTRADE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COCOTRADE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COCOTRADE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds the DSN from discrete host fields when COCOTRADE_DB_DSN is
// not set. Missing datastore credentials are a fatal startup error.
func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database credentials required: set COCOTRADE_DB_DSN or COCOTRADE_DB_HOST/USER/NAME")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"COCOTRADE_REDIS_URL"`
	Address      string        `envconfig:"COCOTRADE_REDIS_ADDR"`
	Password     string        `envconfig:"COCOTRADE_REDIS_PASSWORD"`
	DB           int           `envconfig:"COCOTRADE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COCOTRADE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COCOTRADE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COCOTRADE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COCOTRADE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COCOTRADE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COCOTRADE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COCOTRADE_JWT_ISSUER" default:"cocotrade-ops"`
	ExpirationMinutes      int    `envconfig:"COCOTRADE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"COCOTRADE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COCOTRADE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COCOTRADE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COCOTRADE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COCOTRADE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COCOTRADE_ARGON_KEY_LEN" default:"32"`
}

// GatewayConfig points at the WhatsApp messaging gateway. The base URL
// defaults to the production host and is overridable for staging.
type GatewayConfig struct {
	BaseURL   string        `envconfig:"COCOTRADE_WA_GATEWAY_URL" default:"https://wa-gateway.cocotrade.id"`
	APIKey    string        `envconfig:"COCOTRADE_WA_GATEWAY_KEY"`
	SessionID string        `envconfig:"COCOTRADE_WA_SESSION" default:"ops"`
	Timeout   time.Duration `envconfig:"COCOTRADE_WA_GATEWAY_TIMEOUT" default:"15s"`
}

// FileStoreConfig points at the file manager microservice.
type FileStoreConfig struct {
	BaseURL string        `envconfig:"COCOTRADE_FILESTORE_URL" required:"true"`
	Timeout time.Duration `envconfig:"COCOTRADE_FILESTORE_TIMEOUT" default:"30s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"COCOTRADE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"COCOTRADE_PUBSUB_ORDERS_TOPIC" default:"order-events"`
	OrdersSubscription string `envconfig:"COCOTRADE_PUBSUB_ORDERS_SUBSCRIPTION" default:"order-events-notify"`
}

type OutboxConfig struct {
	PollInterval   time.Duration `envconfig:"COCOTRADE_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize      int           `envconfig:"COCOTRADE_OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts    int           `envconfig:"COCOTRADE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"COCOTRADE_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
}

type ReportsConfig struct {
	CacheTTL time.Duration `envconfig:"COCOTRADE_REPORTS_CACHE_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COCOTRADE_AUTO_MIGRATE" default:"false"`
}
