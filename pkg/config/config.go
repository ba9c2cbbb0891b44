package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	Batch         BatchConfig
	Queue         QueueConfig
	PaymentGroups PaymentGroupsConfig
	Expiry        ExpiryConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.PaymentGroups.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GAYAKITA_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"GAYAKITA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GAYAKITA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GAYAKITA_SERVICE_KIND" default:"queue-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"GAYAKITA_DB_DSN"`
	Driver string `envconfig:"GAYAKITA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GAYAKITA_DB_HOST"`
	LegacyPort     int    `envconfig:"GAYAKITA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GAYAKITA_DB_USER"`
	LegacyPassword string `envconfig:"GAYAKITA_DB_PASSWORD"`
	LegacyName     string `envconfig:"GAYAKITA_DB_NAME"`
	LegacySSLMode  string `envconfig:"GAYAKITA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GAYAKITA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GAYAKITA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GAYAKITA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GAYAKITA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GAYAKITA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GAYAKITA_REDIS_ADDR"`
	Password     string        `envconfig:"GAYAKITA_REDIS_PASSWORD"`
	DB           int           `envconfig:"GAYAKITA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GAYAKITA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GAYAKITA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GAYAKITA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GAYAKITA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GAYAKITA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BatchConfig tunes the batch document store. ProductsPerBatch is a soft cap
// used by ingestion tooling for sizing; the store itself does not enforce it.
type BatchConfig struct {
	ProductsPerBatch int           `envconfig:"GAYAKITA_BATCH_PRODUCTS_PER_BATCH" default:"250"`
	MaxBatchSize     int           `envconfig:"GAYAKITA_BATCH_MAX_SIZE" default:"300"`
	WriteMaxRetries  uint64        `envconfig:"GAYAKITA_BATCH_WRITE_MAX_RETRIES" default:"8"`
	WriteRetryBase   time.Duration `envconfig:"GAYAKITA_BATCH_WRITE_RETRY_BASE" default:"20ms"`
}

type QueueConfig struct {
	DrainInterval  time.Duration `envconfig:"GAYAKITA_QUEUE_DRAIN_INTERVAL" default:"5s"`
	DrainBatchSize int           `envconfig:"GAYAKITA_QUEUE_DRAIN_BATCH_SIZE" default:"100"`
	LockTTL        time.Duration `envconfig:"GAYAKITA_QUEUE_LOCK_TTL" default:"1m"`
}

type PaymentGroupsConfig struct {
	ExpiryHorizon time.Duration `envconfig:"GAYAKITA_PAYMENT_GROUP_EXPIRY" default:"48h"`
	CodeMin       int           `envconfig:"GAYAKITA_PAYMENT_CODE_MIN" default:"10"`
	CodeMax       int           `envconfig:"GAYAKITA_PAYMENT_CODE_MAX" default:"99"`
}

func (p PaymentGroupsConfig) validate() error {
	if p.CodeMin < 1 || p.CodeMax <= p.CodeMin {
		return fmt.Errorf("invalid payment code range [%d,%d]", p.CodeMin, p.CodeMax)
	}
	if p.ExpiryHorizon <= 0 {
		return fmt.Errorf("payment group expiry horizon must be positive")
	}
	return nil
}

type ExpiryConfig struct {
	PollInterval time.Duration `envconfig:"GAYAKITA_EXPIRY_POLL_INTERVAL" default:"30s"`
	WarnWindow   time.Duration `envconfig:"GAYAKITA_EXPIRY_WARN_WINDOW" default:"15m"`
	LockTTL      time.Duration `envconfig:"GAYAKITA_EXPIRY_LOCK_TTL" default:"1m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GAYAKITA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GAYAKITA_AUTO_MIGRATE" default:"false"`
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
