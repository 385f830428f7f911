package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "storefront"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	MirrorBackendSQLite = "sqlite"
	MirrorBackendRedis  = "redis"
	MirrorBackendMemory = "memory"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Engine   EngineConfig
	Mirror   MirrorConfig
	Redis    RedisConfig
	Shipping ShippingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Mirror.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Shipping.DefaultFee(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"STOREFRONT_API_REQUEST_TIMEOUT" default:"10s"`
	AuthToken      string        `envconfig:"STOREFRONT_API_AUTH_TOKEN"`
	RefreshToken   string        `envconfig:"STOREFRONT_API_REFRESH_TOKEN"`
}

type EngineConfig struct {
	RevalidateInterval time.Duration `envconfig:"STOREFRONT_REVALIDATE_INTERVAL" default:"30s"`
	CleanupInterval    time.Duration `envconfig:"STOREFRONT_CLEANUP_INTERVAL" default:"2m"`
	NoticeTTL          time.Duration `envconfig:"STOREFRONT_NOTICE_TTL" default:"8s"`
}

type MirrorConfig struct {
	Backend    string `envconfig:"STOREFRONT_MIRROR_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"STOREFRONT_MIRROR_SQLITE_PATH" default:"storefront.db"`
}

func (m MirrorConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(m.Backend))
}

func (m MirrorConfig) validate() error {
	switch m.NormalizedBackend() {
	case MirrorBackendSQLite, MirrorBackendRedis, MirrorBackendMemory:
		return nil
	}
	return fmt.Errorf("unknown mirror backend %q", m.Backend)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ShippingConfig struct {
	DefaultFeeAmount string `envconfig:"STOREFRONT_SHIPPING_DEFAULT_FEE" default:"50"`
}

// DefaultFee returns the flat fee applied when the shipping-cost lookup fails
// or the governorate is unknown.
func (s ShippingConfig) DefaultFee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(s.DefaultFeeAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing default shipping fee: %w", err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("default shipping fee must be non-negative")
	}
	return fee, nil
}
