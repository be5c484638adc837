package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	// RelayPlaceholder marks an unprovisioned relay endpoint. Sends are
	// deliberately skipped while the endpoint still carries this value.
	RelayPlaceholder = "{{CAPI_WEBHOOK}}"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Tracking     TrackingConfig
	Relay        RelayConfig
	Pixel        PixelConfig
	Dashboard    DashboardConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite && cfg.DB.DSN == "" {
		return nil, fmt.Errorf("MAPA_DB_DSN is required unless MAPA_USE_SQLITE is set")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MAPA_APP_ENV" required:"true"`
	Port         string `envconfig:"MAPA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MAPA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MAPA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"MAPA_DB_DSN"`
	SQLitePath string `envconfig:"MAPA_SQLITE_PATH" default:"funnel.db"`

	MaxOpenConns    int           `envconfig:"MAPA_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAPA_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"MAPA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAPA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MAPA_REDIS_URL"`
	Address      string        `envconfig:"MAPA_REDIS_ADDR"`
	Password     string        `envconfig:"MAPA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAPA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAPA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAPA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAPA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAPA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAPA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MAPA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	// TagEventsTopic receives the dataLayer-style records consumed by the
	// external tag manager. Empty disables the Pub/Sub queue.
	TagEventsTopic string `envconfig:"MAPA_PUBSUB_TAG_EVENTS_TOPIC"`
}

type TrackingConfig struct {
	AttributionTTL   time.Duration `envconfig:"MAPA_ATTRIBUTION_TTL" default:"168h"`
	EventLogCap      int           `envconfig:"MAPA_EVENT_LOG_CAP" default:"500"`
	PhoneCountryCode string        `envconfig:"MAPA_PHONE_COUNTRY_CODE" default:"55"`
	Currency         string        `envconfig:"MAPA_CURRENCY" default:"BRL"`
	TimerMinutes     int           `envconfig:"MAPA_TIMER_MINUTES" default:"15"`
	CheckoutURL      string        `envconfig:"MAPA_CHECKOUT_URL"`
}

type RelayConfig struct {
	EndpointURL    string        `envconfig:"MAPA_CAPI_WEBHOOK_URL" default:"{{CAPI_WEBHOOK}}"`
	RequestTimeout time.Duration `envconfig:"MAPA_CAPI_TIMEOUT" default:"1500ms"`
	MaxRetries     int           `envconfig:"MAPA_CAPI_MAX_RETRIES" default:"2"`
	BackoffBase    time.Duration `envconfig:"MAPA_CAPI_BACKOFF_BASE" default:"300ms"`
	QueueSize      int           `envconfig:"MAPA_CAPI_QUEUE_SIZE" default:"64"`
	Workers        int           `envconfig:"MAPA_CAPI_WORKERS" default:"1"`
}

// Configured reports whether a real relay endpoint has been provisioned.
func (r RelayConfig) Configured() bool {
	url := strings.TrimSpace(r.EndpointURL)
	if url == "" {
		return false
	}
	return !strings.Contains(url, "{{") && !strings.Contains(url, "CAPI_WEBHOOK")
}

type PixelConfig struct {
	PixelID         string `envconfig:"MAPA_META_PIXEL_ID"`
	MetaAccessToken string `envconfig:"MAPA_META_ACCESS_TOKEN"`
	GraphBaseURL    string `envconfig:"MAPA_META_GRAPH_URL" default:"https://graph.facebook.com/v21.0"`
	PixelBaseURL    string `envconfig:"MAPA_META_PIXEL_URL" default:"https://www.facebook.com/tr"`
}

type DashboardConfig struct {
	Password        string        `envconfig:"MAPA_DASHBOARD_PASSWORD"`
	JWTSecret       string        `envconfig:"MAPA_DASHBOARD_JWT_SECRET"`
	TokenTTL        time.Duration `envconfig:"MAPA_DASHBOARD_TOKEN_TTL" default:"12h"`
	SessionIssuer   string        `envconfig:"MAPA_DASHBOARD_JWT_ISSUER" default:"mapaprofeticodoamor"`
	AllowClearEvent bool          `envconfig:"MAPA_DASHBOARD_ALLOW_CLEAR" default:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MAPA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MAPA_AUTO_MIGRATE" default:"false"`
}
