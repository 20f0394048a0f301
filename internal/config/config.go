// Package config defines the global configuration structure for the ElderSafe
// platform. Configuration is loaded once at process initialization (Lambda
// cold start or API server boot) and is immutable thereafter. It follows
// 12-Factor App principles by strictly separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format causes the application to panic
// immediately on startup (fail fast).
package config

import (
	"time"

	"eldersafe/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the ElderSafe platform.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"eldersafe-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Providers     ProvidersConfig
	EnvData       EnvDataConfig
	Location      LocationConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Feature       FeatureConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Public base URL for links in responses (no trailing slash)
	APIExternalURL string        `envconfig:"API_EXTERNAL_URL" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	// Resolved from SSM or Env
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`     // Fail fast when pool exhausted
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections during failover
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"ap-south-1"`

	// Resource Identifiers
	AlertQueueURL string `envconfig:"SQS_ALERTS" validate:"required,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ProvidersConfig holds credentials and endpoints for the upstream
// environmental data providers. All keys are free-tier.
type ProvidersConfig struct {
	OpenWeatherAPIKey SecretString `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	AQICNToken        SecretString `envconfig:"AQICN_API_KEY" validate:"required"`

	OpenWeatherBaseURL string `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org"`
	AQICNBaseURL       string `envconfig:"AQICN_BASE_URL" default:"https://api.waqi.info"`
	OpenMeteoBaseURL   string `envconfig:"OPENMETEO_BASE_URL" default:"https://api.open-meteo.com"`

	RequestTimeout time.Duration `envconfig:"PROVIDER_REQUEST_TIMEOUT" default:"10s"`
	MaxRetries     int           `envconfig:"PROVIDER_MAX_RETRIES" default:"2"`
}

// EnvDataConfig tunes snapshot collection, caching, and staleness handling.
type EnvDataConfig struct {
	CacheTTL        time.Duration `envconfig:"ENVDATA_CACHE_TTL" default:"10m"`
	CollectTimeout  time.Duration `envconfig:"ENVDATA_COLLECT_TIMEOUT" default:"15s"`
	ForecastHorizon time.Duration `envconfig:"ENVDATA_FORECAST_HORIZON" default:"48h"`
}

// LocationConfig holds the fallback location used when a request carries no
// coordinates.
type LocationConfig struct {
	DefaultCity      string  `envconfig:"DEFAULT_CITY" default:"Pune"`
	DefaultLatitude  float64 `envconfig:"DEFAULT_LAT" default:"18.5204"`
	DefaultLongitude float64 `envconfig:"DEFAULT_LON" default:"73.8567"`
}

// SecurityConfig holds CORS settings for the public API.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"ElderSafe"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// FeatureConfig holds emergency kill switches for system capabilities.
type FeatureConfig struct {
	EnableAlertQueue    bool `envconfig:"FEATURE_ENABLE_ALERT_QUEUE" default:"true"`
	EnableSensorOverlay bool `envconfig:"FEATURE_ENABLE_SENSOR_OVERLAY" default:"true"`
	EnableHistory       bool `envconfig:"FEATURE_ENABLE_HISTORY" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
