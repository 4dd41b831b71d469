package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends accepted by DB_BACKEND.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Upload providers accepted by UPLOAD_PROVIDER.
const (
	UploadProviderImageKit = "imagekit"
	UploadProviderS3       = "s3"
)

// Config holds the environment driven configuration for the chat service.
// It is loaded once at startup and passed by pointer to every constructor; nothing mutates it afterwards.
type Config struct {
	// Service Configuration
	ServiceName       string        `env:"SERVICE_NAME" envDefault:"chat-api"`
	Environment       string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort          int           `env:"PORT" envDefault:"3000"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"console"`
	EnableTracing     bool          `env:"ENABLE_TRACING" envDefault:"false"`
	EnableOTelMetrics bool          `env:"ENABLE_OTEL_METRICS" envDefault:"false"`
	OTLPEndpoint      string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	MetricInterval    time.Duration `env:"OTEL_METRIC_EXPORT_INTERVAL" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// HTTP surface
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	StaticDir string `env:"STATIC_DIR" envDefault:"./client/dist"`

	// Storage Backend Selection
	DBBackend           string        `env:"DB_BACKEND" envDefault:"mongo"` // Options: "mongo", "postgres" or "memory"
	DBTransactions      bool          `env:"DB_TRANSACTIONS" envDefault:"false"`
	StoreConnectTimeout time.Duration `env:"STORE_CONNECT_TIMEOUT" envDefault:"10s"`

	// Document store
	MongoURI      string `env:"MONGO" envDefault:"mongodb://localhost:27017/chat"`
	MongoDatabase string `env:"MONGO_DATABASE"`

	// Postgres (only when DB_BACKEND=postgres)
	DBPostgresqlWriteDSN string        `env:"DB_POSTGRESQL_WRITE_DSN"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Upload token issuer
	UploadProvider     string        `env:"UPLOAD_PROVIDER" envDefault:"imagekit"`
	UploadTokenTTL     time.Duration `env:"UPLOAD_TOKEN_TTL" envDefault:"30m"`
	ImageKitEndpoint   string        `env:"IMAGE_KIT_ENDPOINT"`
	ImageKitPublicKey  string        `env:"IMAGE_KIT_PUBLIC_KEY"`
	ImageKitPrivateKey string        `env:"IMAGE_KIT_PRIVATE_KEY"`
	S3Endpoint         string        `env:"UPLOAD_S3_ENDPOINT"`
	S3Region           string        `env:"UPLOAD_S3_REGION" envDefault:"us-west-2"`
	S3Bucket           string        `env:"UPLOAD_S3_BUCKET"`
	S3AccessKeyID      string        `env:"UPLOAD_S3_ACCESS_KEY_ID"`
	S3SecretKey        string        `env:"UPLOAD_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle     bool          `env:"UPLOAD_S3_USE_PATH_STYLE" envDefault:"true"`
	S3KeyPrefix        string        `env:"UPLOAD_S3_KEY_PREFIX" envDefault:"uploads/"`

	// Authentication
	AuthEnabled           bool          `env:"AUTH_ENABLED" envDefault:"true"`
	AuthJWKSURL           string        `env:"AUTH_JWKS_URL"`
	AuthIssuer            string        `env:"AUTH_ISSUER"`
	AuthAudience          string        `env:"AUTH_AUDIENCE"`
	AuthAuthorizedParties []string      `env:"AUTH_AUTHORIZED_PARTIES" envSeparator:","`
	AuthClockSkew         time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"5s"`
	AuthJWKSRefresh       time.Duration `env:"AUTH_JWKS_REFRESH" envDefault:"1h"`

	// Orphan reconciliation
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"0s"`
	ReconcileGrace    time.Duration `env:"RECONCILE_GRACE" envDefault:"5m"`
	ReconcileBatch    int           `env:"RECONCILE_BATCH" envDefault:"100"`
	RedisURL          string        `env:"REDIS_URL"`
}

// Load parses environment variables into Config.
//
// Configuration Loading Order (highest to lowest priority):
// 1. Environment variables
// 2. .env file (if present)
// 3. Default values from struct tags
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.DBBackend = strings.ToLower(strings.TrimSpace(c.DBBackend))
	c.UploadProvider = strings.ToLower(strings.TrimSpace(c.UploadProvider))
	c.ClientURL = strings.TrimSuffix(strings.TrimSpace(c.ClientURL), "/")
	c.ImageKitPrivateKey = strings.TrimSpace(c.ImageKitPrivateKey)
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)

	switch c.DBBackend {
	case BackendMongo, BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.DBPostgresqlWriteDSN) == "" {
			return fmt.Errorf("DB_POSTGRESQL_WRITE_DSN is required when DB_BACKEND is postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_BACKEND %q", c.DBBackend)
	}

	switch c.UploadProvider {
	case UploadProviderImageKit, UploadProviderS3:
	default:
		return fmt.Errorf("unsupported UPLOAD_PROVIDER %q", c.UploadProvider)
	}
	if c.UploadTokenTTL <= 0 {
		c.UploadTokenTTL = 30 * time.Minute
	}

	if c.AuthEnabled && strings.TrimSpace(c.AuthJWKSURL) == "" {
		return fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
	}

	if c.ReconcileBatch <= 0 {
		c.ReconcileBatch = 100
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// MongoDatabaseName returns MONGO_DATABASE, or the database encoded in the URI path, or "chat".
func (c *Config) MongoDatabaseName() string {
	if name := strings.TrimSpace(c.MongoDatabase); name != "" {
		return name
	}
	if u, err := url.Parse(c.MongoURI); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return "chat"
}

// ReconcileEnabled reports whether the orphan reconciler should run in the background.
func (c *Config) ReconcileEnabled() bool {
	return c.ReconcileInterval > 0 && !c.DBTransactions
}
