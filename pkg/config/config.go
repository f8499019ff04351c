package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PONGSHIP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PONGSHIP_DB_DSN"
	EnvDBHost = "PONGSHIP_DB_HOST"
	EnvDBUser = "PONGSHIP_DB_USER"
	EnvDBName = "PONGSHIP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Mail         MailConfig
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
	Env          string `envconfig:"PONGSHIP_APP_ENV" required:"true"`
	Port         string `envconfig:"PONGSHIP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PONGSHIP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PONGSHIP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PONGSHIP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PONGSHIP_DB_DSN"`
	Driver string `envconfig:"PONGSHIP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PONGSHIP_DB_HOST"`
	LegacyPort     int    `envconfig:"PONGSHIP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PONGSHIP_DB_USER"`
	LegacyPassword string `envconfig:"PONGSHIP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PONGSHIP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PONGSHIP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PONGSHIP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PONGSHIP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PONGSHIP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PONGSHIP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PONGSHIP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PONGSHIP_REDIS_ADDR"`
	Password     string        `envconfig:"PONGSHIP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PONGSHIP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PONGSHIP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PONGSHIP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PONGSHIP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PONGSHIP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PONGSHIP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PONGSHIP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PONGSHIP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PONGSHIP_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PONGSHIP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PONGSHIP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PONGSHIP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PONGSHIP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"PONGSHIP_GCS_BUCKET_NAME" required:"true"`
	ReceiptFolder     string        `envconfig:"PONGSHIP_GCS_RECEIPT_FOLDER" default:"prealert-receipts"`
	DownloadURLExpiry time.Duration `envconfig:"PONGSHIP_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"PONGSHIP_PUBSUB_NOTIFICATION_TOPIC" default:"pong-notification-events"`
	NotificationSubscription string `envconfig:"PONGSHIP_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PONGSHIP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PONGSHIP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PONGSHIP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MailConfig struct {
	APIBaseURL string `envconfig:"PONGSHIP_MAIL_API_BASE_URL"`
	APIKey     string `envconfig:"PONGSHIP_MAIL_API_KEY"`
	FromEmail  string `envconfig:"PONGSHIP_MAIL_FROM_EMAIL" default:"notifications@pongshipping.com"`
	FromName   string `envconfig:"PONGSHIP_MAIL_FROM_NAME" default:"Pong's Shipping"`
}

// Enabled reports whether the outbound mail client is configured.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.APIBaseURL) != "" && strings.TrimSpace(m.APIKey) != ""
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
