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

	EnvDBDSN  = "ENCAMINO_DB_DSN"
	EnvDBHost = "ENCAMINO_DB_HOST"
	EnvDBUser = "ENCAMINO_DB_USER"
	EnvDBName = "ENCAMINO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	Culqi CulqiConfig
	Lock  LockConfig
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
	Env          string `envconfig:"ENCAMINO_APP_ENV" required:"true"`
	Port         string `envconfig:"ENCAMINO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ENCAMINO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ENCAMINO_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"ENCAMINO_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ENCAMINO_DB_DSN"`
	Driver string `envconfig:"ENCAMINO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ENCAMINO_DB_HOST"`
	LegacyPort     int    `envconfig:"ENCAMINO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ENCAMINO_DB_USER"`
	LegacyPassword string `envconfig:"ENCAMINO_DB_PASSWORD"`
	LegacyName     string `envconfig:"ENCAMINO_DB_NAME"`
	LegacySSLMode  string `envconfig:"ENCAMINO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ENCAMINO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ENCAMINO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ENCAMINO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ENCAMINO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ENCAMINO_REDIS_URL"`
	Address      string        `envconfig:"ENCAMINO_REDIS_ADDR"`
	Password     string        `envconfig:"ENCAMINO_REDIS_PASSWORD"`
	DB           int           `envconfig:"ENCAMINO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ENCAMINO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ENCAMINO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ENCAMINO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ENCAMINO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ENCAMINO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ENCAMINO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ENCAMINO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ENCAMINO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CulqiConfig struct {
	SecretKey     string        `envconfig:"ENCAMINO_CULQI_SECRET_KEY" required:"true"`
	WebhookSecret string        `envconfig:"ENCAMINO_CULQI_WEBHOOK_SECRET" required:"true"`
	BaseURL       string        `envconfig:"ENCAMINO_CULQI_BASE_URL" default:"https://api.culqi.com/v1"`
	Timeout       time.Duration `envconfig:"ENCAMINO_CULQI_TIMEOUT" default:"15s"`
}

type LockConfig struct {
	TTL         time.Duration `envconfig:"ENCAMINO_ORDER_LOCK_TTL" default:"10s"`
	MaxWait     time.Duration `envconfig:"ENCAMINO_ORDER_LOCK_MAX_WAIT" default:"3s"`
	RetryJitter time.Duration `envconfig:"ENCAMINO_ORDER_LOCK_RETRY_JITTER" default:"50ms"`
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
