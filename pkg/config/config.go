package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PRICELIST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "PRICELIST_APP_ENV"
	EnvPort     = "PRICELIST_APP_PORT"
	EnvLogLevel = "PRICELIST_LOG_LEVEL"

	EnvDBDSN    = "PRICELIST_DB_DSN"
	EnvDBDriver = "PRICELIST_DB_DRIVER"
	EnvDBHost   = "PRICELIST_DB_HOST"
	EnvDBUser   = "PRICELIST_DB_USER"
	EnvDBName   = "PRICELIST_DB_NAME"

	EnvRedisURL = "PRICELIST_REDIS_URL"

	EnvJWTSecret  = "PRICELIST_JWT_SECRET"
	EnvJWTIssuer  = "PRICELIST_JWT_ISSUER"
	EnvJWTExpMins = "PRICELIST_JWT_EXPIRATION_MINUTES"

	EnvImportDefaultCurrency = "PRICELIST_IMPORT_DEFAULT_CURRENCY"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Import       ImportConfig
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
	Env          string   `envconfig:"PRICELIST_APP_ENV" required:"true"`
	Port         string   `envconfig:"PRICELIST_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PRICELIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PRICELIST_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PRICELIST_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRICELIST_DB_DSN"`
	Driver string `envconfig:"PRICELIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRICELIST_DB_HOST"`
	LegacyPort     int    `envconfig:"PRICELIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRICELIST_DB_USER"`
	LegacyPassword string `envconfig:"PRICELIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRICELIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRICELIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRICELIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRICELIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRICELIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRICELIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PRICELIST_REDIS_URL"`
	Address      string        `envconfig:"PRICELIST_REDIS_ADDR"`
	Password     string        `envconfig:"PRICELIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRICELIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRICELIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRICELIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRICELIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRICELIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRICELIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"PRICELIST_JWT_SECRET"`
	Issuer            string `envconfig:"PRICELIST_JWT_ISSUER" default:"pricelist"`
	ExpirationMinutes int    `envconfig:"PRICELIST_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRICELIST_AUTO_MIGRATE" default:"false"`
}

type ImportConfig struct {
	DefaultCurrency string `envconfig:"PRICELIST_IMPORT_DEFAULT_CURRENCY" default:"USD"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DriverSQLite)
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
