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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Kirvano       KirvanoConfig
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
	Env          string `envconfig:"TAPPY_APP_ENV" required:"true"`
	Port         string `envconfig:"TAPPY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TAPPY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TAPPY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TAPPY_DB_DSN"`
	Driver string `envconfig:"TAPPY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TAPPY_DB_HOST"`
	LegacyPort     int    `envconfig:"TAPPY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAPPY_DB_USER"`
	LegacyPassword string `envconfig:"TAPPY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAPPY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAPPY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAPPY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAPPY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAPPY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAPPY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAPPY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TAPPY_REDIS_ADDR"`
	Password     string        `envconfig:"TAPPY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAPPY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAPPY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAPPY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAPPY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAPPY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAPPY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TAPPY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TAPPY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TAPPY_JWT_EXPIRATION_MINUTES" default:"720"`
	CookieName        string `envconfig:"TAPPY_JWT_COOKIE_NAME" default:"tappy_session"`
	CookieSecure      bool   `envconfig:"TAPPY_JWT_COOKIE_SECURE" default:"true"`
}

// SessionTTL returns the access session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TAPPY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TAPPY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TAPPY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TAPPY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TAPPY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TAPPY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"TAPPY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TAPPY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TAPPY_AUTO_MIGRATE" default:"false"`
}

type KirvanoConfig struct {
	// AllowUnsigned accepts webhook deliveries without a signature header.
	// Only honored outside prod; production always fails closed.
	AllowUnsigned bool          `envconfig:"TAPPY_KIRVANO_ALLOW_UNSIGNED" default:"false"`
	EventDedupTTL time.Duration `envconfig:"TAPPY_KIRVANO_EVENT_DEDUP_TTL" default:"720h"`
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
