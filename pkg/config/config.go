package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "SERVIPLACE"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	Realtime      RealtimeConfig
	Dispatch      DispatchConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SERVIPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"SERVIPLACE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SERVIPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SERVIPLACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SERVIPLACE_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"SERVIPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SERVIPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SERVIPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SERVIPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SERVIPLACE_REDIS_URL"`
	Address      string        `envconfig:"SERVIPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"SERVIPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SERVIPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SERVIPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SERVIPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SERVIPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SERVIPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SERVIPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SERVIPLACE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SERVIPLACE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SERVIPLACE_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"SERVIPLACE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SERVIPLACE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SERVIPLACE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SERVIPLACE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SERVIPLACE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SERVIPLACE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SERVIPLACE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SERVIPLACE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SERVIPLACE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SERVIPLACE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SERVIPLACE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SERVIPLACE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type RateLimitConfig struct {
	GlobalWindow time.Duration `envconfig:"SERVIPLACE_RATE_LIMIT_GLOBAL_WINDOW" default:"1m"`
	GlobalLimit  int64         `envconfig:"SERVIPLACE_RATE_LIMIT_GLOBAL_LIMIT" default:"600"`
}

type RealtimeConfig struct {
	WriteTimeout    time.Duration `envconfig:"SERVIPLACE_REALTIME_WRITE_TIMEOUT" default:"10s"`
	PongTimeout     time.Duration `envconfig:"SERVIPLACE_REALTIME_PONG_TIMEOUT" default:"60s"`
	MaxMessageBytes int64         `envconfig:"SERVIPLACE_REALTIME_MAX_MESSAGE_BYTES" default:"8192"`
	SendBuffer      int           `envconfig:"SERVIPLACE_REALTIME_SEND_BUFFER" default:"32"`
}

type DispatchConfig struct {
	PollInterval time.Duration `envconfig:"SERVIPLACE_DISPATCH_POLL_INTERVAL" default:"5s"`
	LockTTL      time.Duration `envconfig:"SERVIPLACE_DISPATCH_LOCK_TTL" default:"30s"`
	BatchSize    int           `envconfig:"SERVIPLACE_DISPATCH_BATCH_SIZE" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SERVIPLACE_AUTO_MIGRATE" default:"false"`
}
