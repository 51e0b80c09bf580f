package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ROOMDANG"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ROOMDANG_DB_DSN"
	EnvDBHost = "ROOMDANG_DB_HOST"
	EnvDBUser = "ROOMDANG_DB_USER"
	EnvDBName = "ROOMDANG_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	SSE          SSEConfig
	AMQP         AMQPConfig
	Alarm        AlarmConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ROOMDANG_APP_ENV" required:"true"`
	Port         string `envconfig:"ROOMDANG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ROOMDANG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ROOMDANG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ROOMDANG_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ROOMDANG_DB_DSN"`
	Driver string `envconfig:"ROOMDANG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ROOMDANG_DB_HOST"`
	LegacyPort     int    `envconfig:"ROOMDANG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ROOMDANG_DB_USER"`
	LegacyPassword string `envconfig:"ROOMDANG_DB_PASSWORD"`
	LegacyName     string `envconfig:"ROOMDANG_DB_NAME"`
	LegacySSLMode  string `envconfig:"ROOMDANG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ROOMDANG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROOMDANG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROOMDANG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROOMDANG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ROOMDANG_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ROOMDANG_REDIS_ADDR"`
	Password     string        `envconfig:"ROOMDANG_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROOMDANG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROOMDANG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROOMDANG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROOMDANG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROOMDANG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROOMDANG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ROOMDANG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ROOMDANG_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ROOMDANG_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ROOMDANG_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ROOMDANG_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ROOMDANG_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ROOMDANG_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ROOMDANG_ARGON_KEY_LEN" default:"32"`
}

// SSEConfig bounds the live-notification stream.
type SSEConfig struct {
	Timeout           time.Duration `envconfig:"ROOMDANG_SSE_TIMEOUT" default:"1h"`
	HeartbeatInterval time.Duration `envconfig:"ROOMDANG_SSE_HEARTBEAT_INTERVAL" default:"30s"`
}

// AMQPConfig wires the optional notification broker. An empty URL disables
// the broker path entirely; listeners then push straight to SSE.
type AMQPConfig struct {
	URL           string `envconfig:"ROOMDANG_AMQP_URL"`
	Exchange      string `envconfig:"ROOMDANG_AMQP_EXCHANGE" default:"notifications"`
	QueuePrefix   string `envconfig:"ROOMDANG_AMQP_QUEUE_PREFIX" default:"roomdang.alarm"`
	PrefetchCount int    `envconfig:"ROOMDANG_AMQP_PREFETCH" default:"32"`
}

func (a AMQPConfig) Enabled() bool {
	return strings.TrimSpace(a.URL) != ""
}

type AlarmConfig struct {
	RetentionDays int `envconfig:"ROOMDANG_ALARM_RETENTION_DAYS" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ROOMDANG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ROOMDANG_AUTO_MIGRATE" default:"false"`
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
