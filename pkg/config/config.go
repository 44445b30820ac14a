package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Audit sinks.
const (
	AuditSinkLog      = "log"
	AuditSinkPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	TextGen  TextGenConfig
	Leaves   LeavesConfig
	Audit    AuditConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TextGenConfig configures the hosted text generator used for letters and summaries.
type TextGenConfig struct {
	Enabled           bool
	IAMToken          string
	CatalogID         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// LeavesConfig tunes the leave endpoints.
type LeavesConfig struct {
	SubmitRatePerMinute int
	SubmitBurst         int
	OverviewCache       bool
	OverviewCacheTTL    time.Duration
	MaxDays             int
}

// AuditConfig selects where audit records go and how they are dispatched.
type AuditConfig struct {
	Sink    string
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.TextGen = TextGenConfig{
		Enabled:           v.GetBool("TEXTGEN_ENABLED"),
		IAMToken:          v.GetString("TEXTGEN_IAM_TOKEN"),
		CatalogID:         v.GetString("TEXTGEN_CATALOG_ID"),
		Timeout:           parseDuration(v.GetString("TEXTGEN_TIMEOUT"), 8*time.Second),
		RequestsPerSecond: v.GetFloat64("TEXTGEN_RPS"),
	}

	cfg.Leaves = LeavesConfig{
		SubmitRatePerMinute: v.GetInt("LEAVES_SUBMIT_RATE_PER_MINUTE"),
		SubmitBurst:         v.GetInt("LEAVES_SUBMIT_BURST"),
		OverviewCache:       v.GetBool("LEAVES_OVERVIEW_CACHE"),
		OverviewCacheTTL:    parseDuration(v.GetString("LEAVES_OVERVIEW_CACHE_TTL"), 30*time.Second),
		MaxDays:             v.GetInt("LEAVES_MAX_DAYS"),
	}

	cfg.Audit = AuditConfig{
		Sink:    strings.ToLower(v.GetString("AUDIT_SINK")),
		Workers: v.GetInt("AUDIT_WORKERS"),
		Retries: v.GetInt("AUDIT_RETRIES"),
	}
	if cfg.Audit.Sink != AuditSinkPostgres {
		cfg.Audit.Sink = AuditSinkLog
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dayoff")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TEXTGEN_ENABLED", false)
	v.SetDefault("TEXTGEN_IAM_TOKEN", "")
	v.SetDefault("TEXTGEN_CATALOG_ID", "")
	v.SetDefault("TEXTGEN_TIMEOUT", "8s")
	v.SetDefault("TEXTGEN_RPS", 2.0)

	v.SetDefault("LEAVES_SUBMIT_RATE_PER_MINUTE", 10)
	v.SetDefault("LEAVES_SUBMIT_BURST", 3)
	v.SetDefault("LEAVES_OVERVIEW_CACHE", false)
	v.SetDefault("LEAVES_OVERVIEW_CACHE_TTL", "30s")
	v.SetDefault("LEAVES_MAX_DAYS", 365)

	v.SetDefault("AUDIT_SINK", AuditSinkLog)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
