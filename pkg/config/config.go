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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream  UpstreamConfig
	Session   SessionConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Search    SearchConfig
	Schedules ScheduleCacheConfig
	Reconcile ReconcileConfig
	Reminders ReminderSweepConfig
}

// UpstreamConfig points the gateway at the remote REST API that owns all durable state.
type UpstreamConfig struct {
	BaseURL      string
	Timeout      time.Duration
	ServiceToken string
}

// SessionConfig controls how console bearer tokens are read.
type SessionConfig struct {
	JWTSecret string
	LoginPath string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SearchConfig tunes the customer search debounce.
type SearchConfig struct {
	Debounce time.Duration
}

// ScheduleCacheConfig sets TTLs for the weekly schedule and template caches.
type ScheduleCacheConfig struct {
	WeekTTL     time.Duration
	TemplateTTL time.Duration
}

// ReconcileConfig sizes the background refetch queue.
type ReconcileConfig struct {
	Workers    int
	BufferSize int
}

// ReminderSweepConfig toggles the periodic due-reminder sweep.
type ReminderSweepConfig struct {
	Enabled bool
	Cron    string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Upstream = UpstreamConfig{
		BaseURL:      strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
		ServiceToken: v.GetString("UPSTREAM_SERVICE_TOKEN"),
	}

	cfg.Session = SessionConfig{
		JWTSecret: v.GetString("SESSION_JWT_SECRET"),
		LoginPath: v.GetString("LOGIN_PATH"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Search = SearchConfig{
		Debounce: parseDuration(v.GetString("SEARCH_DEBOUNCE"), 500*time.Millisecond),
	}

	cfg.Schedules = ScheduleCacheConfig{
		WeekTTL:     parseDuration(v.GetString("SCHEDULE_WEEK_TTL"), 30*time.Second),
		TemplateTTL: parseDuration(v.GetString("SCHEDULE_TEMPLATE_TTL"), 5*time.Minute),
	}

	cfg.Reconcile = ReconcileConfig{
		Workers:    v.GetInt("RECONCILE_WORKERS"),
		BufferSize: v.GetInt("RECONCILE_BUFFER"),
	}

	cfg.Reminders = ReminderSweepConfig{
		Enabled: v.GetBool("REMINDER_SWEEP_ENABLED"),
		Cron:    v.GetString("REMINDER_SWEEP_CRON"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:3001/api")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_SERVICE_TOKEN", "")

	v.SetDefault("SESSION_JWT_SECRET", "")
	v.SetDefault("LOGIN_PATH", "/login")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEARCH_DEBOUNCE", "500ms")
	v.SetDefault("SCHEDULE_WEEK_TTL", "30s")
	v.SetDefault("SCHEDULE_TEMPLATE_TTL", "5m")

	v.SetDefault("RECONCILE_WORKERS", 2)
	v.SetDefault("RECONCILE_BUFFER", 64)

	v.SetDefault("REMINDER_SWEEP_ENABLED", false)
	v.SetDefault("REMINDER_SWEEP_CRON", "*/5 * * * *")
}

// isMissingFile reports whether viper failed only because .env is absent;
// SetConfigFile surfaces that as a plain fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
