package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Quota        QuotaConfig
	LLM          LLMConfig
	Browser      BrowserConfig
	Worker       WorkerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	TrialDays             int
}

// QuotaConfig sets the daily search caps per subscription tier.
type QuotaConfig struct {
	TrialDailyLimit  int
	PaidDailyLimit   int
	WarningThreshold int
	Location         *time.Location
}

// LLMConfig configures the discovery model.
type LLMConfig struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// BrowserConfig configures the headless verification browser.
type BrowserConfig struct {
	BinPath              string
	Headless             bool
	UserAgent            string
	NavigationTimeoutSec int
	FallbackTimeoutSec   int
	SettleDelayMs        int
	RevealDelayMs        int
	TypeDelayMs          int
	ResultDelayMs        int
	RulesPath            string
	ScreenshotDir        string
}

// WorkerConfig configures background processing.
type WorkerConfig struct {
	QueueBackend          string
	Concurrency           int
	QueueSize             int
	RedisQueueKey         string
	TrialCheckIntervalMin int
}

// NotificationConfig holds operator notification channels.
type NotificationConfig struct {
	EmailFrom     string
	OperatorEmail string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	WebhookURL    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	loc, err := time.LoadLocation(getEnv("QUOTA_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTA_TIMEZONE: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "codefinder"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			TrialDays:             getEnvAsInt("AUTH_TRIAL_DAYS", 7),
		},
		Quota: QuotaConfig{
			TrialDailyLimit:  getEnvAsInt("QUOTA_TRIAL_DAILY_LIMIT", 15),
			PaidDailyLimit:   getEnvAsInt("QUOTA_PAID_DAILY_LIMIT", 999999),
			WarningThreshold: getEnvAsInt("QUOTA_WARNING_THRESHOLD", 3),
			Location:         loc,
		},
		LLM: LLMConfig{
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "gemini-2.0-flash"),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
		},
		Browser: BrowserConfig{
			BinPath:              os.Getenv("BROWSER_BIN_PATH"),
			Headless:             getEnvAsBool("BROWSER_HEADLESS", true),
			UserAgent:            getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			NavigationTimeoutSec: getEnvAsInt("BROWSER_NAVIGATION_TIMEOUT_SECONDS", 30),
			FallbackTimeoutSec:   getEnvAsInt("BROWSER_FALLBACK_TIMEOUT_SECONDS", 15),
			SettleDelayMs:        getEnvAsInt("BROWSER_SETTLE_DELAY_MS", 2000),
			RevealDelayMs:        getEnvAsInt("BROWSER_REVEAL_DELAY_MS", 1000),
			TypeDelayMs:          getEnvAsInt("BROWSER_TYPE_DELAY_MS", 100),
			ResultDelayMs:        getEnvAsInt("BROWSER_RESULT_DELAY_MS", 3000),
			RulesPath:            os.Getenv("BROWSER_RULES_PATH"),
			ScreenshotDir:        os.Getenv("BROWSER_SCREENSHOT_DIR"),
		},
		Worker: WorkerConfig{
			QueueBackend:          getEnv("WORKER_QUEUE_BACKEND", "memory"),
			Concurrency:           getEnvAsInt("WORKER_CONCURRENCY", 4),
			QueueSize:             getEnvAsInt("WORKER_QUEUE_SIZE", 256),
			RedisQueueKey:         getEnv("WORKER_REDIS_QUEUE_KEY", "codefinder:search_jobs"),
			TrialCheckIntervalMin: getEnvAsInt("WORKER_TRIAL_CHECK_INTERVAL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:     getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			OperatorEmail: os.Getenv("NOTIFY_OPERATOR_EMAIL"),
			SMTPHost:      os.Getenv("SMTP_HOST"),
			SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:  os.Getenv("SMTP_USERNAME"),
			SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the model request timeout.
func (l LLMConfig) Timeout() time.Duration {
	return secondsOr(l.TimeoutSeconds, 60)
}

// NavigationTimeout bounds a full page load.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	return secondsOr(b.NavigationTimeoutSec, 30)
}

// FallbackTimeout bounds the degraded content-loaded navigation.
func (b BrowserConfig) FallbackTimeout() time.Duration {
	return secondsOr(b.FallbackTimeoutSec, 15)
}

// TrialCheckInterval returns how often trial expiries are checked.
func (w WorkerConfig) TrialCheckInterval() time.Duration {
	if w.TrialCheckIntervalMin <= 0 {
		return time.Hour
	}
	return time.Duration(w.TrialCheckIntervalMin) * time.Minute
}

// SMTPEnabled reports whether operator email delivery is configured.
func (n NotificationConfig) SMTPEnabled() bool {
	return n.SMTPHost != "" && n.OperatorEmail != ""
}

func secondsOr(val, fallback int) time.Duration {
	if val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
