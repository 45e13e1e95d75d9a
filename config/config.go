package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime settings, sourced from the environment.
type Config struct {
	Port        string
	Environment string

	MongoURI      string
	MongoDatabase string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash of the admin password

	// AI collaborator
	AIEndpoint string
	AIAPIKey   string
	AIModel    string
	AITimeout  time.Duration

	// Market data collaborators
	MarketDataWSURL string
	CandleAPIURL    string
	CandleAPIKey    string
	EventLookback   time.Duration
	CandleCount     int
	Timeframes      []string

	// Signal pipeline
	Symbols          []string
	HighConfidence   int
	MediumConfidence int
	TradeTTL         time.Duration
	SweepInterval    time.Duration
	FinderIntervalMs int

	// Alert transports
	TelegramBotToken string
	TelegramChatID   string
	SMSWebhookURL    string
	CallWebhookURL   string

	LogFile string
}

var AppConfig *Config

// LoadConfig loads environment variables into the global config.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "trade_sentinel"),

		JWTSecret:         getEnv("JWT_SECRET", "change-me"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		AIEndpoint: getEnv("AI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		AIAPIKey:   getEnv("AI_API_KEY", ""),
		AIModel:    getEnv("AI_MODEL", "gpt-4o"),
		AITimeout:  getEnvDuration("AI_TIMEOUT_SECONDS", 60*time.Second),

		MarketDataWSURL: getEnv("MARKET_DATA_WS_URL", ""),
		CandleAPIURL:    getEnv("CANDLE_API_URL", ""),
		CandleAPIKey:    getEnv("CANDLE_API_KEY", ""),
		EventLookback:   getEnvDuration("EVENT_LOOKBACK_MINUTES", 90*time.Minute),
		CandleCount:     getEnvInt("CANDLE_COUNT", 50),
		Timeframes:      getEnvList("CANDLE_TIMEFRAMES", "1m,5m,15m,1h"),

		Symbols:          getEnvList("SYMBOLS", "NQ,ES"),
		HighConfidence:   getEnvInt("HIGH_CONFIDENCE_THRESHOLD", 80),
		MediumConfidence: getEnvInt("MEDIUM_CONFIDENCE_THRESHOLD", 60),
		TradeTTL:         getEnvDuration("TRADE_TTL_HOURS", 4*time.Hour),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL_MINUTES", 15*time.Minute),
		FinderIntervalMs: getEnvInt("FINDER_INTERVAL_MS", 300000),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		SMSWebhookURL:    getEnv("SMS_WEBHOOK_URL", ""),
		CallWebhookURL:   getEnv("CALL_WEBHOOK_URL", ""),

		LogFile: getEnv("LOG_FILE", ""),
	}

	AppConfig = config
	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid integer %q, using default %d", value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration reads an integer env var and scales it by the unit implied
// by the key suffix (SECONDS, MINUTES, HOURS, otherwise milliseconds).
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		logrus.WithField("key", key).Warnf("invalid duration %q, using default %s", value, defaultValue)
		return defaultValue
	}
	switch {
	case strings.HasSuffix(key, "_SECONDS"):
		return time.Duration(n) * time.Second
	case strings.HasSuffix(key, "_MINUTES"):
		return time.Duration(n) * time.Minute
	case strings.HasSuffix(key, "_HOURS"):
		return time.Duration(n) * time.Hour
	default:
		return time.Duration(n) * time.Millisecond
	}
}

// getEnvList splits a comma-separated env var into trimmed values.
func getEnvList(key, defaultValue string) []string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
