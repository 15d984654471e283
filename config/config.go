package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	BaseURL   string
	JWTSecret string
	LogLevel  string
	LogFormat string

	CORSOrigins []string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	DBNameTest string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	Storage StorageConfig

	DefaultExpiry        time.Duration
	SweepRearm           bool
	SweepInterval        time.Duration
	SweepLockTTL         time.Duration
	TombstoneRetention   time.Duration
	DeleteLease          time.Duration
	ShortCodeLength      int
	ShortCodeMaxAttempts int
	ShortCodeCacheSize   int
	ShortCodeCacheTTL    time.Duration
	BcryptCost           int
	MaxUploadFiles       int
	MaxUploadBytes       int64

	RabbitMQURL      string
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPass     string
	RabbitMQVhost    string
	RabbitMQPrefetch int

	NotifyWorkerConcurrency int
	NotifyRate              float64
	NotifyBurst             int
	NotifyRetryMax          int
	NotifyRetryDelays       []time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string
	SMTPTLS      bool
	SMTPStartTLS bool
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDurationList(key string, defaultValue []time.Duration) []time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// loadDotEnv reads .env (or ENV_FILE) into the process environment.
// Variables already set win over the file.
func loadDotEnv() {
	file := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("load env file failed", "file", file, "err", err)
	}
}

// InitConfig loads configuration and initializes sub-configs.
func InitConfig() {
	loadDotEnv()

	rabbitHost := getEnv("RABBITMQ_HOST", "localhost")
	rabbitPort := getEnv("RABBITMQ_PORT", "5672")
	rabbitUser := getEnv("RABBITMQ_USER", "guest")
	rabbitPass := getEnv("RABBITMQ_PASSWORD", "guest")
	rabbitVhost := getEnv("RABBITMQ_VHOST", "/")
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(rabbitUser),
			url.PathEscape(rabbitPass),
			rabbitHost,
			rabbitPort,
			url.PathEscape(rabbitVhost),
		)
	}
	retryDelays := getEnvDurationList(
		"NOTIFY_RETRY_DELAYS",
		[]time.Duration{10 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute},
	)
	smtpPort := getEnv("SMTP_PORT", "587")

	AppConfig = Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8000"),
		BaseURL:   strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		JWTSecret: getEnv("JWT_SECRET", "l=ax+b"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPass:     getEnv("DB_PASS", "root"),
		DBName:     getEnv("DB_NAME", "pastebox"),
		DBNameTest: getEnv("DB_NAME_TEST", "pastebox_test"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		Storage: InitStorageConfig(),

		DefaultExpiry:        getEnvDuration("EXPIRY_DEFAULT", 10*24*time.Hour),
		SweepRearm:           getEnvBool("EXPIRY_SWEEP_REARM", false),
		SweepInterval:        getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
		SweepLockTTL:         getEnvDuration("EXPIRY_SWEEP_LOCK_TTL", 10*time.Minute),
		TombstoneRetention:   getEnvDuration("TOMBSTONE_RETENTION", 7*24*time.Hour),
		DeleteLease:          getEnvDuration("DELETE_LEASE", 5*time.Minute),
		ShortCodeLength:      getEnvInt("SHORT_CODE_LENGTH", 9),
		ShortCodeMaxAttempts: getEnvInt("SHORT_CODE_MAX_ATTEMPTS", 5),
		ShortCodeCacheSize:   getEnvInt("SHORT_CODE_CACHE_SIZE", 4096),
		ShortCodeCacheTTL:    getEnvDuration("SHORT_CODE_CACHE_TTL", 10*time.Minute),
		BcryptCost:           getEnvInt("BCRYPT_COST", 10),
		MaxUploadFiles:       getEnvInt("UPLOAD_MAX_FILES", 10),
		MaxUploadBytes:       getEnvInt64("UPLOAD_MAX_BYTES", 100<<20),

		RabbitMQURL:      rabbitURL,
		RabbitMQHost:     rabbitHost,
		RabbitMQPort:     rabbitPort,
		RabbitMQUser:     rabbitUser,
		RabbitMQPass:     rabbitPass,
		RabbitMQVhost:    rabbitVhost,
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 8),

		NotifyWorkerConcurrency: getEnvInt("NOTIFY_WORKER_CONCURRENCY", 4),
		NotifyRate:              getEnvFloat("NOTIFY_RATE", 2),
		NotifyBurst:             getEnvInt("NOTIFY_BURST", 4),
		NotifyRetryMax:          getEnvInt("NOTIFY_RETRY_MAX", 4),
		NotifyRetryDelays:       retryDelays,

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     smtpPort,
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPTLS:      getEnvBool("SMTP_TLS", smtpPort == "465"),
		SMTPStartTLS: getEnvBool("SMTP_STARTTLS", false),
	}
}
