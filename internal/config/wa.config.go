package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string
	GRPCAddr string
	AppEnv   string
	LogLevel string

	// session
	SessionFile    string
	PairingTimeout time.Duration
	WALogLevel     string

	// destination formatting
	CountryCode string
	TrunkPrefix string
	JIDSuffix   string

	// rate limiting, disabled when RedisAddr is empty
	RedisAddr  string
	RedisPass  string
	RateLimit  int
	RateWindow time.Duration
	RateBlock  time.Duration
	TrustProxy bool // honour X-Forwarded-For

	AllowedOrigins []string

	DB DBConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("WhatsApp gateway: No .env file found, relying on system env vars")
	}
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		GRPCAddr: getEnv("GRPC_ADDR", ":8001"),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SessionFile:    getEnv("SESSION_FILE", "./session.json"),
		PairingTimeout: getEnvAsDuration("PAIRING_TIMEOUT", 3*time.Minute),
		WALogLevel:     getEnv("WA_LOG_LEVEL", "WARN"),

		CountryCode: getEnv("COUNTRY_CODE", "62"),
		TrunkPrefix: getEnv("TRUNK_PREFIX", "0"),
		JIDSuffix:   getEnv("JID_SUFFIX", "@c.us"),

		RedisAddr:  getEnv("REDIS_ADDR", ""),
		RedisPass:  getEnv("REDIS_PASS", ""),
		RateLimit:  getEnvAsInt("RATE_LIMIT", 30),
		RateWindow: getEnvAsDuration("RATE_WINDOW", time.Minute),
		RateBlock:  getEnvAsDuration("RATE_BLOCK", 10*time.Minute),
		TrustProxy: getEnvAsBool("TRUST_PROXY", false),

		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "whatsapp"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 5),
		},
	}
}

// Development reports whether APP_ENV selects the human readable logger.
func (c AppConfig) Development() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("config: invalid %s=%q, using %t", key, v, fallback)
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
