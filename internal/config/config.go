package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port       string
	Env        string
	MongoURI   string
	DBName     string
	JWTSecret  string
	JWTTTL     time.Duration
	CookieTTL  time.Duration
	EmailHost  string
	EmailPort  int
	EmailUser  string
	EmailPass  string
	EmailFrom  string
	StripeKey  string
	StripeHook string
	RateLimit  int64
	RateWindow time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:       getEnvOrDefault("PORT", "3000"),
		Env:        getEnvOrDefault("APP_ENV", "development"),
		MongoURI:   getEnvOrDefault("MONGO_URI", ""),
		DBName:     getEnvOrDefault("DB_NAME", "tourbook"),
		JWTSecret:  getEnvOrDefault("JWT_SECRET", ""),
		JWTTTL:     getDurationEnv("JWT_TTL", 90, 24*time.Hour),
		CookieTTL:  getDurationEnv("JWT_COOKIE_TTL", 90, 24*time.Hour),
		EmailHost:  getEnvOrDefault("EMAIL_HOST", ""),
		EmailPort:  getIntEnv("EMAIL_PORT", 25),
		EmailUser:  getEnvOrDefault("EMAIL_USERNAME", ""),
		EmailPass:  getEnvOrDefault("EMAIL_PASSWORD", ""),
		EmailFrom:  getEnvOrDefault("EMAIL_FROM", "Tourbook <hello@tourbook.dev>"),
		StripeKey:  getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeHook: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		RateLimit:  int64(getIntEnv("RATE_LIMIT", 100)),
		RateWindow: getDurationEnv("RATE_WINDOW", 1, time.Hour),
	}
}

// IsProduction reports whether sanitized error responses should be used.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
