package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBUrl           string
	JWTSecret       string
	StripeSecretKey string
	StripeAPIBase   string
	AppBaseURL      string
	MailerAPIBase   string
	MailerAPIKey    string
	MailerFrom      string
	AppEnv          string
	EnableDocs      bool
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		JWTSecret:       jwtSecret,
		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeAPIBase:   getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),
		MailerAPIBase:   getEnv("MAILER_API_BASE", ""),
		MailerAPIKey:    getEnv("MAILER_API_KEY", ""),
		MailerFrom:      getEnv("MAILER_FROM", "no-reply@immocible.fr"),
		AppEnv:          normalizeEnv(getEnv("APP_ENV", "production")),
		EnableDocs:      getEnvBool("ENABLE_API_DOCS", false),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}
