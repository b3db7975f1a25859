package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type CloudflareImagesConfig struct {
	AccountID string
	Token     string
	Hash      string // Images CDN URL'leri için hash değeri
}

type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	DefaultCurrency string
}

type EmailConfig struct {
	ResendAPIKey string
	FromAddress  string
	FromName     string
}

type Config struct {
	Port               string
	AppEnv             string
	DatabaseURL        string
	JWTSecret          string
	JWTIssuer          string
	FrontendURL        string
	CORSOrigins        string
	RateLimitEnabled   bool
	RateLimitPerMinute int
	TurnstileSecret    string
	QRBaseURL          string
	MaxVideoSizeMB     int
	BcryptCost         int

	S3               S3Config
	CloudflareImages CloudflareImagesConfig
	Stripe           StripeConfig
	Email            EmailConfig
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:5173")

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		AppEnv:             normalizeEnv(getEnv("APP_ENV", "production")),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          jwtSecret,
		JWTIssuer:          getEnv("JWT_ISSUER", "coaching-backend"),
		FrontendURL:        frontendURL,
		CORSOrigins:        getEnv("CORS_ORIGINS", frontendURL),
		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TurnstileSecret:    getEnv("CF_TURNSTILE_SECRET_KEY", ""),
		QRBaseURL:          getEnv("QR_BASE_URL", frontendURL+"/sessions/check-in/"),
		MaxVideoSizeMB:     getEnvInt("MAX_VIDEO_SIZE_MB", 500),
		BcryptCost:         getEnvInt("BCRYPT_COST", 12),
	}

	cfg.S3 = S3Config{
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		Region:          getEnv("S3_REGION", "auto"),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		Bucket:          getEnv("S3_BUCKET", ""),
		PublicURL:       getEnv("S3_PUBLIC_URL", ""),
	}

	cfg.CloudflareImages = CloudflareImagesConfig{
		AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		Token:     getEnv("CLOUDFLARE_IMAGES_TOKEN", ""),
		Hash:      getEnv("CLOUDFLARE_IMAGES_HASH", ""),
	}

	cfg.Stripe = StripeConfig{
		SecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		DefaultCurrency: strings.ToLower(getEnv("DEFAULT_CURRENCY", "usd")),
	}

	cfg.Email = EmailConfig{
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		FromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		FromName:     getEnv("EMAIL_FROM_NAME", "Coaching"),
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
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
