package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        int
	DatabaseURL string // empty selects the in-memory stores (local development)
	JWTSecret   string
	CORSOrigins []string

	GoogleClientID string

	PayPalClientID     string
	PayPalClientSecret string
	PayPalEnv          string            // "live" or "sandbox"
	PayPalPlanIDs      map[string]string // plan tier -> provisioned billing plan ID (P-...)
	Currency           string
	OneTimePrice       int // centavos per single conversion

	UploadTTL      time.Duration
	MaxUploadBytes int64
	MaxUploadPages int

	ExtractorAPIKey string // empty selects the static extractor
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4002"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := strings.ToLower(getEnv("PAYPAL_ENV", "sandbox"))
	if env != "live" && env != "sandbox" {
		return nil, fmt.Errorf("PAYPAL_ENV must be 'live' or 'sandbox', got %q", env)
	}

	price, err := strconv.Atoi(getEnv("ONE_TIME_PRICE", "2000"))
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("ONE_TIME_PRICE must be a positive centavo amount")
	}

	ttl, err := time.ParseDuration(getEnv("UPLOAD_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_TTL: %w", err)
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,https://convertia.mx"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:               port,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          jwtSecret,
		CORSOrigins:        origins,
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalEnv:          env,
		PayPalPlanIDs: map[string]string{
			"basic":    getEnv("PAYPAL_PLAN_ID_BASIC", ""),
			"standard": getEnv("PAYPAL_PLAN_ID_STANDARD", ""),
			"premium":  getEnv("PAYPAL_PLAN_ID_PREMIUM", ""),
		},
		Currency:           getEnv("PAYPAL_CURRENCY", "MXN"),
		OneTimePrice:       price,
		UploadTTL:          ttl,
		MaxUploadBytes:     15 << 20, // 15 MiB
		MaxUploadPages:     10,
		ExtractorAPIKey:    getEnv("EXTRACTOR_API_KEY", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
