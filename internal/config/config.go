package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
	ProviderMock    = "mock"
)

// ErrMissingCredential is returned by Validate when no AI credential is configured.
var ErrMissingCredential = errors.New("AI_GATEWAY_API_KEY is not configured")

type Config struct {
	AppEnv           string
	AppName          string
	APIPrefix        string
	AppPort          string
	DatabaseURL      string
	JWTSecret        string
	JWTAlgorithm     string
	JWTAudience      string
	JWTIssuer        string
	CORSAllowOrigins []string
	AIProvider       string
	AIAPIKey         string
	AIBaseURL        string
	AIModel          string
	AITimeoutSeconds int
	LogLevel         string
	LogFormat        string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:           getEnv("APP_ENV", "local"),
		AppName:          getEnv("APP_NAME", "RelationshipAI API"),
		APIPrefix:        getEnv("API_PREFIX", "/functions/v1"),
		AppPort:          getEnv("APP_PORT", "8000"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAlgorithm:     getEnv("JWT_ALGORITHM", "HS256"),
		JWTAudience:      getEnv("JWT_AUDIENCE", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", ""),
		CORSAllowOrigins: getEnvCSV("CORS_ALLOW_ORIGINS", []string{"*"}),
		AIProvider:       strings.ToLower(getEnv("AI_PROVIDER", ProviderGateway)),
		AIAPIKey:         getEnv("AI_GATEWAY_API_KEY", getEnv("LOVABLE_API_KEY", "")),
		AIBaseURL:        getEnv("AI_GATEWAY_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
		AIModel:          getEnv("AI_MODEL", "google/gemini-2.5-flash"),
		AITimeoutSeconds: getEnvInt("AI_TIMEOUT_SECONDS", 0),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}
}

// Validate reports configuration problems that must stop the process at startup.
func (c Config) Validate() error {
	switch c.AIProvider {
	case ProviderGateway, ProviderGemini:
		if strings.TrimSpace(c.AIAPIKey) == "" {
			return ErrMissingCredential
		}
	case ProviderMock:
	default:
		return fmt.Errorf("AI_PROVIDER %q is not supported", c.AIProvider)
	}
	if c.AIProvider == ProviderGateway && strings.TrimSpace(c.AIBaseURL) == "" {
		return errors.New("AI_GATEWAY_BASE_URL is required")
	}
	if strings.TrimSpace(c.AIModel) == "" {
		return errors.New("AI_MODEL is required")
	}
	if c.AITimeoutSeconds < 0 {
		return errors.New("AI_TIMEOUT_SECONDS must not be negative")
	}
	if secret := strings.TrimSpace(c.JWTSecret); secret != "" {
		if len(secret) < 16 {
			return errors.New("JWT_SECRET is too short; use at least 16 characters")
		}
		if strings.TrimSpace(c.JWTAlgorithm) == "" {
			return errors.New("JWT_ALGORITHM is required when JWT_SECRET is set")
		}
	}
	return nil
}

// AuthEnabled reports whether bearer tokens are verified on the analysis routes.
func (c Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
