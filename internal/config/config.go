package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Chat     ChatConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	PublicBase    string
	MaxUploadSize int64
}

type AuthConfig struct {
	// JWTSecret verifies tokens minted by the external identity provider.
	JWTSecret string
	Issuer    string
}

type ChatConfig struct {
	// PageSize is the history page fetched per load/load-older request.
	PageSize int
	// OptimisticRegistrySize bounds the locally-originated-id registry.
	OptimisticRegistrySize int
	PresenceTTL            time.Duration
}

// LoadConfig loads configuration from environment variables.
// Defaults can be set here if needed.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "portal"),
			Password: getEnv("DB_PASSWORD", "portal"),
			Name:     getEnv("DB_NAME", "agency_portal"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Region:        getEnv("S3_REGION", ""),
			Bucket:        getEnv("S3_BUCKET", ""),
			AccessKey:     getEnv("S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("S3_SECRET_KEY", ""),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			PublicBase:    getEnv("S3_PUBLIC_BASE", ""),
			MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 25<<20),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "agency-portal-idp"),
		},
		Chat: ChatConfig{
			PageSize:               getEnvAsInt("CHAT_PAGE_SIZE", 20),
			OptimisticRegistrySize: getEnvAsInt("CHAT_OPTIMISTIC_REGISTRY", 512),
			PresenceTTL:            getEnvAsDuration("PRESENCE_TTL", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
