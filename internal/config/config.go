package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Blob backends for uploaded photos
const (
	BlobBackendTelegram = "telegram"
	BlobBackendR2       = "r2"
	BlobBackendLocal    = "local"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database (empty = in-memory document store)
	DatabaseURL string

	// Redis (empty = no cache, single-instance events)
	RedisURL string

	// JWT
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Admin account
	AdminEmail        string
	AdminPasswordHash string

	// CORS
	AllowedOrigins []string

	// Blob transport
	BlobBackend string

	// Telegram
	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string
	TelegramTimeout  time.Duration

	// Storage (R2)
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string

	// Storage (local)
	LocalStoragePath string
	LocalStorageURL  string

	// Limits
	UploadMaxBytes   int64
	CompressMaxBytes int64

	// Cache
	CategoryCacheTTL time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

func Load() *Config {
	// Load .env file in development
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-me"),
		JWTAccessTTL: parseDuration(getEnv("JWT_ACCESS_TTL", "12h"), 12*time.Hour),

		// Admin
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		// CORS
		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		// Blob transport
		BlobBackend: strings.ToLower(getEnv("BLOB_BACKEND", BlobBackendTelegram)),

		// Telegram
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramTimeout:  parseDuration(getEnv("TELEGRAM_TIMEOUT", "30s"), 30*time.Second),

		// Storage
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", "gallery-photos"),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./media"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/media"),

		// Limits
		UploadMaxBytes:   parseInt64(getEnv("UPLOAD_MAX_BYTES", "10485760"), 10*1024*1024),
		CompressMaxBytes: parseInt64(getEnv("COMPRESS_MAX_BYTES", "4194304"), 4*1024*1024),

		// Cache
		CategoryCacheTTL: parseDuration(getEnv("CATEGORY_CACHE_TTL", "5m"), 5*time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseInt64(s string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesMemoryStore reports whether documents live only in process memory.
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}
