package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the client tooling and the dev server.
type Config struct {
	Client   ClientConfig
	Upload   UploadConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ClientConfig holds settings for the API client.
type ClientConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
	// CookiePath is where the CLI persists the session cookie jar.
	CookiePath string
}

// UploadConfig holds upload pipeline policy.
type UploadConfig struct {
	// MinDurationSeconds rejects clips shorter than this before any network
	// call is made.
	MinDurationSeconds int
	FFProbePath        string
}

// ServerConfig holds dev server HTTP settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// PublicURL is the base URL presigned upload targets are issued under.
	PublicURL string
}

// DatabaseConfig holds dev server database settings. The sqlite driver is
// the default; set DB_DRIVER=postgres to use a real database.
type DatabaseConfig struct {
	Driver   string
	Path     string // sqlite file path
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the optional refresh-token cache settings.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds blob storage settings for uploaded audio.
type StorageConfig struct {
	LocalPath string
	// PresignTTL bounds how long an issued upload target stays valid.
	PresignTTL time.Duration
}

// AuthConfig holds dev server authentication settings.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BCryptCost      int
	// DailyMinutes is the usage quota granted to new accounts.
	DailyMinutes float64
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:     getEnv("VOXSCRIBE_API_URL", "http://localhost:3000/api/v1"),
			HTTPTimeout: getEnvDuration("VOXSCRIBE_HTTP_TIMEOUT", 60*time.Second),
			CookiePath:  getEnv("VOXSCRIBE_COOKIE_PATH", ""),
		},
		Upload: UploadConfig{
			MinDurationSeconds: getEnvInt("UPLOAD_MIN_DURATION_SECONDS", 30),
			FFProbePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		},
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 3000),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			PublicURL:    getEnv("SERVER_PUBLIC_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "voxscribe.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "voxscribe"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "voxscribe"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			LocalPath:  getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			PresignTTL: getEnvDuration("STORAGE_PRESIGN_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "dev-only-secret"),
			AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			BCryptCost:      getEnvInt("BCRYPT_COST", 12),
			DailyMinutes:    getEnvFloat("DAILY_MINUTES", 120),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// DatabaseURL returns a PostgreSQL connection string.
func (d *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisAddr returns the Redis address.
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Addr returns the dev server listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
