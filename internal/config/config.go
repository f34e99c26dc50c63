package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultCouponSecret = "your_coupon_secret_minimum_32_chars_change_this"

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Security
	CouponSecret string

	// Application
	AppEnv   string
	AppPort  string
	LogLevel string

	// Lottery
	LotteryCodes  []string
	CodePattern   string
	WinOdds       int64
	CouponTTLDays int

	// Locking
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LockTTLSeconds int

	// Notifications
	TelegramBotToken    string
	TelegramAdminChatID int64
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "lottery"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lottery_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "lottery.db"),

		CouponSecret: getEnv("COUPON_SECRET", ""),

		AppEnv:   getEnv("APP_ENV", "development"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LotteryCodes:  getEnvList("LOTTERY_CODES", []string{"2026"}),
		CodePattern:   getEnv("CODE_PATTERN", `^[0-9]{4}$`),
		WinOdds:       getEnvInt64("WIN_ODDS", 4),
		CouponTTLDays: getEnvInt("COUPON_TTL_DAYS", 7),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		LockTTLSeconds: getEnvInt("LOCK_TTL_SECONDS", 10),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	// Parse admin chat id
	chatIDStr := getEnv("TELEGRAM_ADMIN_CHAT_ID", "")
	if chatIDStr != "" {
		id, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
		cfg.TelegramAdminChatID = id
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite', got %q", c.DBDriver)
	}
	if c.CouponSecret == "" {
		return fmt.Errorf("COUPON_SECRET is required")
	}
	if len(c.CouponSecret) < 32 {
		return fmt.Errorf("COUPON_SECRET must be at least 32 characters")
	}
	if c.WinOdds < 1 {
		return fmt.Errorf("WIN_ODDS must be at least 1")
	}
	if c.CouponTTLDays < 1 {
		return fmt.Errorf("COUPON_TTL_DAYS must be at least 1")
	}
	if c.LockTTLSeconds < 1 {
		return fmt.Errorf("LOCK_TTL_SECONDS must be at least 1")
	}

	pattern, err := regexp.Compile(c.CodePattern)
	if err != nil {
		return fmt.Errorf("invalid CODE_PATTERN: %w", err)
	}
	if len(c.LotteryCodes) == 0 {
		return fmt.Errorf("LOTTERY_CODES must name at least one code")
	}
	for _, code := range c.LotteryCodes {
		if !pattern.MatchString(code) {
			return fmt.Errorf("lottery code %q does not match CODE_PATTERN", code)
		}
	}

	if (c.TelegramBotToken == "") != (c.TelegramAdminChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_ADMIN_CHAT_ID must be set together")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be 'postgres' in production")
	}
	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.CouponSecret == defaultCouponSecret {
		return fmt.Errorf("COUPON_SECRET must be changed from default in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetCouponTTL() time.Duration {
	return time.Duration(c.CouponTTLDays) * 24 * time.Hour
}

func (c *Config) GetLockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
