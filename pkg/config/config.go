package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`

	// 数据库配置
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/arena.db"`

	// Redis is optional; without it invalidation events stay inside the process.
	RedisURL           string `env:"REDIS_URL"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"arena:"`

	// JWT配置
	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`

	// LiveKit配置
	LiveKitURL       string        `env:"LIVEKIT_URL"`
	LiveKitAPIKey    string        `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret string        `env:"LIVEKIT_API_SECRET"`
	LiveKitTokenTTL  time.Duration `env:"LIVEKIT_TOKEN_TTL" envDefault:"6h"`

	// 定时任务
	CronSecret    string        `env:"CRON_SECRET"`
	SweepInterval time.Duration `env:"INVITE_SWEEP_INTERVAL" envDefault:"30s"`

	// CORS配置
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// 调试配置
	Debug bool `env:"DEBUG" envDefault:"false"`
}

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() (*Config, error) {
	// 根据环境加载对应的 .env 文件，已存在的环境变量优先
	switch os.Getenv("ENVIRONMENT") {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.LiveKitURL = strings.TrimSpace(cfg.LiveKitURL)
	cfg.LiveKitAPIKey = strings.TrimSpace(cfg.LiveKitAPIKey)
	cfg.LiveKitAPISecret = strings.TrimSpace(cfg.LiveKitAPISecret)
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if cfg.IsProduction() {
		// 生产环境关闭调试
		cfg.Debug = false
	}

	return cfg, nil
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	cachedErr    error
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() (*Config, error) {
	configOnce.Do(func() {
		cachedConfig, cachedErr = LoadConfig()
	})
	return cachedConfig, cachedErr
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be set in production")
		}
	}

	// 生产环境必须使用PostgreSQL
	if c.IsProduction() && c.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN must be set in production")
	}

	if c.SweepInterval <= 0 {
		return errors.New("INVITE_SWEEP_INTERVAL must be positive")
	}

	return nil
}

// LiveKitConfigured reports whether tokens can be minted.
func (c *Config) LiveKitConfigured() bool {
	return c.LiveKitAPIKey != "" && c.LiveKitAPISecret != ""
}

// UsesDefaultJWTSecret is true when no secret was provided.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// loadEnvFile 加载 .env 文件到环境变量，文件不存在时静默返回
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	_ = godotenv.Load(filename)
}
