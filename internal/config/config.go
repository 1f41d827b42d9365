package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
// Values come from defaults, then an optional YAML file, then environment
// variables, each layer overriding the previous one.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Upload   UploadConfig  `yaml:"upload"`
	Theme    ThemeConfig   `yaml:"theme"`
	Session  SessionConfig `yaml:"session"`
	LogLevel string        `yaml:"log_level"`
}

type ServerConfig struct {
	Port            string   `yaml:"port"`
	Host            string   `yaml:"host"`
	ReadTimeout     int      `yaml:"read_timeout"`
	WriteTimeout    int      `yaml:"write_timeout"`
	ShutdownTimeout int      `yaml:"shutdown_timeout"`
	RequestTimeout  int      `yaml:"request_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // Valid API keys for authentication
}

type GeminiConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"` // empty uses the SDK default endpoint
	Timeout    int    `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type ThemeConfig struct {
	PaletteSize int `yaml:"palette_size"`
	Timeout     int `yaml:"timeout"`
	SampleSize  int `yaml:"sample_size"`
}

// SessionConfig durations are in seconds, like every other timeout here
type SessionConfig struct {
	IdleTimeout   int `yaml:"idle_timeout"`
	SweepInterval int `yaml:"sweep_interval"`
}

// Load reads .env, the YAML file named by MENU_CONFIG_FILE (if any) and the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(os.Getenv("MENU_CONFIG_FILE"))
}

// LoadFile is Load with an explicit YAML file; an empty path skips the file
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     15,
			WriteTimeout:    120,
			ShutdownTimeout: 30,
			RequestTimeout:  120,
			AllowedOrigins:  []string{"*"},
		},
		Auth: AuthConfig{
			APIKeys: []string{"apitest"},
		},
		Gemini: GeminiConfig{
			Model:      "gemini-2.5-flash",
			Timeout:    30,
			MaxRetries: 2,
		},
		Upload: UploadConfig{
			MaxBytes: 10 << 20,
		},
		Theme: ThemeConfig{
			PaletteSize: 5,
			Timeout:     10,
			SampleSize:  80,
		},
		Session: SessionConfig{
			IdleTimeout:   3600,
			SweepInterval: 300,
		},
		LogLevel: "info",
	}
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.ReadTimeout = getEnvAsInt("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsInt("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.RequestTimeout = getEnvAsInt("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.AllowedOrigins = getEnvAsSlice("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Auth.APIKeys = getEnvAsSlice("API_KEYS", c.Auth.APIKeys)

	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", c.Gemini.BaseURL)
	c.Gemini.Timeout = getEnvAsInt("GEMINI_TIMEOUT", c.Gemini.Timeout)
	c.Gemini.MaxRetries = getEnvAsInt("GEMINI_MAX_RETRIES", c.Gemini.MaxRetries)

	c.Upload.MaxBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(c.Upload.MaxBytes)))

	c.Theme.PaletteSize = getEnvAsInt("THEME_PALETTE_SIZE", c.Theme.PaletteSize)
	c.Theme.Timeout = getEnvAsInt("THEME_TIMEOUT", c.Theme.Timeout)
	c.Theme.SampleSize = getEnvAsInt("THEME_SAMPLE_SIZE", c.Theme.SampleSize)

	c.Session.IdleTimeout = getEnvAsInt("SESSION_IDLE_TIMEOUT", c.Session.IdleTimeout)
	c.Session.SweepInterval = getEnvAsInt("SESSION_SWEEP_INTERVAL", c.Session.SweepInterval)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s", c.Server.Port)
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}
	for _, key := range c.Auth.APIKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("API keys must not be blank")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.Gemini.Model == "" {
		return fmt.Errorf("gemini model is required")
	}
	if c.Gemini.MaxRetries < 0 {
		return fmt.Errorf("gemini max retries must not be negative")
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini timeout must be positive")
	}
	// every attempt must fit in one request, backoff included
	if budget := c.Gemini.Timeout * (c.Gemini.MaxRetries + 1); c.Server.RequestTimeout > 0 && budget >= c.Server.RequestTimeout {
		return fmt.Errorf("gemini timeout %ds with %d retries exceeds the %ds request timeout",
			c.Gemini.Timeout, c.Gemini.MaxRetries, c.Server.RequestTimeout)
	}

	if c.Upload.MaxBytes <= 0 || c.Upload.MaxBytes > 10<<20 {
		return fmt.Errorf("upload max bytes must be between 1 and %d", 10<<20)
	}

	if c.Theme.PaletteSize < 1 || c.Theme.PaletteSize > 5 {
		return fmt.Errorf("theme palette size must be between 1 and 5")
	}
	if c.Theme.SampleSize < 0 {
		return fmt.Errorf("theme sample size must not be negative")
	}

	return nil
}

// Duration converts a number of seconds from the config into a time.Duration
func Duration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
