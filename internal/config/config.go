package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// AEROCATALOG_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "AEROCATALOG"

// Config represents the top-level AeroCatalog configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	APIKeys   APIKeysConfig   `yaml:"api_keys" mapstructure:"api_keys"`
	Chat      ChatConfig      `yaml:"chat" mapstructure:"chat"`
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string          `yaml:"host" mapstructure:"host"`
	Port            int             `yaml:"port" mapstructure:"port"`
	MaxBodySize     string          `yaml:"max_body_size" mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// RateLimitConfig bounds request rates per minute. Zero disables a limit.
type RateLimitConfig struct {
	LoginPerMinute int `yaml:"login_per_minute" mapstructure:"login_per_minute"`
	ChatPerMinute  int `yaml:"chat_per_minute" mapstructure:"chat_per_minute"`
}

// DatabaseConfig selects the backing database.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// AuthConfig controls authentication settings.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"` // 0 means tokens never expire
	APIKeyHeader string        `yaml:"api_key_header" mapstructure:"api_key_header"`
}

// APIKeysConfig controls developer key issuance.
type APIKeysConfig struct {
	MaxActive int    `yaml:"max_active" mapstructure:"max_active"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
}

// ChatConfig controls chat session limits.
type ChatConfig struct {
	MaxSessions int `yaml:"max_sessions" mapstructure:"max_sessions"`
	TitleLength int `yaml:"title_length" mapstructure:"title_length"`
}

// InferenceConfig points at the OpenAI-compatible completion endpoint.
type InferenceConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	APIToken    string        `yaml:"api_token" mapstructure:"api_token"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			MaxBodySize:     "1MB",
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
			RateLimit: RateLimitConfig{
				LoginPerMinute: 10,
				ChatPerMinute:  30,
			},
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "aerocatalog.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL:     7 * 24 * time.Hour,
			APIKeyHeader: "x-api-key",
		},
		APIKeys: APIKeysConfig{
			MaxActive: 10,
			Prefix:    "aircraft_",
		},
		Chat: ChatConfig{
			MaxSessions: 5,
			TitleLength: 50,
		},
		Inference: InferenceConfig{
			BaseURL:     "http://localhost:1234/v1",
			Model:       "local-model",
			APIToken:    "lm-studio",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v. Viper only maps environment
// variables onto keys it already knows, so this must run before Load.
func SetDefaults(v *viper.Viper) {
	d := Default()
	defaults := map[string]interface{}{
		"server.host":                        d.Server.Host,
		"server.port":                        d.Server.Port,
		"server.max_body_size":               d.Server.MaxBodySize,
		"server.shutdown_timeout":            d.Server.ShutdownTimeout,
		"server.cors.origins":                d.Server.CORS.Origins,
		"server.rate_limit.login_per_minute": d.Server.RateLimit.LoginPerMinute,
		"server.rate_limit.chat_per_minute":  d.Server.RateLimit.ChatPerMinute,
		"database.driver":                    d.Database.Driver,
		"database.dsn":                       d.Database.DSN,
		"database.max_open_conns":            d.Database.MaxOpenConns,
		"database.max_idle_conns":            d.Database.MaxIdleConns,
		"database.conn_max_lifetime":         d.Database.ConnMaxLifetime,
		"auth.jwt_secret":                    d.Auth.JWTSecret,
		"auth.token_ttl":                     d.Auth.TokenTTL,
		"auth.api_key_header":                d.Auth.APIKeyHeader,
		"api_keys.max_active":                d.APIKeys.MaxActive,
		"api_keys.prefix":                    d.APIKeys.Prefix,
		"chat.max_sessions":                  d.Chat.MaxSessions,
		"chat.title_length":                  d.Chat.TitleLength,
		"inference.base_url":                 d.Inference.BaseURL,
		"inference.model":                    d.Inference.Model,
		"inference.api_token":                d.Inference.APIToken,
		"inference.temperature":              d.Inference.Temperature,
		"inference.max_tokens":               d.Inference.MaxTokens,
		"inference.timeout":                  d.Inference.Timeout,
		"logging.level":                      d.Logging.Level,
		"logging.format":                     d.Logging.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the effective configuration held by v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.Server.MaxBodyBytes(); err != nil {
		return err
	}
	if c.APIKeys.MaxActive <= 0 {
		return fmt.Errorf("api_keys.max_active must be positive")
	}
	if c.APIKeys.Prefix == "" {
		return fmt.Errorf("api_keys.prefix must not be empty")
	}
	if c.Chat.MaxSessions <= 0 {
		return fmt.Errorf("chat.max_sessions must be positive")
	}
	if c.Chat.TitleLength <= 0 {
		return fmt.Errorf("chat.title_length must be positive")
	}
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference.base_url must not be empty")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}
	return nil
}

// MaxBodyBytes parses MaxBodySize ("1MB", "512KiB", ...) into bytes.
func (s ServerConfig) MaxBodyBytes() (int64, error) {
	if s.MaxBodySize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("server.max_body_size: %w", err)
	}
	return int64(n), nil
}

// Masked returns a copy of c with secrets replaced, suitable for printing.
func (c Config) Masked() Config {
	out := c
	out.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	out.Inference.APIToken = mask(c.Inference.APIToken)
	out.Database.DSN = maskDSN(c.Database.DSN)
	return out
}

// WriteDefault writes the default configuration to a YAML file. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// maskDSN hides the password portion of user:pass@host style DSNs.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	head := dsn[:at]
	colon := strings.LastIndex(head, ":")
	if colon < 0 {
		return dsn
	}
	return head[:colon+1] + "********" + dsn[at:]
}
