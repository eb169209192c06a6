// Package config 读取 quire 的 YAML 配置文件。
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/layout"
)

// MaxInputSize 限制配置文件大小（1MB）。
var MaxInputSize = 1 << 20

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Environment variables that override the file.
const (
	EnvJWTSecret = "QUIRE_JWT_SECRET"
	EnvRedisAddr = "QUIRE_REDIS_ADDR"
)

// Config holds all configuration for the CLI and the HTTP server.
type Config struct {
	Text      layout.TextOptions      `yaml:"text"`
	Numbering document.PageNumberSpec `yaml:"numbering"`
	Server    ServerConfig            `yaml:"server"`
	Redis     RedisConfig             `yaml:"redis"`
}

// ServerConfig 是 HTTP 服务的配置。
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	JWTSecret   string `yaml:"jwtSecret"`
	TokenTTL    string `yaml:"tokenTTL"`    // time.ParseDuration 格式，例如 "168h"
	MaxUploadMB int    `yaml:"maxUploadMB"` // 单次请求上传总量上限
}

// RedisConfig 是用户存储的配置。Addr 为空时使用内存存储。
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Text:      layout.DefaultTextOptions(),
		Numbering: document.DefaultPageNumberSpec(),
		Server: ServerConfig{
			Addr:        ":8080",
			TokenTTL:    "168h",
			MaxUploadMB: 64,
		},
	}
}

// TTL 返回解析后的令牌有效期。
func (s ServerConfig) TTL() (time.Duration, error) {
	d, err := time.ParseDuration(s.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("%w: server.tokenTTL: %v", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: server.tokenTTL 必须为正数", ErrInvalidConfig)
	}
	return d, nil
}

// Validate 检查各个配置段。
func (c *Config) Validate() error {
	if _, err := c.Text.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("%w: text: %v", ErrInvalidConfig, err)
	}
	if err := c.Numbering.Validate(); err != nil {
		return fmt.Errorf("%w: numbering: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Server.TTL(); err != nil {
		return err
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: server.maxUploadMB 必须为正数", ErrInvalidConfig)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("%w: redis.db 不能为负数", ErrInvalidConfig)
	}
	return nil
}

// Parse 在默认配置之上解析 YAML。未知字段视为错误。
func Parse(data []byte) (*Config, error) {
	if len(data) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigParse, len(data), MaxInputSize)
	}
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}
	cfg.Text = cfg.Text.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load 读取配置文件。path 为空时返回默认配置；随后用环境变量覆盖敏感字段。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

// applyEnv 只在环境变量非空时覆盖对应字段。
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvJWTSecret); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		cfg.Redis.Addr = v
	}
}
