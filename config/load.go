package config

import (
	"fmt"
	"io"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/baasic/baasic-go/dto"
)

// fileConfig is the TOML schema. Durations are plain seconds so config
// files stay free of Go-specific duration syntax.
type fileConfig struct {
	APIKey                string            `toml:"api_key"`
	APIRootURL            string            `toml:"api_root_url"`
	APIVersion            string            `toml:"api_version"`
	UseSSL                *bool             `toml:"use_ssl"`
	DefaultLanguage       string            `toml:"default_language"`
	EnableHALJSON         *bool             `toml:"enable_hal_json"`
	RequestTimeoutSeconds int64             `toml:"request_timeout_seconds"`
	UserAgent             string            `toml:"user_agent"`
	ExtraHeaders          map[string]string `toml:"extra_headers"`
}

// Load reads a ClientConfig from a TOML file, filling defaults for anything
// the file omits.
func Load(path string) (*ClientConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default(fc.APIKey)
	if fc.APIRootURL != "" {
		cfg.WithAPIRootURL(fc.APIRootURL)
	}
	if fc.APIVersion != "" {
		cfg.APIVersion = fc.APIVersion
	}
	if fc.UseSSL != nil {
		cfg.UseSSL = *fc.UseSSL
	}
	if fc.DefaultLanguage != "" {
		cfg.DefaultLanguage = fc.DefaultLanguage
	}
	if fc.EnableHALJSON != nil {
		cfg.EnableHALJSON = *fc.EnableHALJSON
	}
	if fc.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeoutSeconds) * time.Second
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if len(fc.ExtraHeaders) > 0 {
		cfg.ExtraHeaders = dto.ExtraHeaders(fc.ExtraHeaders)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
