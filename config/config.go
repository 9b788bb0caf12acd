package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baasic/baasic-go/dto"
)

const (
	DefaultAPIRootURL = "api.baasic.com"
	DefaultAPIVersion = "v1"
	DefaultLanguage   = "en"

	defaultRequestTimeout = 20 * time.Second
)

var ErrMissingAPIKey = errors.New("config: missing api key")

// ClientConfig carries the immutable application settings supplied at
// construction. Builder setters are for assembly only; once an App is
// created around a config it must not be mutated.
type ClientConfig struct {
	// APIKey identifies the application instance on the platform. Every
	// relative route is scoped under it.
	APIKey          string
	APIRootURL      string
	APIVersion      string
	UseSSL          bool
	DefaultLanguage string
	EnableHALJSON   bool
	RequestTimeout  time.Duration
	UserAgent       string
	ExtraHeaders    dto.ExtraHeaders
}

func Default(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:          apiKey,
		APIRootURL:      DefaultAPIRootURL,
		APIVersion:      DefaultAPIVersion,
		UseSSL:          true,
		DefaultLanguage: DefaultLanguage,
		EnableHALJSON:   true,
		RequestTimeout:  defaultRequestTimeout,
	}
}

func (c *ClientConfig) WithAPIRootURL(root string) *ClientConfig {
	c.APIRootURL = strings.TrimSuffix(root, "/")
	return c
}
func (c *ClientConfig) WithAPIVersion(version string) *ClientConfig {
	c.APIVersion = version
	return c
}
func (c *ClientConfig) WithUseSSL(useSSL bool) *ClientConfig {
	c.UseSSL = useSSL
	return c
}
func (c *ClientConfig) WithDefaultLanguage(lang string) *ClientConfig {
	c.DefaultLanguage = lang
	return c
}
func (c *ClientConfig) WithHALJSON(enabled bool) *ClientConfig {
	c.EnableHALJSON = enabled
	return c
}
func (c *ClientConfig) WithRequestTimeout(d time.Duration) *ClientConfig {
	c.RequestTimeout = d
	return c
}
func (c *ClientConfig) WithUserAgent(ua string) *ClientConfig {
	c.UserAgent = ua
	return c
}
func (c *ClientConfig) WithExtraHeaders(headers dto.ExtraHeaders) *ClientConfig {
	c.ExtraHeaders = headers
	return c
}

func (c *ClientConfig) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Scheme returns the URL scheme implied by UseSSL.
func (c *ClientConfig) Scheme() string {
	if c.UseSSL {
		return "https"
	}
	return "http"
}

// BaseURL returns the absolute API root every relative route is resolved
// against: scheme://root/version/apiKey/. Always ends with a slash.
func (c *ClientConfig) BaseURL() string {
	root := c.APIRootURL
	if root == "" {
		root = DefaultAPIRootURL
	}
	root = strings.TrimSuffix(root, "/")
	version := c.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return fmt.Sprintf("%s://%s/%s/%s/", c.Scheme(), root, version, c.APIKey)
}
