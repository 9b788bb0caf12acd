package apiclient

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/baasic/baasic-go/dto"
)

// Middleware is executed before each dispatch, after URL normalization.
// Returning nil continues the chain; returning an error aborts the call.
type Middleware func(ctx context.Context, req *dto.Request) error

// ClientConfig carries the per-client pipeline options.
type ClientConfig struct {
	Middlewares []Middleware
	Logger      hclog.Logger
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Middlewares: make([]Middleware, 0),
		Logger:      hclog.NewNullLogger(),
	}
}

func (c *ClientConfig) WithMiddleware(m ...Middleware) *ClientConfig {
	c.Middlewares = append(c.Middlewares, m...)
	return c
}

func (c *ClientConfig) WithLogger(logger hclog.Logger) *ClientConfig {
	c.Logger = logger
	return c
}
