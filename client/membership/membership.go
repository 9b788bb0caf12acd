// Package membership implements the login, logout and user-info operations
// against the platform's membership endpoints.
package membership

import (
	"github.com/hashicorp/go-hclog"

	"github.com/baasic/baasic-go/client/apiclient"
	"github.com/baasic/baasic-go/routes"
	"github.com/baasic/baasic-go/tokens"
)

// Service runs membership operations through the shared request pipeline
// and keeps the token handler in sync with login state.
type Service struct {
	api    *apiclient.Client
	tokens *tokens.Handler
	routes *routes.Builder
	logger hclog.Logger
}

type Option func(*Service)

func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRoutes overrides the default membership route table.
func WithRoutes(b *routes.Builder) Option {
	return func(s *Service) { s.routes = b }
}

func NewService(api *apiclient.Client, handler *tokens.Handler, opts ...Option) *Service {
	s := &Service{
		api:    api,
		tokens: handler,
		routes: routes.NewBuilder(routes.Membership...),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
