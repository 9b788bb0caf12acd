// Package baasic bootstraps one application instance: configuration, token
// lifecycle, the request pipeline, session state and cross-context session
// synchronization over a shared storage backend.
package baasic

import (
	"crypto/rand"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	"github.com/baasic/baasic-go/client/apiclient"
	"github.com/baasic/baasic-go/client/httptransport"
	"github.com/baasic/baasic-go/client/membership"
	"github.com/baasic/baasic-go/config"
	"github.com/baasic/baasic-go/dto"
	"github.com/baasic/baasic-go/permissions"
	"github.com/baasic/baasic-go/storage"
	"github.com/baasic/baasic-go/tokens"
)

// App is one application instance. Several Apps with distinct api keys can
// coexist in a process; Apps sharing a storage backend observe each
// other's session changes through the message bus.
type App struct {
	cfg        *config.ClientConfig
	backend    dto.Backend
	transport  dto.Transport
	tokens     *tokens.Handler
	api        *apiclient.Client
	membership *membership.Service
	perms      *permissions.Cache
	logger     hclog.Logger

	// instanceID distinguishes this App's bus messages from those of
	// other instances sharing the backend.
	instanceID string

	muListeners sync.Mutex
	listeners   map[int]chan Event
	nextID      int

	muUser     sync.Mutex
	user       map[string]any
	userLoaded bool

	// remoteClear marks a token clear performed on behalf of another
	// context's announcement; the expiry callback must not re-publish it.
	remoteClear atomic.Bool

	busUnsub func()
	closed   bool
}

type Option func(*App)

// WithBackend replaces the default in-memory backend, typically with a
// sqlitestore or s3store instance shared between processes.
func WithBackend(backend dto.Backend) Option {
	return func(a *App) { a.backend = backend }
}

// WithTransport replaces the default HTTP transport.
func WithTransport(transport dto.Transport) Option {
	return func(a *App) { a.transport = transport }
}

func WithLogger(logger hclog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// New builds and starts an App: the token handler is bound to the
// backend, the expiry timer is armed from any persisted token, and the
// bus listener goroutine is running when New returns.
func New(cfg *config.ClientConfig, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		cfg:        cfg,
		logger:     hclog.NewNullLogger(),
		instanceID: ulid.MustNew(ulid.Now(), rand.Reader).String(),
		listeners:  make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.backend == nil {
		app.backend = storage.NewMemory()
	}
	if app.transport == nil {
		app.transport = httptransport.New(cfg, httptransport.WithLogger(app.logger.Named("transport")))
	}

	app.tokens = tokens.NewHandler(app.backend, cfg.APIKey, tokens.WithLogger(app.logger.Named("tokens")))
	app.api = apiclient.NewClient(cfg, app.tokens, app.transport, &apiclient.ClientConfig{
		Logger: app.logger.Named("api"),
	})
	app.membership = membership.NewService(app.api, app.tokens, membership.WithLogger(app.logger.Named("membership")))
	app.perms = permissions.NewCache(cfg.APIKey, app.api)

	// A locally expired token is announced to every other context before
	// the local event fires.
	app.tokens.OnExpired(func() {
		if app.remoteClear.Load() {
			return
		}
		app.perms.Reset()
		if err := app.publish(MessageTokenExpired); err != nil {
			app.logger.Warn("publish token expiry failed", "error", err)
		}
		app.emit(Event{Type: EventTokenExpired})
	})

	// A token left behind by a previous process (durable backends outlive
	// the App) must get its timer back; an already expired one is cleared
	// right away by the timer this Store arms.
	if tok := app.tokens.Get(); tok != nil {
		if err := app.tokens.Store(tok); err != nil {
			app.logger.Warn("re-arming persisted token failed", "error", err)
		}
	}

	app.startBus()
	return app, nil
}

// Config returns the instance configuration.
func (a *App) Config() *config.ClientConfig { return a.cfg }

// Tokens returns the token handler bound to this instance.
func (a *App) Tokens() *tokens.Handler { return a.tokens }

// API returns the request pipeline for resource modules built on top of
// this instance.
func (a *App) API() *apiclient.Client { return a.api }

// Membership returns the login/logout/user-info operations.
func (a *App) Membership() *membership.Service { return a.membership }

// Permissions returns the per-instance permission cache.
func (a *App) Permissions() *permissions.Cache { return a.perms }

// Close stops the bus listener and closes all event subscriptions. The
// App must not be used afterwards.
func (a *App) Close() {
	a.muListeners.Lock()
	if a.closed {
		a.muListeners.Unlock()
		return
	}
	a.closed = true
	for id, ch := range a.listeners {
		close(ch)
		delete(a.listeners, id)
	}
	a.muListeners.Unlock()

	if a.busUnsub != nil {
		a.busUnsub()
	}
}
