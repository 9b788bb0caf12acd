// Package tokens persists the application access token and owns its expiry
// lifecycle: deriving an absolute expiry, arming the expiry timer, and
// notifying listeners when the token is cleared.
package tokens

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/baasic/baasic-go/dto"
)

// Handler stores and retrieves the current access token for one application
// instance. At most one expiry timer is outstanding; every Store resets it.
type Handler struct {
	backend dto.Backend
	key     string
	logger  hclog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	timerGen  uint64
	onExpired []func()
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(logger hclog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler scopes token persistence to the given api key on backend.
func NewHandler(backend dto.Backend, apiKey string, opts ...Option) *Handler {
	h := &Handler{
		backend: backend,
		key:     StorageKey(apiKey),
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StorageKey returns the backend key the token for apiKey lives under.
func StorageKey(apiKey string) string {
	return "baasic-" + apiKey + "-token"
}

// OnExpired registers a callback invoked whenever a stored token is
// cleared, either explicitly or by the expiry timer. Callbacks run outside
// the handler lock.
func (h *Handler) OnExpired(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onExpired = append(h.onExpired, fn)
}

// Get returns the persisted token, or nil when none is stored or the
// stored value cannot be decoded.
func (h *Handler) Get() *dto.AccessToken {
	raw, ok, err := h.backend.GetItem(h.key)
	if err != nil || !ok || raw == "" {
		return nil
	}
	var tok dto.AccessToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		h.logger.Warn("discarding undecodable stored token", "error", err)
		return nil
	}
	return &tok
}

// Store persists a token, deriving its expiry and arming the expiry timer.
// Storing nil clears the persisted token, cancels any pending timer, and
// notifies listeners; clearing an already-cleared token is a no-op.
func (h *Handler) Store(tok *dto.AccessToken) error {
	if tok == nil {
		return h.clear()
	}

	resolveExpiry(tok)

	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := h.backend.SetItem(h.key, string(raw)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	h.mu.Lock()
	h.cancelTimerLocked()
	if tok.ExpireTime > 0 {
		until := time.Until(time.UnixMilli(tok.ExpireTime))
		gen := h.timerGen
		h.timer = time.AfterFunc(until, func() {
			// A fired timer may race a Store that replaced the token;
			// only the current generation is allowed to clear.
			h.mu.Lock()
			stale := gen != h.timerGen
			h.mu.Unlock()
			if stale {
				return
			}
			h.logger.Debug("token expiry timer fired")
			_ = h.Store(nil)
		})
	}
	h.mu.Unlock()

	h.logger.Debug("token stored", "expire_time", tok.ExpireTime, "sliding", tok.Sliding())
	return nil
}

// clear removes the persisted token. Listeners are notified only when
// something was actually cleared, which keeps the cross-tab echo of our own
// expiry message from ping-ponging between instances. The presence check
// and removal happen under the lock, so concurrent clears notify once.
func (h *Handler) clear() error {
	h.mu.Lock()
	_, hadToken, _ := h.backend.GetItem(h.key)
	hadTimer := h.timer != nil
	h.cancelTimerLocked()

	if !hadToken && !hadTimer {
		h.mu.Unlock()
		return nil
	}

	if err := h.backend.RemoveItem(h.key); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("remove token: %w", err)
	}
	callbacks := append([]func(){}, h.onExpired...)
	h.mu.Unlock()

	h.logger.Debug("token cleared")
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (h *Handler) cancelTimerLocked() {
	h.timerGen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// resolveExpiry fills ExpireTime for tokens that lack one: expires_in wins,
// then sliding_window, then the exp claim of a JWT-shaped token. Tokens
// with no resolvable expiry keep ExpireTime zero and never expire.
func resolveExpiry(tok *dto.AccessToken) {
	if tok.ExpireTime != 0 {
		return
	}
	now := time.Now()
	switch {
	case tok.ExpiresIn > 0:
		tok.ExpireTime = now.Add(time.Duration(tok.ExpiresIn) * time.Second).UnixMilli()
	case tok.SlidingWindow > 0:
		tok.ExpireTime = now.Add(time.Duration(tok.SlidingWindow) * time.Second).UnixMilli()
	default:
		if exp, ok := jwtExpiry(tok.Token); ok {
			tok.ExpireTime = exp.UnixMilli()
		}
	}
}

// jwtExpiry extracts the exp claim from a JWT-shaped token without
// verifying its signature; the server remains the authority, this only
// feeds local expiry bookkeeping.
func jwtExpiry(raw string) (time.Time, bool) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
