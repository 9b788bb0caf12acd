package baasic

import (
	"encoding/json"
	"fmt"

	"github.com/baasic/baasic-go/dto"
)

// UserStorageKey returns the backend key the session user info for apiKey
// lives under.
func UserStorageKey(apiKey string) string {
	return "baasic-" + apiKey + "-user"
}

// IsAuthenticated reports whether a token is stored and not yet expired.
// A token with no expiry never expires.
func (a *App) IsAuthenticated() bool {
	tok := a.tokens.Get()
	return tok != nil && !tok.IsExpired()
}

// User returns the session user snapshot, loading the persisted user info
// on first access. A cleared or never-set user yields nil.
func (a *App) User() map[string]any {
	a.muUser.Lock()
	defer a.muUser.Unlock()

	if !a.userLoaded {
		a.user = a.loadUser()
		a.userLoaded = true
	}
	if a.user == nil {
		return nil
	}
	snapshot := make(map[string]any, len(a.user))
	for k, v := range a.user {
		snapshot[k] = v
	}
	return snapshot
}

func (a *App) loadUser() map[string]any {
	raw, ok, err := a.backend.GetItem(UserStorageKey(a.cfg.APIKey))
	if err != nil || !ok || raw == "" {
		return nil
	}
	var user map[string]any
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		a.logger.Warn("discarding undecodable stored user", "error", err)
		return nil
	}
	return user
}

// SetUser replaces the session user, persists it, and announces the
// change locally and to other contexts. A nil user clears the persisted
// info.
func (a *App) SetUser(user map[string]any) error {
	key := UserStorageKey(a.cfg.APIKey)

	if user == nil {
		if err := a.backend.RemoveItem(key); err != nil {
			return fmt.Errorf("remove user info: %w", err)
		}
	} else {
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user info: %w", err)
		}
		if err := a.backend.SetItem(key, string(raw)); err != nil {
			return fmt.Errorf("persist user info: %w", err)
		}
	}

	a.muUser.Lock()
	a.user = user
	a.userLoaded = true
	a.muUser.Unlock()

	a.perms.Reset()
	if err := a.publish(MessageUserChanged); err != nil {
		a.logger.Warn("publish user change failed", "error", err)
	}
	a.emit(Event{Type: EventUserChange, User: a.User()})
	return nil
}

// UpdateAccessToken stores a token obtained outside the login flow, for
// example after an out-of-band refresh. Storing nil logs the session out
// of every context sharing the backend.
func (a *App) UpdateAccessToken(tok *dto.AccessToken) error {
	return a.tokens.Store(tok)
}
