package baasic

import (
	"time"
)

// State is a point-in-time snapshot of one instance's session, for status
// surfaces and diagnostics.
type State struct {
	APIKey          string
	BaseURL         string
	IsAuthenticated bool
	TokenExpiresAt  time.Time
	Sliding         bool
	User            map[string]any
}

func (a *App) State() *State {
	state := &State{
		APIKey:          a.cfg.APIKey,
		BaseURL:         a.cfg.BaseURL(),
		IsAuthenticated: a.IsAuthenticated(),
		User:            a.User(),
	}

	if tok := a.tokens.Get(); tok != nil {
		state.TokenExpiresAt = tok.ExpiresAt()
		state.Sliding = tok.Sliding()
	}
	return state
}
