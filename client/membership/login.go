package membership

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/baasic/baasic-go/dto"
)

// LoginOptions tunes the token request; the zero value asks for a plain
// non-sliding session.
type LoginOptions struct {
	// Sliding requests a sliding-expiration session.
	Sliding bool
	// SlidingWindow is the requested window in seconds; only sent when
	// Sliding is set.
	SlidingWindow int64
}

func (o LoginOptions) values() []string {
	var opts []string
	if o.Sliding {
		opts = append(opts, "sliding")
		if o.SlidingWindow > 0 {
			opts = append(opts, fmt.Sprintf("slidingWindow:%d", o.SlidingWindow))
		}
	}
	return opts
}

// Login exchanges credentials for an access token and stores it. The
// returned token is the stored one, expiry already resolved.
func (s *Service) Login(ctx context.Context, username, password string, opts LoginOptions) (*dto.AccessToken, error) {
	params := map[string]any{}
	if vals := opts.values(); len(vals) > 0 {
		params["options"] = vals
	}

	rc, err := s.routes.Build("login", params)
	if err != nil {
		return nil, err
	}
	rc.WithBodyType("application/x-www-form-urlencoded").
		WithBody(map[string]interface{}{
			"grant_type": "password",
			"username":   username,
			"password":   password,
		})

	resp, err := s.api.Request(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var tok dto.AccessToken
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	if err := s.tokens.Store(&tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	s.logger.Debug("logged in", "username", username, "sliding", tok.Sliding())
	return s.tokens.Get(), nil
}

// LoginWithTokenSource stores a token minted elsewhere, typically an
// oauth2 flow run outside the SDK.
func (s *Service) LoginWithTokenSource(ctx context.Context, src oauth2.TokenSource) (*dto.AccessToken, error) {
	otok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token source: %w", err)
	}

	tok := dto.FromOAuth2(otok)
	if err := s.tokens.Store(tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return s.tokens.Get(), nil
}

// Logout tears down the server-side session and clears the stored token.
// The token is cleared even when the server call fails; a dead session on
// the server is preferable to a live token the caller believes is gone.
func (s *Service) Logout(ctx context.Context) error {
	rc, buildErr := s.routes.Build("login.delete", nil)
	if buildErr != nil {
		return buildErr
	}

	_, reqErr := s.api.Request(ctx, rc)
	if err := s.tokens.Store(nil); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	if reqErr != nil {
		return fmt.Errorf("logout: %w", reqErr)
	}
	return nil
}
