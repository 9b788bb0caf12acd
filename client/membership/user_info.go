package membership

import (
	"context"
	"encoding/json"
	"fmt"
)

// UserInfo fetches the authenticated user's profile. The shape is
// account-specific, so the payload stays a generic map.
func (s *Service) UserInfo(ctx context.Context) (map[string]any, error) {
	rc, err := s.routes.Build("user.info", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.Request(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("user info: %w", err)
	}

	var user map[string]any
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return user, nil
}
