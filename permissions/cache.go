// Package permissions caches the access sections granted to the
// authenticated user. The cache is owned by its App instance and keyed by
// the application api key; invalidation is always explicit via Reset.
package permissions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/joy-dx/lockablemap"

	"github.com/baasic/baasic-go/client/apiclient"
)

// Entry is one granted permission as returned by the platform.
type Entry struct {
	Section string   `json:"section"`
	Actions []string `json:"actions"`
}

// Cache holds granted actions per section for a single application
// instance.
type Cache struct {
	apiKey string
	api    *apiclient.Client

	mu        sync.Mutex
	bySection lockablemap.LockableMap[string, []string]
	loaded    bool
}

func NewCache(apiKey string, api *apiclient.Client) *Cache {
	return &Cache{
		apiKey:    apiKey,
		api:       api,
		bySection: *lockablemap.NewLockableMap[string, []string](),
	}
}

// Load fetches the permission list for the current user and replaces the
// cached state.
func (c *Cache) Load(ctx context.Context, route string) error {
	resp, err := c.api.Get(ctx, route)
	if err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return fmt.Errorf("decode permissions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySection = *lockablemap.NewLockableMap[string, []string]()
	for _, entry := range entries {
		c.bySection.Set(entry.Section, entry.Actions)
	}
	c.loaded = true
	return nil
}

// HasPermission reports whether the cached grants include the given action
// on the given section. An unloaded or reset cache grants nothing.
func (c *Cache) HasPermission(section, action string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for cachedSection, actions := range c.bySection.GetAll() {
		if !strings.EqualFold(cachedSection, section) {
			continue
		}
		for _, a := range actions {
			if strings.EqualFold(a, action) {
				return true
			}
		}
	}
	return false
}

// Loaded reports whether Load has populated the cache since the last Reset.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Reset drops all cached grants. Called whenever the session user changes
// or the token is cleared.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySection = *lockablemap.NewLockableMap[string, []string]()
	c.loaded = false
}
