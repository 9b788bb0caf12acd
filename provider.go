package baasic

import (
	"sync"

	"github.com/baasic/baasic-go/config"
)

var (
	muApps sync.Mutex
	apps   = make(map[string]*App)
)

// Provide returns the process-wide App for the configuration's api key,
// creating it on first use. Distinct api keys get distinct instances;
// callers needing several instances for one key construct them with New
// directly.
func Provide(cfg *config.ClientConfig, opts ...Option) (*App, error) {
	muApps.Lock()
	defer muApps.Unlock()

	if app, ok := apps[cfg.APIKey]; ok {
		return app, nil
	}

	app, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	apps[cfg.APIKey] = app
	return app, nil
}

// Release closes the registered App for apiKey and forgets it; the next
// Provide call for that key builds a fresh instance.
func Release(apiKey string) {
	muApps.Lock()
	defer muApps.Unlock()

	if app, ok := apps[apiKey]; ok {
		app.Close()
		delete(apps, apiKey)
	}
}
