package baasic

import (
	"context"

	"github.com/baasic/baasic-go/client/apiclient"
	"github.com/baasic/baasic-go/dto"
)

// Request runs one call through the instance pipeline.
func (a *App) Request(ctx context.Context, rc *apiclient.RequestConfig) (dto.Response, error) {
	return a.api.Request(ctx, rc)
}

func (a *App) Get(ctx context.Context, url string) (dto.Response, error) {
	return a.api.Get(ctx, url)
}

func (a *App) Post(ctx context.Context, url string, payload map[string]interface{}) (dto.Response, error) {
	return a.api.Post(ctx, url, payload)
}

func (a *App) Put(ctx context.Context, url string, payload map[string]interface{}) (dto.Response, error) {
	return a.api.Put(ctx, url, payload)
}

func (a *App) Patch(ctx context.Context, url string, payload map[string]interface{}) (dto.Response, error) {
	return a.api.Patch(ctx, url, payload)
}

func (a *App) Delete(ctx context.Context, url string) (dto.Response, error) {
	return a.api.Delete(ctx, url)
}
