package apiclient

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/baasic/baasic-go/dto"
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-Id"

// StaticHeaderMiddleware injects static headers into every request.
// Explicitly set headers win over static ones.
func StaticHeaderMiddleware(headers map[string]string) Middleware {
	return func(ctx context.Context, req *dto.Request) error {
		for k, v := range headers {
			if req.Header(k) == "" {
				req.SetHeader(k, v)
			}
		}
		return nil
	}
}

// LoggingMiddleware logs every outgoing request at debug level.
func LoggingMiddleware(logger hclog.Logger) Middleware {
	return func(ctx context.Context, req *dto.Request) error {
		logger.Debug("request", "method", req.Method, "url", req.URL)
		return nil
	}
}

// RequestIDMiddleware stamps each call with a lexicographically sortable
// ULID unless the caller already set one.
func RequestIDMiddleware() Middleware {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)

	return func(ctx context.Context, req *dto.Request) error {
		if req.Header(RequestIDHeader) != "" {
			return nil
		}
		mu.Lock()
		id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy)
		mu.Unlock()
		req.SetHeader(RequestIDHeader, id.String())
		return nil
	}
}

// RateLimitMiddleware blocks until the limiter grants a slot, bounding the
// request rate a client puts on the platform. The wait respects ctx.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, req *dto.Request) error {
		return limiter.Wait(ctx)
	}
}
