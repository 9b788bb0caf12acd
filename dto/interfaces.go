package dto

import (
	"context"
	"errors"
)

var (
	ErrNilRequestConfig = errors.New("nil RequestConfig provided")
	ErrRequestFailed    = errors.New("request failed")
)

// Transport performs a single HTTP exchange. Implementations must surface
// status code, headers, and body on error responses as regular Response
// values; a non-nil error is reserved for failures where no usable response
// exists (network errors, cancelled contexts).
type Transport interface {
	Send(ctx context.Context, req *Request) (Response, error)
}

// Backend is an origin-scoped key-value store shared by every execution
// context of the same application. Watch delivers change notifications for
// mutations performed through any handle on the same underlying store;
// the returned func unsubscribes.
//
// Writes are last-write-wins per key; no cross-key transactional guarantees
// are provided or required.
type Backend interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Watch() (<-chan Change, func())
}
