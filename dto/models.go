package dto

import (
	"net/http"
)

// Response is the envelope returned by every transport. Body is kept as raw
// bytes so the pipeline can post-process it (HAL unwrapping) before any
// caller-side decoding happens.
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
}

// IsError reports whether the response carries an HTTP error status.
// Transports surface error statuses as regular responses; classifying them
// is the pipeline's job.
func (r Response) IsError() bool {
	return r.StatusCode >= 400
}

// Change describes a single mutation observed on a storage backend.
// NewValue is empty when the key was removed.
type Change struct {
	Key      string
	NewValue string
}
