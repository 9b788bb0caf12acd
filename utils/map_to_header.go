package utils

import "net/http"

// MapToHeader converts a plain string map into an http.Header with
// canonicalized keys.
func MapToHeader(m map[string]string) http.Header {
	h := make(http.Header)
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
