package dto

import (
	"net/http"
)

// Request is the per-call wire descriptor handed to a Transport. It is built
// fresh for every call; middlewares may mutate it freely without affecting
// the immutable request config it was derived from.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

func (r *Request) SetHeader(k, v string) {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}
	r.Headers.Set(k, v)
}

func (r *Request) Header(k string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(k)
}
