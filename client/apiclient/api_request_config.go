package apiclient

import (
	"fmt"
	"net/http"

	"github.com/baasic/baasic-go/dto"
	"github.com/baasic/baasic-go/utils"
)

// RequestConfig is immutable input (safe to reuse across calls). The
// pipeline derives a fresh per-call dto.Request from it, so middlewares
// never mutate the config itself.
type RequestConfig struct {
	Method string `json:"method" yaml:"method"`
	URL    string `json:"url" yaml:"url"`
	Body   map[string]interface{} `json:"body,omitempty" yaml:"body,omitempty"`
	// BodyType application/json, application/x-www-form-urlencoded
	BodyType string      `json:"body_type,omitempty" yaml:"body_type,omitempty"`
	Headers  http.Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	// RawBody bypasses Body/BodyType serialization when set.
	RawBody []byte `json:"-" yaml:"-"`
	// ResponseObject, when non-nil, receives the decoded response body.
	ResponseObject any `json:"-" yaml:"-"`
}

func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		Method:   http.MethodGet,
		BodyType: "application/json",
		Headers:  http.Header{},
	}
}

func (c *RequestConfig) WithMethod(method string) *RequestConfig {
	c.Method = method
	return c
}
func (c *RequestConfig) WithURL(url string) *RequestConfig {
	c.URL = url
	return c
}
func (c *RequestConfig) WithBody(body map[string]interface{}) *RequestConfig {
	c.Body = body
	return c
}
func (c *RequestConfig) WithBodyType(bodyType string) *RequestConfig {
	c.BodyType = bodyType
	return c
}
func (c *RequestConfig) WithRawBody(raw []byte) *RequestConfig {
	c.RawBody = raw
	return c
}
func (c *RequestConfig) WithHeader(key, value string) *RequestConfig {
	if c.Headers == nil {
		c.Headers = http.Header{}
	}
	c.Headers.Set(key, value)
	return c
}
func (c *RequestConfig) WithHeaders(headers map[string]string) *RequestConfig {
	merged := utils.MapToHeader(headers)
	for k, vs := range c.Headers {
		if _, exists := merged[k]; !exists {
			merged[k] = vs
		}
	}
	c.Headers = merged
	return c
}
func (c *RequestConfig) WithResponseObject(object any) *RequestConfig {
	c.ResponseObject = object
	return c
}

// newRequest creates the per-call mutable descriptor, serializing the body
// exactly once. Raw bodies pass through untouched.
func (c *RequestConfig) newRequest() (*dto.Request, error) {
	req := &dto.Request{
		Method:  c.Method,
		URL:     c.URL,
		Headers: http.Header{},
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	for k, vs := range c.Headers {
		for _, v := range vs {
			req.Headers.Add(k, v)
		}
	}

	switch {
	case c.RawBody != nil:
		req.Body = c.RawBody
	case c.Body != nil:
		body, contentType, err := utils.PrepareBody(c.Body, c.BodyType)
		if err != nil {
			return nil, fmt.Errorf("prepare body: %w", err)
		}
		req.Body = body
		if req.Headers.Get("Content-Type") == "" && contentType != "" {
			req.Headers.Set("Content-Type", contentType+"; charset=UTF-8")
		}
	}
	return req, nil
}
