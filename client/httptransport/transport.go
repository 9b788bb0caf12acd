// Package httptransport is the default dto.Transport, a tuned net/http
// client. Retry policy lives here rather than in the pipeline: the
// pipeline never retries, so any backoff behavior is opt-in per transport.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/baasic/baasic-go/config"
	"github.com/baasic/baasic-go/dto"
	"github.com/baasic/baasic-go/utils"
)

type Transport struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	delay      utils.RetryDelay
	logger     hclog.Logger
}

type Option func(*Transport)

// WithRetries enables retrying of transient network errors and 5xx
// responses. delay nil falls back to a one second constant delay.
func WithRetries(maxRetries int, delay utils.RetryDelay) Option {
	return func(t *Transport) {
		t.maxRetries = maxRetries
		t.delay = delay
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) { t.client = client }
}

func New(cfg *config.ClientConfig, opts ...Option) *Transport {
	t := &Transport{
		userAgent: cfg.UserAgent,
		logger:    hclog.NewNullLogger(),
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableKeepAlives:   false,
				Proxy:               http.ProxyFromEnvironment,
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send performs the exchange, retrying per configuration. HTTP error
// statuses below 500 are returned as regular responses; the pipeline
// classifies them.
func (t *Transport) Send(ctx context.Context, req *dto.Request) (dto.Response, error) {
	if t.maxRetries <= 0 {
		return t.sendOnce(ctx, req)
	}

	delay := t.delay
	if delay == nil {
		delay = utils.ConstantDelay{Period: 1}
	}

	var lastResp dto.Response
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			delay.Wait(req.Method+" "+req.URL, attempt)
		}

		resp, err := t.sendOnce(ctx, req)
		if err != nil {
			lastResp, lastErr = resp, err
			if utils.IsTemporaryErr(err) && ctx.Err() == nil && attempt < t.maxRetries {
				t.logger.Debug("retrying after transport error", "attempt", attempt, "error", err)
				continue
			}
			return resp, err
		}
		if resp.StatusCode >= 500 {
			lastResp = resp
			lastErr = fmt.Errorf("server error (%d)", resp.StatusCode)
			if attempt < t.maxRetries {
				t.logger.Debug("retrying after server error", "attempt", attempt, "status", resp.StatusCode)
				continue
			}
			// Exhausted retries: surface the final response without a
			// transport error so the pipeline sees the real status.
			return resp, nil
		}
		return resp, nil
	}
	return lastResp, fmt.Errorf("failed after %d attempts: %w", t.maxRetries+1, lastErr)
}

func (t *Transport) sendOnce(ctx context.Context, req *dto.Request) (dto.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return dto.Response{}, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if t.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	httpResp, reqErr := t.client.Do(httpReq)
	if httpResp != nil {
		defer func() {
			io.Copy(io.Discard, httpResp.Body) // drain fully for connection reuse
			httpResp.Body.Close()
		}()
	}
	if reqErr != nil {
		return dto.Response{}, fmt.Errorf("perform request: %w", reqErr)
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return dto.Response{}, fmt.Errorf("read body: %w", err)
	}

	return dto.Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header.Clone(),
		Body:       bodyBytes,
	}, nil
}
