package resilience

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClient wraps an http.Client with retry, timeout and circuit-breaker logic.
// Only idempotent methods are retried; other requests get exactly one attempt.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	Target      string
	Logger      *zerolog.Logger
}

// Retryable reports whether requests with the given method may be replayed.
func Retryable(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Do executes the request applying retry semantics. When every attempt ends
// in a 5xx response the last response is returned so callers can read the
// upstream error body. ErrOpenCircuit is returned while the breaker is open.
// Other 4xx answers count as healthy for the breaker, 429 counts against it and
// is returned without a retry.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := cl.MaxAttempts
	if maxAttempts <= 0 || !Retryable(req.Method) {
		maxAttempts = 1
	}
	baseBackoff := cl.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			return nil, ErrOpenCircuit
		}
		resp, err := cl.doOnce(ctx, cloneRequest(ctx, req, body))
		if err != nil && ctx.Err() != nil {
			// the caller gave up; that says nothing about the dependency
			breaker.Release()
			return nil, err
		}
		if err == nil && resp.StatusCode < 500 {
			breaker.Report(ctx, resp.StatusCode != http.StatusTooManyRequests)
			return resp, nil
		}
		breaker.Report(ctx, false)
		if RetryAttempts != nil {
			RetryAttempts.WithLabelValues(cl.target()).Inc()
		}
		if err == nil {
			if attempt == maxAttempts {
				return resp, nil
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = errors.New(resp.Status)
		} else {
			lastErr = err
		}
		if attempt == maxAttempts {
			break
		}
		if cl.Logger != nil {
			cl.Logger.Warn().Err(lastErr).Str("target", cl.target()).Int("attempt", attempt).Msg("outbound request failed, retrying")
		}
		timer := time.NewTimer(Backoff(baseBackoff, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (cl HTTPClient) target() string {
	if cl.Target == "" {
		return "default"
	}
	return cl.Target
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	// the deadline must outlive Do so the caller can still read the body
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	return data, nil
}

func cloneRequest(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		clone.ContentLength = int64(len(body))
	}
	return clone
}
