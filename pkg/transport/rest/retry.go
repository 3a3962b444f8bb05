package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/ynnoj/gatsby-source-printful/pkg/config"
)

// maxBackoff caps a single wait between attempts
const maxBackoff = 30 * time.Second

// RetryTransport retries idempotent requests on transient network errors and
// on the configured status codes. A response that is not retried is returned
// as is, so the caller still sees its status and body.
type RetryTransport struct {
	Base http.RoundTripper
	Cfg  *config.RetryConfig

	// Timeout bounds each attempt until its body is closed. Backoff sleeps
	// are not counted. Zero means no limit.
	Timeout time.Duration
}

// NewRetryTransport creates a new retry transport
func NewRetryTransport(base http.RoundTripper, cfg *config.RetryConfig) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		Base: base,
		Cfg:  cfg,
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Cfg == nil || t.Cfg.MaxAttempts <= 1 {
		return t.attempt(req)
	}

	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		return t.attempt(req)
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt < t.Cfg.MaxAttempts; attempt++ {
		resp, err := t.attempt(req)

		if err != nil {
			if req.Context().Err() != nil || !retryableError(err) {
				return nil, err
			}
			lastErr = err
		} else {
			if !t.retryableStatus(resp.StatusCode) {
				return resp, nil
			}
			lastResp = resp
		}

		if attempt == t.Cfg.MaxAttempts-1 {
			break
		}

		delay := t.backoff(attempt)
		if lastResp != nil {
			if after, ok := retryAfter(lastResp); ok && after > delay {
				delay = after
			}
		}

		// drain so the connection can be reused
		if lastResp != nil {
			io.Copy(io.Discard, lastResp.Body)
			lastResp.Body.Close()
			lastResp = nil
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("retry transport failed after %d attempts: %w", t.Cfg.MaxAttempts, lastErr)
}

// attempt sends one copy of req under its own deadline
func (t *RetryTransport) attempt(req *http.Request) (*http.Response, error) {
	if t.Timeout <= 0 {
		return t.Base.RoundTrip(req.Clone(req.Context()))
	}

	ctx, cancel := context.WithTimeout(req.Context(), t.Timeout)
	resp, err := t.Base.RoundTrip(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases an attempt's deadline once the body is closed
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (t *RetryTransport) retryableStatus(code int) bool {
	for _, v := range t.Cfg.RetryableStatuses {
		if v == code {
			return true
		}
	}
	return false
}

// backoff computes full jitter exponential backoff
func (t *RetryTransport) backoff(attempt int) time.Duration {
	base := time.Duration(t.Cfg.InitialBackoff * float64(time.Second))

	maxDelay := time.Duration(float64(base) * math.Pow(t.Cfg.BackoffMultiplier, float64(attempt)))
	if maxDelay > maxBackoff {
		maxDelay = maxBackoff
	}

	return time.Duration(rand.Float64() * float64(maxDelay))
}

func retryableError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// retryAfter reads a Retry-After header given in seconds
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d, true
}
