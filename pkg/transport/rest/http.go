package rest

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ynnoj/gatsby-source-printful/pkg/auth"
	"github.com/ynnoj/gatsby-source-printful/pkg/config"
)

// HTTPDoer is a minimal interface for HTTP clients
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client whose transport retries transient failures
// and paces requests to the configured rate. src.Timeout bounds each attempt,
// not the retry loop as a whole.
func NewHTTPClient(src config.Source) *http.Client {
	var base http.RoundTripper = http.DefaultTransport
	if src.RateLimit > 0 {
		limit := rate.Every(time.Minute / time.Duration(src.RateLimit))
		base = NewRateLimitTransport(base, rate.NewLimiter(limit, src.RateLimit))
	}

	retry := src.Retry
	transport := NewRetryTransport(base, &retry)
	transport.Timeout = src.Timeout
	return &http.Client{Transport: transport}
}

// NewAssetClient returns a plain client for image downloads. It neither
// retries nor paces: a failed download is reported, never repeated.
func NewAssetClient(src config.Source) *http.Client {
	return &http.Client{Timeout: src.Timeout}
}

// RequestHelper builds an authenticated GET-style request and sends it
func RequestHelper(
	ctx context.Context,
	doer HTTPDoer,
	method string,
	baseURL string,
	endpoint string,
	headers map[string]string,
	authHandler auth.Handler,
) (*http.Response, error) {
	url := baseURL
	if endpoint != "" {
		url = baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if authHandler != nil {
		if err := authHandler.ApplyAuth(req); err != nil {
			return nil, err
		}
	}

	return doer.Do(req)
}
