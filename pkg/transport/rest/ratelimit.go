package rest

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitTransport waits on a token bucket before every round trip.
type RateLimitTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

// NewRateLimitTransport wraps base with limiter
func NewRateLimitTransport(base http.RoundTripper, limiter *rate.Limiter) *RateLimitTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitTransport{Base: base, Limiter: limiter}
}

func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.Base.RoundTrip(req)
}
