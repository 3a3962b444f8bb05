package asset

import (
	"context"
	"sync"

	"github.com/ynnoj/gatsby-source-printful/pkg/logger"
)

// Failure records one download that did not produce an asset
type Failure struct {
	URL     string
	OwnerID string
	Err     error
}

// Resolver isolates asset failures: a failed download is logged, recorded
// and resolved to "". It never retries.
type Resolver struct {
	fetcher Fetcher
	log     logger.Logger

	mu       sync.Mutex
	failures []Failure
}

func NewResolver(fetcher Fetcher, log logger.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, log: log.WithPrefix("[assets]")}
}

// Resolve returns the asset id for rawURL, or "" when the URL is empty,
// downloads are disabled or the fetch failed.
func (r *Resolver) Resolve(ctx context.Context, rawURL, ownerID string) string {
	if rawURL == "" {
		return ""
	}

	a, err := r.fetcher.Fetch(ctx, rawURL, ownerID)
	if err != nil {
		r.log.Log("failed to fetch %s for %s: %v", rawURL, ownerID, err)
		r.mu.Lock()
		r.failures = append(r.failures, Failure{URL: rawURL, OwnerID: ownerID, Err: err})
		r.mu.Unlock()
		return ""
	}
	if a == nil {
		return ""
	}
	return a.ID
}

// Failures returns the failures recorded so far
func (r *Resolver) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure(nil), r.failures...)
}
