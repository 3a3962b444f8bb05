package pagination

import (
	"context"
	"fmt"
	"strings"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/printful"
)

// PageFetcher fetches one listing page. *printful.Client satisfies it.
type PageFetcher interface {
	Get(ctx context.Context, path string) (*printful.Response, error)
}

// Pager drives one pagination strategy.
type Pager interface {
	// Next returns the query for the next page, or false when done.
	Next() (string, bool)
	// Update records how many items the last page held and the reported total, if any.
	Update(received int, total *int)
}

// OffsetPager for limit/offset APIs. It stops on a short page, on an empty
// page, or once the reported total has been received.
type OffsetPager struct {
	OffsetParam string
	LimitParam  string

	size     int
	offset   int
	received int
	done     bool
}

// NewOffsetPager builds an OffsetPager starting at offset 0.
func NewOffsetPager(offsetParam, limitParam string, pageSize int) *OffsetPager {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &OffsetPager{
		OffsetParam: offsetParam,
		LimitParam:  limitParam,
		size:        pageSize,
	}
}

// Next returns "limit=N&offset=M" for the next page
func (p *OffsetPager) Next() (string, bool) {
	if p.done {
		return "", false
	}
	return fmt.Sprintf("%s=%d&%s=%d", p.LimitParam, p.size, p.OffsetParam, p.offset), true
}

// Update bumps the offset and decides whether another page is needed
func (p *OffsetPager) Update(received int, total *int) {
	p.received += received
	p.offset += p.size

	switch {
	case received == 0:
		p.done = true
	case received < p.size:
		p.done = true
	case total != nil && p.received >= *total:
		p.done = true
	}
}

// Received is the running item count
func (p *OffsetPager) Received() int {
	return p.received
}

// Collect exhausts a paged listing endpoint into one ordered slice.
// Pages that repeat only already seen ids end the listing with a
// PaginationError, since the API is then ignoring the offset.
func Collect(ctx context.Context, fetcher PageFetcher, path string, pageSize int) ([]printful.Record, error) {
	pager := NewOffsetPager("offset", "limit", pageSize)
	seen := make(map[string]struct{})

	var all []printful.Record
	for {
		query, ok := pager.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset := pager.offset
		resp, err := fetcher.Get(ctx, withQuery(path, query))
		if err != nil {
			return nil, err
		}

		var page []printful.Record
		if len(resp.Result) == 0 || string(resp.Result) == "null" {
			return nil, &errors.PaginationError{Path: path, Offset: offset, Err: fmt.Errorf("missing result array")}
		}
		if err := printful.Decode(resp.Result, &page); err != nil {
			return nil, &errors.PaginationError{Path: path, Offset: offset, Err: fmt.Errorf("result is not an array of objects: %w", err)}
		}

		fresh := 0
		for _, rec := range page {
			id := rec.ID("id")
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			all = append(all, rec)
			fresh++
		}
		if len(page) > 0 && fresh == 0 {
			return nil, &errors.PaginationError{Path: path, Offset: offset, Err: fmt.Errorf("page repeated already listed items")}
		}

		var total *int
		if resp.Paging != nil {
			total = resp.Paging.Total
		}
		pager.Update(len(page), total)
	}

	return all, nil
}

func withQuery(path, query string) string {
	if strings.Contains(path, "?") {
		return path + "&" + query
	}
	return path + "?" + query
}
