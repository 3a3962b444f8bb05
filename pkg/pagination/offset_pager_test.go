package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/printful"
)

// fakeListing serves total items through the Printful envelope and logs every path
type fakeListing struct {
	total       int
	reportTotal bool
	ignoreOff   bool
	result      string // raw result override
	requestLog  []string
}

func (f *fakeListing) Get(_ context.Context, path string) (*printful.Response, error) {
	f.requestLog = append(f.requestLog, path)

	if f.result != "" {
		return &printful.Response{Code: 200, Result: json.RawMessage(f.result)}, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	offset, _ := strconv.Atoi(u.Query().Get("offset"))
	limit, _ := strconv.Atoi(u.Query().Get("limit"))
	if f.ignoreOff {
		offset = 0
	}

	end := offset + limit
	if end > f.total {
		end = f.total
	}

	items := []map[string]interface{}{}
	for i := offset; i < end; i++ {
		items = append(items, map[string]interface{}{"id": i + 1, "name": fmt.Sprintf("Product %d", i+1), "variants": 2})
	}
	raw, _ := json.Marshal(items)

	resp := &printful.Response{Code: 200, Result: raw, Paging: &printful.Paging{Offset: offset, Limit: limit}}
	if f.reportTotal {
		total := f.total
		resp.Paging.Total = &total
	}
	return resp, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func TestCollect_RequestCountMatchesTotal(t *testing.T) {
	for _, pageSize := range []int{10, 20, 100} {
		for _, total := range []int{1, 9, 10, 20, 47, 100, 101, 250} {
			t.Run(fmt.Sprintf("P=%d/T=%d", pageSize, total), func(t *testing.T) {
				f := &fakeListing{total: total, reportTotal: true}
				got, err := Collect(context.Background(), f, printful.SyncProductsPath, pageSize)
				if err != nil {
					t.Fatalf("Collect failed: %v", err)
				}
				if len(got) != total {
					t.Errorf("Expected %d items, got %d", total, len(got))
				}
				if want := ceilDiv(total, pageSize); len(f.requestLog) != want {
					t.Errorf("Expected %d requests, got %d: %v", want, len(f.requestLog), f.requestLog)
				}
			})
		}
	}
}

func TestCollect_RequestSequence(t *testing.T) {
	f := &fakeListing{total: 47, reportTotal: true}
	if _, err := Collect(context.Background(), f, printful.SyncProductsPath, 20); err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"/sync/products?limit=20&offset=0",
		"/sync/products?limit=20&offset=20",
		"/sync/products?limit=20&offset=40",
	}
	if len(f.requestLog) != len(expected) {
		t.Fatalf("Expected %d requests, got %v", len(expected), f.requestLog)
	}
	for i, want := range expected {
		if f.requestLog[i] != want {
			t.Errorf("Request %d: expected %s, got %s", i+1, want, f.requestLog[i])
		}
	}
}

func TestCollect_PreservesOrder(t *testing.T) {
	f := &fakeListing{total: 25, reportTotal: true}
	got, err := Collect(context.Background(), f, printful.SyncProductsPath, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range got {
		if want := strconv.Itoa(i + 1); rec.ID("id") != want {
			t.Fatalf("Item %d: expected id %s, got %s", i, want, rec.ID("id"))
		}
	}
}

func TestCollect_UnknownTotal(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		requests int
	}{
		{"short last page", 25, 10, 3},
		{"exact multiple needs empty page", 20, 10, 3},
		{"empty listing", 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeListing{total: tt.total}
			got, err := Collect(context.Background(), f, printful.SyncProductsPath, tt.pageSize)
			if err != nil {
				t.Fatalf("Collect failed: %v", err)
			}
			if len(got) != tt.total {
				t.Errorf("Expected %d items, got %d", tt.total, len(got))
			}
			if len(f.requestLog) != tt.requests {
				t.Errorf("Expected %d requests, got %d", tt.requests, len(f.requestLog))
			}
		})
	}
}

func TestCollect_MalformedEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{"null result", `null`},
		{"object result", `{"id":1}`},
		{"scalar items", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeListing{result: tt.result}
			_, err := Collect(context.Background(), f, printful.SyncProductsPath, 10)
			if !errors.Is(err, errors.ErrPagination) {
				t.Fatalf("Expected pagination error, got %v", err)
			}
			var pe *errors.PaginationError
			if !errors.As(err, &pe) || pe.Offset != 0 {
				t.Errorf("Expected PaginationError at offset 0, got %v", err)
			}
		})
	}
}

func TestCollect_OffsetIgnoredTerminates(t *testing.T) {
	f := &fakeListing{total: 30, ignoreOff: true}
	_, err := Collect(context.Background(), f, printful.SyncProductsPath, 10)
	if !errors.Is(err, errors.ErrPagination) {
		t.Fatalf("Expected pagination error, got %v", err)
	}
	if len(f.requestLog) != 2 {
		t.Errorf("Expected to stop after the repeated page, got %d requests", len(f.requestLog))
	}
}

func TestOffsetPager(t *testing.T) {
	p := NewOffsetPager("offset", "limit", 25)

	q, ok := p.Next()
	if !ok || q != "limit=25&offset=0" {
		t.Fatalf("initial: got %q, %v", q, ok)
	}

	total := 60
	p.Update(25, &total)
	q, ok = p.Next()
	if !ok || q != "limit=25&offset=25" {
		t.Fatalf("second: got %q, %v", q, ok)
	}

	p.Update(25, &total)
	p.Update(10, &total)
	if _, ok := p.Next(); ok {
		t.Error("Expected pager to be done after total reached")
	}
	if p.Received() != 60 {
		t.Errorf("Expected 60 received, got %d", p.Received())
	}
}
