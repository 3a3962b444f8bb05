package source

import (
	"github.com/ynnoj/gatsby-source-printful/pkg/printful"
	"github.com/ynnoj/gatsby-source-printful/pkg/transform"
)

// References holds the distinct catalog ids used by a set of sync variants,
// in first-seen order.
type References struct {
	Products []string
	Variants []string
}

// idSet is an insertion-ordered set of ids
type idSet struct {
	seen  map[string]struct{}
	order []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

// CollectReferences scans every variant of every expanded product once and
// returns the catalog product and catalog variant ids it refers to.
func CollectReferences(details []printful.SyncProductDetail) References {
	products, variants := newIDSet(), newIDSet()
	for _, d := range details {
		for _, v := range d.SyncVariants {
			products.add(transform.CatalogProductID(v))
			variants.add(transform.CatalogVariantID(v))
		}
	}
	return References{Products: products.order, Variants: variants.order}
}
