package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ynnoj/gatsby-source-printful/pkg/asset"
	"github.com/ynnoj/gatsby-source-printful/pkg/config"
	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/logger"
	"github.com/ynnoj/gatsby-source-printful/pkg/node"
	"github.com/ynnoj/gatsby-source-printful/pkg/pagination"
	"github.com/ynnoj/gatsby-source-printful/pkg/printful"
	"github.com/ynnoj/gatsby-source-printful/pkg/transform"
)

// API is the part of *printful.Client the syncer needs
type API interface {
	Get(ctx context.Context, path string) (*printful.Response, error)
	GetResult(ctx context.Context, path string, target interface{}) error
}

// runner is implemented by sinks that track writes per run
type runner interface {
	BeginRun()
}

type statser interface {
	Stats() node.Stats
}

// Syncer rebuilds the whole Printful node graph on every Run:
// list → expand → collect references → fetch catalog and static data → emit.
type Syncer struct {
	api         API
	sink        node.Sink
	fetcher     asset.Fetcher
	log         logger.Logger
	pageSize    int
	concurrency int
}

// Option configures a Syncer
type Option func(*Syncer)

// WithFetcher enables image downloads
func WithFetcher(f asset.Fetcher) Option {
	return func(s *Syncer) {
		s.fetcher = f
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		s.log = l
	}
}

func WithPageSize(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithConcurrency caps in-flight requests per stage
func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewSyncer(api API, sink node.Sink, options ...Option) *Syncer {
	s := &Syncer{
		api:         api,
		sink:        sink,
		fetcher:     asset.NopFetcher{},
		log:         logger.Discard(),
		pageSize:    config.DefaultPageSize,
		concurrency: config.DefaultConcurrency,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// catalog is everything fetched after expansion
type catalog struct {
	products  []printful.CatalogProductDetail
	variants  []printful.CatalogVariantDetail
	countries []printful.Record
	store     printful.Record
}

// run holds the state of one Run
type run struct {
	*Syncer
	resolver *asset.Resolver

	mu      sync.Mutex
	emitted map[string]string
	counts  map[string]int
	diags   []Diagnostic
}

// Run fetches everything before emitting anything. A failed fetch aborts the
// run; transform, asset and link problems are reported as diagnostics.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	if r, ok := s.sink.(runner); ok {
		r.BeginRun()
	}

	r := &run{
		Syncer:   s,
		resolver: asset.NewResolver(s.fetcher, s.log),
		emitted:  make(map[string]string),
		counts:   make(map[string]int),
	}

	details, err := r.expand(ctx)
	if err != nil {
		return nil, err
	}

	refs := CollectReferences(details)
	s.log.Log("%d products reference %d catalog products and %d catalog variants",
		len(details), len(refs.Products), len(refs.Variants))

	c, err := r.fetch(ctx, refs)
	if err != nil {
		return nil, err
	}

	if err := r.emitCatalog(ctx, c); err != nil {
		return nil, err
	}
	if err := r.each(ctx, len(details), func(ctx context.Context, i int) error {
		return r.emitProduct(ctx, details[i])
	}); err != nil {
		return nil, fatal("emit products", err)
	}
	if err := r.emitStatic(ctx, c); err != nil {
		return nil, err
	}

	report := r.report()
	report.Duration = time.Since(start)
	s.log.Log("emitted %d nodes with %d diagnostics in %s",
		report.Total(), len(report.Diagnostics), report.Duration.Round(time.Millisecond))
	return report, nil
}

// expand lists sync products and fetches each one's detail
func (r *run) expand(ctx context.Context) ([]printful.SyncProductDetail, error) {
	items, err := pagination.Collect(ctx, r.api, printful.SyncProductsPath, r.pageSize)
	if err != nil {
		return nil, fatal("list products", err)
	}
	r.log.Log("listed %d products", len(items))

	details := make([]printful.SyncProductDetail, len(items))
	err = r.each(ctx, len(items), func(ctx context.Context, i int) error {
		id := items[i].ID("id")
		if id == "" {
			r.diagnose(KindTransform, node.TypeProduct, "", fmt.Errorf("listing entry %d has no id", i))
			return nil
		}
		if err := r.api.GetResult(ctx, printful.SyncProductPath(id), &details[i]); err != nil {
			return err
		}
		if details[i].SyncProduct == nil {
			r.diagnose(KindTransform, node.TypeProduct, id, fmt.Errorf("detail response has no sync_product"))
		}
		return nil
	})
	if err != nil {
		return nil, fatal("expand products", err)
	}

	out := details[:0]
	for _, d := range details {
		if d.SyncProduct != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// fetch loads catalog detail for every referenced id alongside countries and
// the store profile
func (r *run) fetch(ctx context.Context, refs References) (*catalog, error) {
	c := &catalog{
		products: make([]printful.CatalogProductDetail, len(refs.Products)),
		variants: make([]printful.CatalogVariantDetail, len(refs.Variants)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	g.Go(func() error {
		return r.api.GetResult(gctx, printful.CountriesPath, &c.countries)
	})
	g.Go(func() error {
		return r.api.GetResult(gctx, printful.StorePath, &c.store)
	})
	for i, id := range refs.Products {
		i, id := i, id
		g.Go(func() error {
			return r.api.GetResult(gctx, printful.CatalogProductPath(id), &c.products[i])
		})
	}
	for i, id := range refs.Variants {
		i, id := i, id
		g.Go(func() error {
			return r.api.GetResult(gctx, printful.CatalogVariantPath(id), &c.variants[i])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fatal("fetch catalog", err)
	}
	return c, nil
}

// emitCatalog emits catalog products before catalog variants so variant
// links can be checked
func (r *run) emitCatalog(ctx context.Context, c *catalog) error {
	err := r.each(ctx, len(c.products), func(ctx context.Context, i int) error {
		raw := c.products[i].Product
		n, err := transform.CatalogProduct(raw, transform.Refs{})
		if err != nil {
			r.diagnose(KindTransform, node.TypeCatalogProduct, raw.ID("id"), err)
			return nil
		}
		n.Link("productImage", r.image(ctx, transform.ImageURL(raw), n.ID))
		_, err = r.emit(ctx, n)
		return err
	})
	if err != nil {
		return fatal("emit catalog products", err)
	}

	err = r.each(ctx, len(c.variants), func(ctx context.Context, i int) error {
		raw := c.variants[i].Variant
		n, err := transform.CatalogVariant(raw, transform.Refs{})
		if err != nil {
			r.diagnose(KindTransform, node.TypeCatalogVariant, raw.ID("id"), err)
			return nil
		}
		n.Link("variantImage", r.image(ctx, transform.ImageURL(raw), n.ID))
		_, err = r.emit(ctx, n)
		return err
	})
	if err != nil {
		return fatal("emit catalog variants", err)
	}
	return nil
}

// emitProduct emits a product's variants, then the product listing the
// variants that made it
func (r *run) emitProduct(ctx context.Context, d printful.SyncProductDetail) error {
	raw := d.SyncProduct
	product, err := transform.Product(raw, transform.Refs{})
	parent := ""
	if err != nil {
		r.diagnose(KindTransform, node.TypeProduct, raw.ID("id"), err)
	} else {
		parent = product.ID
	}

	variantIDs := []string{}
	for _, v := range d.SyncVariants {
		n, err := transform.Variant(v, transform.Refs{Parent: parent})
		if err != nil {
			r.diagnose(KindTransform, node.TypeVariant, v.ID("id"), err)
			continue
		}
		n.Link("variantImage", r.image(ctx, transform.PreviewURL(v), n.ID))

		ok, err := r.emit(ctx, n, parent)
		if err != nil {
			return err
		}
		if ok {
			variantIDs = append(variantIDs, n.ID)
		}
	}

	if product == nil {
		return nil
	}
	product.LinkList("variants", variantIDs)
	product.Link("productImage", r.image(ctx, transform.ThumbnailURL(raw), product.ID))
	_, err = r.emit(ctx, product)
	return err
}

func (r *run) emitStatic(ctx context.Context, c *catalog) error {
	for _, raw := range c.countries {
		n, err := transform.Country(raw)
		if err != nil {
			r.diagnose(KindTransform, node.TypeCountry, raw.String("code"), err)
			continue
		}
		if _, err := r.emit(ctx, n); err != nil {
			return fatal("emit countries", err)
		}
	}

	if c.store == nil {
		return nil
	}
	n, err := transform.Store(c.store)
	if err != nil {
		r.diagnose(KindTransform, node.TypeStore, c.store.ID("id"), err)
		return nil
	}
	if _, err := r.emit(ctx, n); err != nil {
		return fatal("emit store", err)
	}
	return nil
}

// emit drops unresolved links and hands n to the sink. deferred lists ids
// that are emitted later in the run. A duplicate id is a diagnostic; any
// other sink error is fatal.
func (r *run) emit(ctx context.Context, n *node.Node, deferred ...string) (bool, error) {
	r.prune(n, deferred)

	if err := r.sink.CreateNode(ctx, n); err != nil {
		if errors.Is(err, errors.ErrDuplicateNode) {
			r.diagnose(KindDuplicate, n.Type, n.ID, err)
			return false, nil
		}
		return false, err
	}

	r.track(n.ID, n.Type)
	return true, nil
}

func (r *run) prune(n *node.Node, deferred []string) {
	resolvable := func(id string) bool {
		for _, d := range deferred {
			if d != "" && d == id {
				return true
			}
		}
		return r.known(id)
	}

	for name, id := range n.Links {
		if !resolvable(id) {
			n.Link(name, "")
			r.diagnose(KindLink, n.Type, n.ID, fmt.Errorf("%s references %s which was not emitted", name, id))
		}
	}
	for name, ids := range n.ListLinks {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if resolvable(id) {
				kept = append(kept, id)
				continue
			}
			r.diagnose(KindLink, n.Type, n.ID, fmt.Errorf("%s references %s which was not emitted", name, id))
		}
		n.LinkList(name, kept)
	}
}

// image resolves an asset and tracks the image node it registered
func (r *run) image(ctx context.Context, url, ownerID string) string {
	id := r.resolver.Resolve(ctx, url, ownerID)
	if id != "" {
		r.track(id, node.TypeImage)
	}
	return id
}

func (r *run) track(id, typ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted[id] = typ
	r.counts[typ]++
}

func (r *run) known(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.emitted[id]
	return ok
}

func (r *run) diagnose(kind, nodeType, id string, err error) {
	d := Diagnostic{Kind: kind, NodeType: nodeType, RecordID: id, Err: err}
	r.log.Log("%s", d)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// each runs fn for 0..n-1 with at most concurrency calls in flight. The first
// error cancels the rest.
func (r *run) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

func (r *run) report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &Report{
		Counts:      make(map[string]int, len(r.counts)),
		Diagnostics: append([]Diagnostic(nil), r.diags...),
	}
	for typ, c := range r.counts {
		report.Counts[typ] = c
	}
	for _, f := range r.resolver.Failures() {
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Kind:     KindAsset,
			NodeType: r.emitted[f.OwnerID],
			RecordID: f.OwnerID,
			Err:      f.Err,
		})
	}
	if st, ok := r.sink.(statser); ok {
		report.Stats = st.Stats()
	}
	sortDiagnostics(report.Diagnostics)
	return report
}

// fatal names the stage and adds a hint for rejected credentials
func fatal(stage string, err error) error {
	if errors.Is(err, errors.ErrAuthentication) {
		return fmt.Errorf("printful: %s: API key rejected, check source.api_key: %w", stage, err)
	}
	return fmt.Errorf("printful: %s: %w", stage, err)
}
