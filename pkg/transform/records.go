package transform

import (
	"fmt"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/node"
	"github.com/ynnoj/gatsby-source-printful/pkg/printful"
)

// CountryIDPrefix is prepended to the ISO code to form a country node id
const CountryIDPrefix = "country-"

// Refs carries the ids a record links to that are not in its own payload
type Refs struct {
	Parent   string
	Image    string
	Variants []string
}

// fieldRule runs a registered Transformer over one raw field
type fieldRule struct {
	Source    string
	Target    string
	Transform string
	Optional  bool
}

var (
	productRules = []fieldRule{
		{Source: "name", Target: "slug", Transform: "slug"},
	}
	variantRules = []fieldRule{
		{Source: "name", Target: "slug", Transform: "slug"},
		{Source: "retail_price", Target: "retail_price", Transform: "price", Optional: true},
	}
	catalogVariantRules = []fieldRule{
		{Source: "product_id", Target: "product_id", Transform: "id"},
		{Source: "price", Target: "price", Transform: "price", Optional: true},
	}
)

// Product maps a sync product to a PrintfulProduct node
func Product(raw printful.Record, refs Refs) (*node.Node, error) {
	id, err := required(raw, node.TypeProduct, "id")
	if err != nil {
		return nil, err
	}
	if _, err := required(raw, node.TypeProduct, "name"); err != nil {
		return nil, err
	}

	n, err := build(raw, raw, node.TypeProduct, id, productRules, "variants", "synced")
	if err != nil {
		return nil, err
	}
	n.LinkList("variants", refs.Variants)
	n.Link("productImage", refs.Image)
	return n, nil
}

// Variant maps a sync variant to a PrintfulVariant node. Catalog links come
// from the payload; the caller drops any that do not resolve.
func Variant(raw printful.Record, refs Refs) (*node.Node, error) {
	id, err := required(raw, node.TypeVariant, "id")
	if err != nil {
		return nil, err
	}
	if _, err := required(raw, node.TypeVariant, "name"); err != nil {
		return nil, err
	}

	n, err := build(raw, raw, node.TypeVariant, id, variantRules)
	if err != nil {
		return nil, err
	}
	n.Parent = refs.Parent
	n.Link("parentProduct", refs.Parent)
	n.Link("catalogProduct", CatalogProductID(raw))
	n.Link("catalogVariant", CatalogVariantID(raw))
	n.Link("variantImage", refs.Image)
	return n, nil
}

// CatalogProduct maps a catalog product to a PrintfulCatalogProduct node
func CatalogProduct(raw printful.Record, refs Refs) (*node.Node, error) {
	id, err := required(raw, node.TypeCatalogProduct, "id")
	if err != nil {
		return nil, err
	}
	if displayName(raw) == "" {
		return nil, missing(node.TypeCatalogProduct, id, "name")
	}

	n, err := build(raw, raw, node.TypeCatalogProduct, id, nil, "variant_count")
	if err != nil {
		return nil, err
	}
	if raw.String("name") == "" {
		n.Fields["name"] = displayName(raw)
	}
	n.Link("productImage", refs.Image)
	return n, nil
}

// CatalogVariant maps a catalog variant to a PrintfulCatalogVariant node
func CatalogVariant(raw printful.Record, refs Refs) (*node.Node, error) {
	id, err := required(raw, node.TypeCatalogVariant, "id")
	if err != nil {
		return nil, err
	}
	if _, err := required(raw, node.TypeCatalogVariant, "name"); err != nil {
		return nil, err
	}

	n, err := build(raw, raw, node.TypeCatalogVariant, id, catalogVariantRules)
	if err != nil {
		return nil, err
	}
	n.Link("catalogProduct", raw.ID("product_id"))
	n.Link("variantImage", refs.Image)
	return n, nil
}

// Country maps a country to a PrintfulCountry node with id country-<code>
func Country(raw printful.Record) (*node.Node, error) {
	code, err := required(raw, node.TypeCountry, "code")
	if err != nil {
		return nil, err
	}
	if _, err := required(raw, node.TypeCountry, "name"); err != nil {
		return nil, err
	}
	return build(raw, raw, node.TypeCountry, CountryIDPrefix+code, nil)
}

// Store maps the store profile to a PrintfulStore node. Payment card data is
// dropped before fingerprinting.
func Store(raw printful.Record) (*node.Node, error) {
	id, err := required(raw, node.TypeStore, "id")
	if err != nil {
		return nil, err
	}
	if _, err := required(raw, node.TypeStore, "name"); err != nil {
		return nil, err
	}

	public := raw.Clone()
	delete(public, "payment_card")
	return build(public, public, node.TypeStore, id, nil)
}

// CatalogProductID is the catalog product a sync variant is built on
func CatalogProductID(variant printful.Record) string {
	if p, ok := variant.Map("product"); ok {
		return p.ID("product_id")
	}
	return ""
}

// CatalogVariantID is the catalog variant (SKU) a sync variant is built on
func CatalogVariantID(variant printful.Record) string {
	if id := variant.ID("variant_id"); id != "" {
		return id
	}
	if p, ok := variant.Map("product"); ok {
		return p.ID("variant_id")
	}
	return ""
}

// PreviewURL returns the preview image of a sync variant, or "" when it has
// no file of type preview.
func PreviewURL(variant printful.Record) string {
	for _, f := range variant.Slice("files") {
		if f.String("type") == "preview" {
			return f.String("preview_url")
		}
	}
	return ""
}

// ThumbnailURL returns a sync product's thumbnail
func ThumbnailURL(product printful.Record) string {
	return product.String("thumbnail_url")
}

// ImageURL returns the image of a catalog product or variant
func ImageURL(catalog printful.Record) string {
	return catalog.String("image")
}

// build copies raw into a node, minus id and the stripped keys, fingerprints
// digestSource and applies rules.
func build(raw, digestSource printful.Record, typ, id string, rules []fieldRule, strip ...string) (*node.Node, error) {
	digest, err := node.Digest(digestSource)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrTransform, fmt.Sprintf("fingerprint %s %s", typ, id))
	}

	n := node.New(id, typ)
	n.Digest = digest
	for k, v := range raw {
		n.Fields[k] = v
	}
	delete(n.Fields, "id")
	for _, k := range strip {
		delete(n.Fields, k)
	}

	for _, rule := range rules {
		v, ok := raw[rule.Source]
		if !ok || v == nil {
			if rule.Optional {
				continue
			}
			return nil, missing(typ, id, rule.Source)
		}

		t, err := defaultRegistry.Get(rule.Transform)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrTransform, typ+" "+id)
		}
		out, err := t.Transform(v)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrTransform, fmt.Sprintf("%s %s field %q", typ, id, rule.Source))
		}
		n.Fields[rule.Target] = out
	}

	return n, nil
}

func required(raw printful.Record, typ, key string) (string, error) {
	v := raw.ID(key)
	if v == "" {
		return "", missing(typ, raw.ID("id"), key)
	}
	return v, nil
}

func missing(typ, id, key string) error {
	if id == "" {
		id = "(no id)"
	}
	return errors.WrapError(
		fmt.Errorf("missing mandatory field %q", key),
		errors.ErrTransform,
		fmt.Sprintf("%s %s", typ, id),
	)
}

func displayName(raw printful.Record) string {
	for _, key := range []string{"name", "title", "model"} {
		if s := raw.String(key); s != "" {
			return s
		}
	}
	return ""
}
