package printful

import "encoding/json"

// Response is the envelope every Printful endpoint answers with
type Response struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Paging *Paging         `json:"paging,omitempty"`
}

// Paging is present on listing endpoints
type Paging struct {
	Total  *int `json:"total"`
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
}

// SyncProductDetail is the result of GET /sync/products/{id}
type SyncProductDetail struct {
	SyncProduct  Record   `json:"sync_product"`
	SyncVariants []Record `json:"sync_variants"`
}

// CatalogProductDetail is the result of GET /products/{id}
type CatalogProductDetail struct {
	Product  Record   `json:"product"`
	Variants []Record `json:"variants"`
}

// CatalogVariantDetail is the result of GET /products/variant/{id}
type CatalogVariantDetail struct {
	Variant Record `json:"variant"`
	Product Record `json:"product"`
}
