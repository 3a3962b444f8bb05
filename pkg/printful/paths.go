package printful

import "net/url"

const (
	SyncProductsPath = "/sync/products"
	CountriesPath    = "/countries"
	StorePath        = "/store"
)

func SyncProductPath(id string) string {
	return SyncProductsPath + "/" + url.PathEscape(id)
}

func CatalogProductPath(id string) string {
	return "/products/" + url.PathEscape(id)
}

func CatalogVariantPath(id string) string {
	return "/products/variant/" + url.PathEscape(id)
}
