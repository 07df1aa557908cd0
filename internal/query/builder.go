// Package query builds target-marketplace search URLs for a source product.
// Building is pure: no network access, and identical inputs always produce
// byte-identical URLs.
package query

import (
	"net/url"

	"github.com/autodropshipper/dealscout/internal/models"
)

// Params configures the marketplace search URL format. Defaults match
// eBay.de's search endpoint.
type Params struct {
	BaseURL       string            // Search endpoint, e.g. "https://www.ebay.de/sch/i.html"
	KeywordParam  string            // Query parameter carrying the product name
	MinPriceParam string            // Query parameter carrying the minimum price filter
	Fixed         map[string]string // Static parameters appended to every search
}

// DefaultParams returns the eBay.de search URL format: buy-it-now only,
// domestic sellers, sorted by price plus shipping ascending.
func DefaultParams() Params {
	return Params{
		BaseURL:       "https://www.ebay.de/sch/i.html",
		KeywordParam:  "_nkw",
		MinPriceParam: "_udlo",
		Fixed: map[string]string{
			"_from":      "R40",
			"_sacat":     "0",
			"LH_PrefLoc": "6",
			"LH_BIN":     "1",
			"_sop":       "15",
		},
	}
}

// Builder constructs search URLs. The zero value is not usable; create one
// with New.
type Builder struct {
	params Params
}

// New creates a Builder. Missing fields in params fall back to DefaultParams.
func New(params Params) *Builder {
	def := DefaultParams()
	if params.BaseURL == "" {
		params.BaseURL = def.BaseURL
	}
	if params.KeywordParam == "" {
		params.KeywordParam = def.KeywordParam
	}
	if params.MinPriceParam == "" {
		params.MinPriceParam = def.MinPriceParam
	}
	if params.Fixed == nil {
		params.Fixed = def.Fixed
	}
	return &Builder{params: params}
}

// BuildURL returns the search URL for the product. When the filter state has
// the minimum-price filter engaged, the URL additionally encodes the filter
// threshold so listings that cannot be profitable are excluded server-side.
func (b *Builder) BuildURL(product models.SourceProduct, state models.FilterState) string {
	values := url.Values{}
	values.Set(b.params.KeywordParam, product.Name)
	for k, v := range b.params.Fixed {
		values.Set(k, v)
	}
	if state.FilteredByMinPrice {
		values.Set(b.params.MinPriceParam, state.MinPrice.StringFixed(2))
	}

	// url.Values.Encode sorts keys, so identical inputs always yield
	// byte-identical URLs.
	return b.params.BaseURL + "?" + values.Encode()
}
