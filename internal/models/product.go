// Package models defines the core domain entities for the dealscout application.
// These models represent discounted source products, marketplace search listings,
// and the match results produced by the evaluation pipeline.
// All models include built-in validation to ensure data integrity throughout the application.
//
// Terminology (matching the marketplaces' own naming):
//   - Source product: a discounted product discovered on the source marketplace
//     (e.g. idealo). This is the unit we evaluate.
//   - Listing: a single search-result row on the target marketplace (e.g. eBay).
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// SourceProduct is a discounted product discovered by the upstream scraper.
// It is immutable once scraped; the pipeline consumes it read-only.
type SourceProduct struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ReferencePrice decimal.Decimal `json:"reference_price"` // Discounted price on the source marketplace
	Currency       string          `json:"currency"`
	Marketplace    string          `json:"marketplace"` // Source marketplace identifier, e.g. "idealo"
	SourceURL      string          `json:"source_url,omitempty"`
	DiscoveredAt   time.Time       `json:"discovered_at"`
}

// Validate checks that all source product fields are valid.
func (p *SourceProduct) Validate() error {
	if p.ID == "" {
		return errors.New("product ID must not be empty")
	}
	if p.Name == "" {
		return errors.New("product name must not be empty")
	}
	if p.ReferencePrice.Sign() <= 0 {
		return errors.New("reference price must be positive")
	}
	if p.Currency == "" {
		return errors.New("currency must not be empty")
	}
	if p.Marketplace == "" {
		return errors.New("marketplace must not be empty")
	}
	if p.DiscoveredAt.After(time.Now()) {
		return errors.New("discovered at must not be in the future")
	}
	return nil
}
