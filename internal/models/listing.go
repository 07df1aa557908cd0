package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Tier tags a listing with the relevance tier the target marketplace assigned
// to it. Carrying the tag on every listing (instead of keeping two untyped
// lists) prevents downstream code from accidentally merging tiers.
type Tier string

const (
	// TierBest marks a listing the marketplace's own relevance ranking
	// flagged as highly relevant to the query.
	TierBest Tier = "best"
	// TierLeast marks a general search result with no relevance flag,
	// used only when no best matches exist.
	TierLeast Tier = "least"
)

// RawResult is one unparsed search-result row as returned by the page
// fetcher. Price is still marketplace-formatted text at this point.
type RawResult struct {
	Title     string
	Subtitle  string
	PriceText string
	Link      string
	ImageLink string
	BestMatch bool
}

// Listing represents one parsed search-result row on the target marketplace.
// Listings are ephemeral: created per evaluation run, only the chosen subset
// survives into a MatchResult.
type Listing struct {
	Title      string          `json:"title"`
	Subtitle   string          `json:"subtitle,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Link       string          `json:"link"`
	ImageLink  string          `json:"image_link,omitempty"`
	Tier       Tier            `json:"tier"`
	MatchScore float64         `json:"match_score,omitempty"` // Optional; 0 when no scorer is configured
	ScrapedAt  time.Time       `json:"scraped_at"`
}

// Validate checks that all listing fields are valid.
func (l *Listing) Validate() error {
	if l.Title == "" {
		return errors.New("listing title must not be empty")
	}
	if l.Price.Sign() <= 0 {
		return errors.New("listing price must be positive")
	}
	if l.Link == "" {
		return errors.New("listing link must not be empty")
	}
	if l.Tier != TierBest && l.Tier != TierLeast {
		return errors.New("listing tier must be 'best' or 'least'")
	}
	return nil
}

// FilterState is the mutable control state threaded through one refinement
// run. One instance per evaluation; discarded at run end.
type FilterState struct {
	FilteredByMinPrice bool
	MinPrice           decimal.Decimal
}
