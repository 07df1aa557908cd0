package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MatchResult is the outcome of evaluating one source product against the
// target marketplace. It is the unit persisted and, when profitable,
// forwarded to notification.
type MatchResult struct {
	ID              string          `json:"id"`
	Product         SourceProduct   `json:"product"`
	Listings        []Listing       `json:"listings"` // Chosen candidates, price-ascending as returned by the site
	PotentialProfit decimal.Decimal `json:"potential_profit"`
	Profitable      bool            `json:"profitable"`
	EvaluatedAt     time.Time       `json:"evaluated_at"`
}

// Basis returns the listing used as the profit basis: the lowest-priced
// chosen listing, ties broken by first-seen order. ok is false when no
// listings were chosen.
func (r *MatchResult) Basis() (Listing, bool) {
	if len(r.Listings) == 0 {
		return Listing{}, false
	}
	basis := r.Listings[0]
	for _, l := range r.Listings[1:] {
		if l.Price.LessThan(basis.Price) {
			basis = l
		}
	}
	return basis, true
}

// Validate checks that all match result fields are valid.
func (r *MatchResult) Validate() error {
	if r.ID == "" {
		return errors.New("result ID must not be empty")
	}
	if err := r.Product.Validate(); err != nil {
		return err
	}
	if r.Profitable && len(r.Listings) == 0 {
		return errors.New("profitable result must have at least one listing")
	}
	if len(r.Listings) == 0 && !r.PotentialProfit.IsZero() {
		return errors.New("result with no listings must have zero potential profit")
	}
	tier := ""
	for i := range r.Listings {
		if err := r.Listings[i].Validate(); err != nil {
			return err
		}
		// Tiers are mutually exclusive within one result.
		if tier == "" {
			tier = string(r.Listings[i].Tier)
		} else if tier != string(r.Listings[i].Tier) {
			return errors.New("result must not mix best and least match tiers")
		}
	}
	if r.EvaluatedAt.After(time.Now()) {
		return errors.New("evaluated at must not be in the future")
	}
	return nil
}
