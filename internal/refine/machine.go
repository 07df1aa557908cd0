// Package refine orchestrates repeated fetch/classify cycles against the
// target marketplace until a final candidate set is produced.
//
// The machine exists because the site's relevance ranking is untrustworthy at
// scale: a capped best-match tier may hide a cheaper, equally relevant
// listing, and re-querying with a price floor is the cheapest way to narrow a
// large result set without re-scraping every page client-side. The decision
// table after classification:
//
//   - best-match tier, capped: re-query once with the minimum-price filter,
//     then finalize on the next pass;
//   - least-match fallback (no best matches existed): same filter-once
//     policy, applied unconditionally on the first pass;
//   - best-match tier within the cap: finalize immediately, every candidate
//     was already considered.
//
// Refinement is bounded by an explicit counter in addition to the filter
// flag, so inconsistent tiering across calls can never loop the run. Total
// fetches per run are therefore at most 2.
package refine

import (
	"context"
	"fmt"

	"github.com/autodropshipper/dealscout/internal/classify"
	"github.com/autodropshipper/dealscout/internal/fetcher"
	"github.com/autodropshipper/dealscout/internal/logger"
	"github.com/autodropshipper/dealscout/internal/models"
	"github.com/autodropshipper/dealscout/internal/query"
)

// State identifies a phase of one refinement run.
type State int

const (
	StateInitial State = iota
	StateAwaitingResults
	StateEvaluatingTier
	StateRefiningWithMinPrice
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAwaitingResults:
		return "awaiting_results"
	case StateEvaluatingTier:
		return "evaluating_tier"
	case StateRefiningWithMinPrice:
		return "refining_with_min_price"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// maxRefinements bounds min-price re-queries per run. The filter flag alone
// would do, but the counter keeps the bound explicit even if the flag is
// ever reset by mistake.
const maxRefinements = 1

// Result is the outcome of a finalized run.
type Result struct {
	Selection classify.Selection
	Cycles    int  // Fetch/classify cycles performed (1 or 2)
	Refined   bool // Whether the min-price refinement ran
}

// Machine drives the refinement loop for one source product at a time. It
// holds no per-run state and is safe for concurrent use.
type Machine struct {
	builder    *query.Builder
	classifier *classify.Classifier
	fetcher    fetcher.Fetcher
}

// New creates a refinement Machine.
func New(builder *query.Builder, classifier *classify.Classifier, f fetcher.Fetcher) *Machine {
	return &Machine{builder: builder, classifier: classifier, fetcher: f}
}

// Run executes one evaluation run for the product and returns the final
// candidate selection. A fetch failure aborts the run immediately and is
// returned as a retryable error; no partial selection is ever produced.
// Cancellation is honored at every fetch boundary.
func (m *Machine) Run(ctx context.Context, product models.SourceProduct) (Result, error) {
	filter := models.FilterState{MinPrice: product.ReferencePrice}
	refinements := 0
	cycles := 0

	var (
		state     = StateInitial
		searchURL string
		listings  []models.Listing
		selection classify.Selection
	)

	for state != StateFinalized {
		switch state {
		case StateInitial:
			searchURL = m.builder.BuildURL(product, filter)
			state = StateAwaitingResults

		case StateAwaitingResults:
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			raws, err := m.fetcher.Fetch(ctx, searchURL)
			if err != nil {
				return Result{}, fmt.Errorf("refinement run for %q aborted: %w", product.Name, err)
			}
			cycles++
			listings = fetcher.ConvertResults(raws)
			logger.Debug("Cycle %d for %q: %d parsed listings (filtered: %v)",
				cycles, product.Name, len(listings), filter.FilteredByMinPrice)
			state = StateEvaluatingTier

		case StateEvaluatingTier:
			selection = m.classifier.Classify(listings)
			if m.shouldRefine(selection, filter, refinements) {
				state = StateRefiningWithMinPrice
			} else {
				state = StateFinalized
			}

		case StateRefiningWithMinPrice:
			filter.FilteredByMinPrice = true
			refinements++
			logger.Debug("Refining %q with min price %s", product.Name, filter.MinPrice.StringFixed(2))
			searchURL = m.builder.BuildURL(product, filter)
			state = StateAwaitingResults
		}
	}

	logger.Debug("Run for %q finalized: tier=%s listings=%d cycles=%d",
		product.Name, selection.Tier, len(selection.Listings), cycles)
	return Result{Selection: selection, Cycles: cycles, Refined: refinements > 0}, nil
}

// shouldRefine applies the decision table: refine once for a truncated best
// tier or a least-match fallback; never refine a best tier that fit within
// the cap, and never refine twice.
func (m *Machine) shouldRefine(sel classify.Selection, filter models.FilterState, refinements int) bool {
	if filter.FilteredByMinPrice || refinements >= maxRefinements {
		return false
	}
	if sel.Tier == models.TierLeast {
		return true
	}
	return sel.Truncated
}
