// Package classify partitions fetched search results into relevance tiers and
// applies per-tier caps.
//
// The target marketplace flags some results as "best match"; the classifier
// partitions strictly on that flag and performs no scoring of its own. The
// two tiers are mutually exclusive: the least-match tier is used only as a
// fallback when the best-match tier is empty.
package classify

import (
	"github.com/autodropshipper/dealscout/internal/models"
)

// Selection is the classifier output: the chosen listings, the tier that
// supplied them, and whether the best-match tier had to be truncated to the
// cap. Downstream refinement decisions depend on both tags.
type Selection struct {
	Listings  []models.Listing
	Tier      models.Tier
	Truncated bool // Best tier exceeded the cap and was cut to it
}

// Classifier applies the tier selection policy.
type Classifier struct {
	maxBestMatch  int
	maxLeastMatch int
}

// New creates a Classifier with the given per-tier caps. Non-positive caps
// fall back to 1.
func New(maxBestMatch, maxLeastMatch int) *Classifier {
	if maxBestMatch <= 0 {
		maxBestMatch = 1
	}
	if maxLeastMatch <= 0 {
		maxLeastMatch = 1
	}
	return &Classifier{maxBestMatch: maxBestMatch, maxLeastMatch: maxLeastMatch}
}

// Classify partitions listings on their tier tag and selects one tier:
//   - non-empty best tier within the cap: all of it;
//   - non-empty best tier above the cap: the first maxBestMatch in site
//     order (already price-sorted per the query), marked Truncated;
//   - empty best tier: the first maxLeastMatch of the least tier.
//
// An empty least-match fallback is a valid, expected outcome, not an error.
func (c *Classifier) Classify(listings []models.Listing) Selection {
	var best, least []models.Listing
	for _, l := range listings {
		if l.Tier == models.TierBest {
			best = append(best, l)
		} else {
			least = append(least, l)
		}
	}

	if len(best) == 0 {
		if len(least) > c.maxLeastMatch {
			least = least[:c.maxLeastMatch]
		}
		return Selection{Listings: least, Tier: models.TierLeast}
	}

	truncated := false
	if len(best) > c.maxBestMatch {
		best = best[:c.maxBestMatch]
		truncated = true
	}
	return Selection{Listings: best, Tier: models.TierBest, Truncated: truncated}
}
