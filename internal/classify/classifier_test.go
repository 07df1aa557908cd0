package classify

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/models"
)

func makeListings(best, least int) []models.Listing {
	var listings []models.Listing
	for i := 0; i < best; i++ {
		listings = append(listings, models.Listing{
			Title: fmt.Sprintf("best-%d", i),
			Price: decimal.NewFromInt(int64(100 + i)),
			Link:  fmt.Sprintf("https://example.com/best/%d", i),
			Tier:  models.TierBest,
		})
	}
	for i := 0; i < least; i++ {
		listings = append(listings, models.Listing{
			Title: fmt.Sprintf("least-%d", i),
			Price: decimal.NewFromInt(int64(200 + i)),
			Link:  fmt.Sprintf("https://example.com/least/%d", i),
			Tier:  models.TierLeast,
		})
	}
	return listings
}

func TestClassify_BestWithinCap(t *testing.T) {
	c := New(5, 10)
	sel := c.Classify(makeListings(3, 7))

	if sel.Tier != models.TierBest {
		t.Errorf("Expected best tier, got %s", sel.Tier)
	}
	if len(sel.Listings) != 3 {
		t.Errorf("Expected 3 listings, got %d", len(sel.Listings))
	}
	if sel.Truncated {
		t.Error("Best tier within cap must not be marked truncated")
	}
}

func TestClassify_BestTruncatedToCap(t *testing.T) {
	c := New(5, 10)
	sel := c.Classify(makeListings(12, 2))

	if sel.Tier != models.TierBest {
		t.Errorf("Expected best tier, got %s", sel.Tier)
	}
	if len(sel.Listings) != 5 {
		t.Errorf("Expected 5 listings after truncation, got %d", len(sel.Listings))
	}
	if !sel.Truncated {
		t.Error("Expected truncated flag")
	}
	// Site order (price-ascending) must be preserved
	for i, l := range sel.Listings {
		if l.Title != fmt.Sprintf("best-%d", i) {
			t.Errorf("Expected site order preserved, got %s at index %d", l.Title, i)
		}
	}
}

func TestClassify_LeastMatchFallback(t *testing.T) {
	c := New(5, 10)
	sel := c.Classify(makeListings(0, 3))

	if sel.Tier != models.TierLeast {
		t.Errorf("Expected least tier fallback, got %s", sel.Tier)
	}
	if len(sel.Listings) != 3 {
		t.Errorf("Expected 3 fallback listings, got %d", len(sel.Listings))
	}
}

func TestClassify_LeastMatchFallbackCapped(t *testing.T) {
	c := New(5, 2)
	sel := c.Classify(makeListings(0, 6))

	if len(sel.Listings) != 2 {
		t.Errorf("Expected fallback capped to 2, got %d", len(sel.Listings))
	}
}

func TestClassify_TiersNeverMerged(t *testing.T) {
	c := New(5, 10)
	sel := c.Classify(makeListings(2, 8))

	for _, l := range sel.Listings {
		if l.Tier != models.TierBest {
			t.Errorf("Least-match listing %q leaked into best selection", l.Title)
		}
	}
}

func TestClassify_Empty(t *testing.T) {
	c := New(5, 10)
	sel := c.Classify(nil)

	if len(sel.Listings) != 0 {
		t.Errorf("Expected empty selection, got %d", len(sel.Listings))
	}
	if sel.Tier != models.TierLeast {
		t.Errorf("Empty input falls to least tier, got %s", sel.Tier)
	}
}
