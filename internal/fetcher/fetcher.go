// Package fetcher provides the page-fetching capability: resolving a search
// URL to the raw result rows on the page. The production implementation
// drives headless Chrome; tests substitute fakes through the Fetcher
// interface.
package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/autodropshipper/dealscout/internal/models"
)

// Fetcher resolves a search URL to the raw search-result rows on that page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]models.RawResult, error)
}

// ErrNoResultList is returned when the page loaded but the search-result
// container never appeared.
var ErrNoResultList = errors.New("search result list not found on page")

// FetchError wraps a page-level failure (navigation, timeout, parse). It is
// retryable by the caller; the refinement loop aborts the run on it.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
