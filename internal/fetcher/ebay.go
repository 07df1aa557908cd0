package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/time/rate"

	"github.com/autodropshipper/dealscout/internal/logger"
	"github.com/autodropshipper/dealscout/internal/models"
)

// eBay search page selectors.
const (
	selResultList    = "ul.srp-results"
	selResultRows    = "ul.srp-results > li"
	selNullSearch    = "div.srp-save-null-search__title"
	selCookieConsent = "button#gdpr-banner-accept"
	selTitle         = "div.s-item__title > span"
	selSubtitle      = "div.s-item__subtitle"
	selPrice         = "span.s-item__price"
	selLink          = "a.s-item__link"
	selImage         = "div.s-item__image img"

	itemClass    = "s-item"
	dividerClass = "srp-river-answer"
	// Caption of the row separating best matches from results the site
	// found for fewer search terms (eBay.de locale).
	dividerText = "Ergebnisse für weniger Suchbegriffe"
)

// BrowserConfig configures the Chrome-backed eBay fetcher.
type BrowserConfig struct {
	Headless    bool
	PageTimeout time.Duration // Per-page navigation and element-wait budget
	SettleDelay time.Duration // Extra wait after load for dynamic content
	RateLimit   rate.Limit    // Page loads per second across all evaluations
}

func (c *BrowserConfig) defaults() {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 30 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.RateLimit <= 0 {
		c.RateLimit = rate.Every(5 * time.Second)
	}
}

// EbayFetcher fetches eBay search result pages through headless Chrome with
// stealth applied. Safe for concurrent use: each Fetch opens its own tab; the
// shared rate limiter throttles page loads across evaluations.
type EbayFetcher struct {
	cfg     BrowserConfig
	limiter *rate.Limiter

	mu        sync.Mutex
	lnch      *launcher.Launcher
	browser   *rod.Browser
	consented bool
}

// NewEbay creates an EbayFetcher. Call Start before Fetch.
func NewEbay(cfg BrowserConfig) *EbayFetcher {
	cfg.defaults()
	return &EbayFetcher{
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.RateLimit, 1),
	}
}

// Start launches Chrome and connects to it.
func (f *EbayFetcher) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return nil
	}

	f.lnch = launcher.New().Headless(f.cfg.Headless)
	controlURL, err := f.lnch.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	f.browser = browser
	logger.Info("Browser started (headless: %v)", f.cfg.Headless)
	return nil
}

// Close shuts the browser down.
func (f *EbayFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	if f.lnch != nil {
		f.lnch.Cleanup()
	}
	f.browser = nil
	return err
}

// Fetch loads the search URL in a fresh tab and returns the raw result rows
// in page order. All failures are wrapped in *FetchError.
func (f *EbayFetcher) Fetch(ctx context.Context, url string) ([]models.RawResult, error) {
	f.mu.Lock()
	browser := f.browser
	f.mu.Unlock()
	if browser == nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("fetcher not started")}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create tab: %w", err)}
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.PageTimeout)
	defer cancel()
	page = page.Context(navCtx)

	if err := page.Navigate(url); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("wait load: %w", err)}
	}

	f.acceptCookieConsent(page)

	if _, err := page.Timeout(f.cfg.PageTimeout).Element(selResultList); err != nil {
		return nil, &FetchError{URL: url, Err: ErrNoResultList}
	}

	// Let dynamically injected rows settle.
	select {
	case <-time.After(f.cfg.SettleDelay):
	case <-ctx.Done():
		return nil, &FetchError{URL: url, Err: ctx.Err()}
	}

	results, err := f.extractResults(page)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	logger.Debug("Fetched %d result rows from %s", len(results), url)
	return results, nil
}

// acceptCookieConsent clicks the GDPR banner once per browser session. Not
// finding the button is normal after the first page.
func (f *EbayFetcher) acceptCookieConsent(page *rod.Page) {
	f.mu.Lock()
	done := f.consented
	f.mu.Unlock()
	if done {
		return
	}

	has, el, err := page.Has(selCookieConsent)
	if err == nil && has {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			logger.Warn("Cookie consent click failed: %v", err)
			return
		}
		logger.Debug("Cookie consent accepted")
	}
	f.mu.Lock()
	f.consented = true
	f.mu.Unlock()
}

// extractResults walks the result rows, tracking the divider between the
// best-match section and the "fewer search terms" section. When the site
// shows its null-search banner no row counts as a best match.
func (f *EbayFetcher) extractResults(page *rod.Page) ([]models.RawResult, error) {
	nullSearch, _, err := page.Has(selNullSearch)
	if err != nil {
		return nil, fmt.Errorf("null-search check: %w", err)
	}

	rows, err := page.Elements(selResultRows)
	if err != nil {
		return nil, fmt.Errorf("result rows: %w", err)
	}

	var results []models.RawResult
	afterDivider := false
	for _, row := range rows {
		cls, err := row.Attribute("class")
		if err != nil || cls == nil {
			continue
		}

		if strings.Contains(*cls, dividerClass) {
			text, err := row.Text()
			if err == nil && strings.Contains(text, dividerText) {
				afterDivider = true
			}
			continue
		}
		if !strings.Contains(*cls, itemClass) {
			continue
		}

		raw := parseResultRow(row)
		if raw == nil {
			continue
		}
		raw.BestMatch = !nullSearch && !afterDivider
		results = append(results, *raw)
	}
	return results, nil
}

// parseResultRow extracts the fields of one s-item row. Returns nil for rows
// missing the mandatory title, price, or link (ads, placeholders).
func parseResultRow(row *rod.Element) *models.RawResult {
	// Do not wait for missing children: absent subtitle or image is normal.
	row = row.Sleeper(rod.NotFoundSleeper)
	raw := &models.RawResult{}

	if el, err := row.Element(selTitle); err == nil {
		if text, err := el.Text(); err == nil {
			raw.Title = strings.TrimSpace(text)
		}
	}
	if el, err := row.Element(selSubtitle); err == nil {
		if text, err := el.Text(); err == nil {
			raw.Subtitle = strings.TrimSpace(text)
		}
	}
	if el, err := row.Element(selPrice); err == nil {
		if text, err := el.Text(); err == nil {
			raw.PriceText = strings.TrimSpace(text)
		}
	}
	if el, err := row.Element(selLink); err == nil {
		if href, err := el.Attribute("href"); err == nil && href != nil {
			raw.Link = *href
		}
	}
	if el, err := row.Element(selImage); err == nil {
		if src, err := el.Attribute("src"); err == nil && src != nil {
			raw.ImageLink = *src
		} else if src, err := el.Attribute("data-src"); err == nil && src != nil {
			raw.ImageLink = *src
		}
	}

	if raw.Title == "" || raw.PriceText == "" || raw.Link == "" {
		return nil
	}
	return raw
}
