package fetcher

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/logger"
	"github.com/autodropshipper/dealscout/internal/models"
)

var priceRe = regexp.MustCompile(`[\d.,]+`)

// ParsePrice extracts a decimal price from marketplace-formatted text such
// as "EUR 1.234,56" or "220,00 €". German formatting is assumed: dots are
// thousands separators, the comma is the decimal mark. For price ranges
// ("EUR 20,00 bis EUR 50,00") the first amount wins.
func ParsePrice(text string) (decimal.Decimal, error) {
	m := priceRe.FindString(text)
	if m == "" {
		return decimal.Zero, errors.New("no price in text")
	}
	cleaned := strings.ReplaceAll(m, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	if price.Sign() <= 0 {
		return decimal.Zero, errors.New("non-positive price")
	}
	return price, nil
}

// ConvertResults parses raw result rows into listings, assigning the tier
// from the marketplace's best-match flag. Rows missing a title, link, or
// parseable price are skipped, matching how the site mixes ads and
// separators into its result list.
func ConvertResults(raws []models.RawResult) []models.Listing {
	now := time.Now()
	listings := make([]models.Listing, 0, len(raws))
	for i, raw := range raws {
		if raw.Title == "" || raw.Link == "" {
			continue
		}
		price, err := ParsePrice(raw.PriceText)
		if err != nil {
			logger.Debug("Skipping result %d (%q): %v", i, raw.Title, err)
			continue
		}
		tier := models.TierLeast
		if raw.BestMatch {
			tier = models.TierBest
		}
		listings = append(listings, models.Listing{
			Title:     raw.Title,
			Subtitle:  raw.Subtitle,
			Price:     price,
			Link:      raw.Link,
			ImageLink: raw.ImageLink,
			Tier:      tier,
			ScrapedAt: now,
		})
	}
	return listings
}
