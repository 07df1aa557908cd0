package query

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/models"
)

func testProduct(name string, price string) models.SourceProduct {
	return models.SourceProduct{
		ID:             "prod-1",
		Name:           name,
		ReferencePrice: decimal.RequireFromString(price),
		Currency:       "EUR",
		Marketplace:    "idealo",
	}
}

func TestBuildURL_Unfiltered(t *testing.T) {
	b := New(DefaultParams())
	url := b.BuildURL(testProduct("Toshiba 24WL3C63DA", "150.00"), models.FilterState{})

	if !strings.HasPrefix(url, "https://www.ebay.de/sch/i.html?") {
		t.Errorf("Unexpected base URL: %s", url)
	}
	if !strings.Contains(url, "_nkw=Toshiba+24WL3C63DA") {
		t.Errorf("Expected encoded keyword, got %s", url)
	}
	if !strings.Contains(url, "_sop=15") {
		t.Errorf("Expected price-ascending sort parameter, got %s", url)
	}
	if strings.Contains(url, "_udlo") {
		t.Errorf("Unfiltered URL must not contain min-price parameter: %s", url)
	}
}

func TestBuildURL_MinPriceFilter(t *testing.T) {
	b := New(DefaultParams())
	state := models.FilterState{
		FilteredByMinPrice: true,
		MinPrice:           decimal.RequireFromString("150.00"),
	}
	url := b.BuildURL(testProduct("Toshiba 24WL3C63DA", "150.00"), state)

	if !strings.Contains(url, "_udlo=150.00") {
		t.Errorf("Expected min-price parameter 150.00, got %s", url)
	}
}

func TestBuildURL_Idempotent(t *testing.T) {
	b := New(DefaultParams())
	product := testProduct("Honeywell Net Base Docking Cradle (CT40-NB-UVN-2)", "90.00")
	state := models.FilterState{
		FilteredByMinPrice: true,
		MinPrice:           decimal.RequireFromString("90.00"),
	}

	first := b.BuildURL(product, state)
	second := b.BuildURL(product, state)
	if first != second {
		t.Errorf("BuildURL not idempotent:\n  %s\n  %s", first, second)
	}
}

func TestBuildURL_EncodesSpecialCharacters(t *testing.T) {
	b := New(DefaultParams())
	url := b.BuildURL(testProduct("Anschlußstand & Zubehör 100%", "10.00"), models.FilterState{})

	if strings.Contains(url, " ") {
		t.Errorf("URL contains unencoded space: %s", url)
	}
	if strings.Contains(url, "&_nkw=Anschlußstand") {
		t.Errorf("URL contains unencoded non-ASCII keyword: %s", url)
	}
}

func TestNew_FallsBackToDefaults(t *testing.T) {
	b := New(Params{})
	url := b.BuildURL(testProduct("test", "1.00"), models.FilterState{})
	if !strings.Contains(url, "LH_BIN=1") {
		t.Errorf("Expected default fixed parameters, got %s", url)
	}
}
