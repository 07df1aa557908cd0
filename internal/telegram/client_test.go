package telegram

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/dispatch"
	"github.com/autodropshipper/dealscout/internal/models"
)

func sampleSummary() dispatch.Summary {
	basis := models.Listing{
		Title: "Toshiba 24WL3C63DA 24 Zoll Fernseher",
		Price: decimal.RequireFromString("220.00"),
		Link:  "https://www.ebay.de/itm/1",
		Tier:  models.TierBest,
	}
	other := models.Listing{
		Title: "Toshiba 24WL3C63DA (B-Ware)",
		Price: decimal.RequireFromString("235.00"),
		Link:  "https://www.ebay.de/itm/2",
		Tier:  models.TierBest,
	}
	return dispatch.Summary{
		Product: models.SourceProduct{
			ID:             "prod-1",
			Name:           "Toshiba 24WL3C63DA",
			ReferencePrice: decimal.RequireFromString("150.00"),
			Currency:       "EUR",
			Marketplace:    "idealo",
			SourceURL:      "https://www.idealo.de/p/1",
		},
		Basis:           basis,
		Listings:        []models.Listing{basis, other},
		PotentialProfit: decimal.RequireFromString("50.00"),
	}
}

func TestFormatSummary(t *testing.T) {
	msg := formatSummary(sampleSummary())

	for _, want := range []string{
		"Profitable deal found",
		"€150\\.00", // source price, escaped
		"€50\\.00",  // profit, escaped
		"€220\\.00", // basis price, escaped
		"(https://www.ebay.de/itm/1)",
		"(https://www.idealo.de/p/1)",
		"Other candidates",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatSummary_BasisExcludedFromCandidates(t *testing.T) {
	msg := formatSummary(sampleSummary())

	if strings.Count(msg, "https://www.ebay.de/itm/1") != 1 {
		t.Error("Basis listing must appear exactly once")
	}
	if !strings.Contains(msg, "https://www.ebay.de/itm/2") {
		t.Error("Non-basis candidate missing from message")
	}
}

func TestFormatSummary_SingleListingOmitsCandidates(t *testing.T) {
	s := sampleSummary()
	s.Listings = s.Listings[:1]

	msg := formatSummary(s)
	if strings.Contains(msg, "Other candidates") {
		t.Error("Single-listing summary must not list other candidates")
	}
}

func TestFormatSummary_NoSourceURL(t *testing.T) {
	s := sampleSummary()
	s.Product.SourceURL = ""

	msg := formatSummary(s)
	if strings.Contains(msg, "(https://www.idealo.de") {
		t.Error("Product without source URL must not be linked")
	}
	if !strings.Contains(msg, "Toshiba 24WL3C63DA") {
		t.Error("Product name missing from message")
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"price 1.234,56", "price 1\\.234,56"},
		{"a-b_c", "a\\-b\\_c"},
		{"(24 Zoll)", "\\(24 Zoll\\)"},
		{"100%!", "100%\\!"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.input); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.input, got, tt.want)
		}
	}
}
