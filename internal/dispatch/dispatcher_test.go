package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/models"
)

type fakePersister struct {
	saved []models.MatchResult
	err   error
}

func (f *fakePersister) Save(_ context.Context, result *models.MatchResult) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *result)
	return nil
}

type fakeNotifier struct {
	sent []Summary
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, summary Summary) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, summary)
	return nil
}

func makeResult(profitable bool, listings int) models.MatchResult {
	result := models.MatchResult{
		ID: "result-1",
		Product: models.SourceProduct{
			ID:             "prod-1",
			Name:           "Toshiba 24WL3C63DA",
			ReferencePrice: decimal.RequireFromString("150.00"),
			Currency:       "EUR",
			Marketplace:    "idealo",
		},
		Profitable:  profitable,
		EvaluatedAt: time.Now(),
	}
	for i := 0; i < listings; i++ {
		result.Listings = append(result.Listings, models.Listing{
			Title: "listing",
			Price: decimal.NewFromInt(int64(220 + i)),
			Link:  "https://www.ebay.de/itm/1",
			Tier:  models.TierBest,
		})
	}
	if listings > 0 {
		result.PotentialProfit = decimal.RequireFromString("50.00")
	}
	return result
}

func TestDispatch_ProfitablePersistsAndNotifies(t *testing.T) {
	p := &fakePersister{}
	n := &fakeNotifier{}
	d := New(p, n)

	out := d.Dispatch(context.Background(), makeResult(true, 2))

	if !out.Persisted || !out.Notified {
		t.Errorf("Expected both sinks to run, got persisted=%v notified=%v", out.Persisted, out.Notified)
	}
	if !out.Ok() {
		t.Errorf("Expected clean outcome, got %+v", out)
	}
	if len(p.saved) != 1 {
		t.Fatalf("Expected 1 persisted result, got %d", len(p.saved))
	}
	if len(n.sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(n.sent))
	}
	if !n.sent[0].PotentialProfit.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("Notification carries wrong profit: %s", n.sent[0].PotentialProfit)
	}
}

func TestDispatch_NonProfitablePersistsOnly(t *testing.T) {
	p := &fakePersister{}
	n := &fakeNotifier{}
	d := New(p, n)

	out := d.Dispatch(context.Background(), makeResult(false, 0))

	if !out.Persisted {
		t.Error("Expected result persisted")
	}
	if out.Notified {
		t.Error("Non-profitable result must not be notified")
	}
	if len(n.sent) != 0 {
		t.Errorf("Expected no notifications, got %d", len(n.sent))
	}
}

func TestDispatch_PersistFailureStillNotifies(t *testing.T) {
	p := &fakePersister{err: errors.New("disk full")}
	n := &fakeNotifier{}
	d := New(p, n)

	out := d.Dispatch(context.Background(), makeResult(true, 1))

	if out.Persisted {
		t.Error("Expected persistence failure reported")
	}
	if out.PersistErr == nil {
		t.Error("Expected PersistErr set")
	}
	if !out.Notified {
		t.Error("Persistence failure must not suppress notification")
	}
	if out.Ok() {
		t.Error("Outcome with a failed sink must not be Ok")
	}
}

func TestDispatch_NotifyFailureReported(t *testing.T) {
	p := &fakePersister{}
	n := &fakeNotifier{err: errors.New("rate limited")}
	d := New(p, n)

	out := d.Dispatch(context.Background(), makeResult(true, 1))

	if !out.Persisted {
		t.Error("Expected result persisted despite notification failure")
	}
	if out.NotifyErr == nil {
		t.Error("Expected NotifyErr set")
	}
	if out.Notified {
		t.Error("Failed notification must not be marked sent")
	}
}

func TestDispatch_NilNotifier(t *testing.T) {
	p := &fakePersister{}
	d := New(p, nil)

	out := d.Dispatch(context.Background(), makeResult(true, 1))

	if !out.Persisted {
		t.Error("Expected result persisted")
	}
	if out.Notified || out.NotifyErr != nil {
		t.Errorf("Nil notifier must be a silent skip, got %+v", out)
	}
}

func TestDispatch_SummaryCarriesBasis(t *testing.T) {
	p := &fakePersister{}
	n := &fakeNotifier{}
	d := New(p, n)

	result := makeResult(true, 0)
	result.Listings = []models.Listing{
		{Title: "expensive", Price: decimal.RequireFromString("300.00"), Link: "https://www.ebay.de/itm/a", Tier: models.TierBest},
		{Title: "cheap", Price: decimal.RequireFromString("220.00"), Link: "https://www.ebay.de/itm/b", Tier: models.TierBest},
	}
	result.PotentialProfit = decimal.RequireFromString("70.00")

	d.Dispatch(context.Background(), result)

	if len(n.sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(n.sent))
	}
	if n.sent[0].Basis.Title != "cheap" {
		t.Errorf("Summary basis must be the cheapest listing, got %s", n.sent[0].Basis.Title)
	}
}
