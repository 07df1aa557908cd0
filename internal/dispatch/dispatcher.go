// Package dispatch routes a computed match result to its sinks: persistence
// always, notification only when the result is profitable. Sink failures are
// reported per-sink in the Outcome and never abort each other; the result
// was already computed correctly, so the caller can retry just the failed
// sink.
package dispatch

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/logger"
	"github.com/autodropshipper/dealscout/internal/models"
)

// Persister stores match results. Save must be an idempotent upsert keyed by
// (product identity, basis listing link) so re-runs are tolerated.
type Persister interface {
	Save(ctx context.Context, result *models.MatchResult) error
}

// Summary is the notification payload for a profitable result.
type Summary struct {
	Product         models.SourceProduct
	Basis           models.Listing
	Listings        []models.Listing
	PotentialProfit decimal.Decimal
}

// Notifier delivers profitable-deal summaries.
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// Outcome reports which sinks succeeded and which failed.
type Outcome struct {
	Persisted  bool
	Notified   bool
	PersistErr error
	NotifyErr  error
}

// Ok reports whether every attempted sink succeeded.
func (o Outcome) Ok() bool {
	return o.PersistErr == nil && o.NotifyErr == nil
}

// Dispatcher fans a match result out to the configured sinks.
type Dispatcher struct {
	persister Persister
	notifier  Notifier
}

// New creates a Dispatcher. A nil notifier disables notifications.
func New(persister Persister, notifier Notifier) *Dispatcher {
	return &Dispatcher{persister: persister, notifier: notifier}
}

// Dispatch persists the result and, when it is profitable, sends the
// notification. Persistence failure does not suppress the notification and
// vice versa; both are reported in the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, result models.MatchResult) Outcome {
	var out Outcome

	if err := d.persister.Save(ctx, &result); err != nil {
		out.PersistErr = err
		logger.Error("Failed to persist result for %q: %v", result.Product.Name, err)
	} else {
		out.Persisted = true
	}

	if !result.Profitable {
		return out
	}

	basis, ok := result.Basis()
	if !ok {
		// Profitable results always carry listings; Validate enforces it.
		return out
	}

	if d.notifier == nil {
		logger.Debug("Profitable result for %q but notifications are disabled", result.Product.Name)
		return out
	}

	summary := Summary{
		Product:         result.Product,
		Basis:           basis,
		Listings:        result.Listings,
		PotentialProfit: result.PotentialProfit,
	}
	if err := d.notifier.Notify(ctx, summary); err != nil {
		out.NotifyErr = err
		logger.Error("Failed to notify for %q: %v", result.Product.Name, err)
	} else {
		out.Notified = true
	}
	return out
}
