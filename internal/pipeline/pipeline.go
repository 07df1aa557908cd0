// Package pipeline wires the evaluation stages together: refinement,
// profitability evaluation, and dispatch. Each source product is an
// independent sequential run; a batch runs its products concurrently with a
// bounded number of workers and no shared mutable state between runs.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/autodropshipper/dealscout/internal/dispatch"
	"github.com/autodropshipper/dealscout/internal/evaluate"
	"github.com/autodropshipper/dealscout/internal/logger"
	"github.com/autodropshipper/dealscout/internal/models"
	"github.com/autodropshipper/dealscout/internal/refine"
)

// Tracker records that a product was evaluated, for staleness scheduling.
type Tracker interface {
	MarkChecked(ctx context.Context, productID string, t time.Time) error
}

// Runner executes evaluation runs. Safe for concurrent use.
type Runner struct {
	machine    *refine.Machine
	evaluator  *evaluate.Evaluator
	dispatcher *dispatch.Dispatcher
	tracker    Tracker
	workers    int
}

// New creates a Runner. tracker may be nil when staleness tracking is not
// wanted (tests). Non-positive workers falls back to 1.
func New(machine *refine.Machine, evaluator *evaluate.Evaluator, dispatcher *dispatch.Dispatcher, tracker Tracker, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		machine:    machine,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		tracker:    tracker,
		workers:    workers,
	}
}

// EvaluateProduct runs one full evaluation: refine, evaluate, dispatch.
// A fetch failure aborts before anything is persisted and is returned as a
// retryable error; the product is then not marked checked, so the next cycle
// picks it up again.
func (r *Runner) EvaluateProduct(ctx context.Context, product models.SourceProduct) (models.MatchResult, dispatch.Outcome, error) {
	refined, err := r.machine.Run(ctx, product)
	if err != nil {
		return models.MatchResult{}, dispatch.Outcome{}, err
	}

	result := r.evaluator.Evaluate(product, refined.Selection.Listings)
	outcome := r.dispatcher.Dispatch(ctx, result)

	if r.tracker != nil {
		if err := r.tracker.MarkChecked(ctx, product.ID, result.EvaluatedAt); err != nil {
			logger.Warn("Failed to mark product %s checked: %v", product.ID, err)
		}
	}
	return result, outcome, nil
}

// CycleStats summarizes one batch run.
type CycleStats struct {
	Evaluated  int
	Profitable int
	Notified   int
	Failed     int
	SinkErrors int
}

// RunBatch evaluates the products concurrently with the configured worker
// bound and returns aggregate stats. Individual failures are logged and
// counted; they never abort the batch.
func (r *Runner) RunBatch(ctx context.Context, products []models.SourceProduct) CycleStats {
	var (
		mu    sync.Mutex
		stats CycleStats
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, r.workers)

	for _, product := range products {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p models.SourceProduct) {
			defer wg.Done()
			defer func() { <-sem }()

			result, outcome, err := r.EvaluateProduct(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				logger.Error("Evaluation failed for %q: %v", p.Name, err)
				return
			}
			stats.Evaluated++
			if result.Profitable {
				stats.Profitable++
			}
			if outcome.Notified {
				stats.Notified++
			}
			if !outcome.Ok() {
				stats.SinkErrors++
			}
		}(product)
	}

	wg.Wait()
	return stats
}
