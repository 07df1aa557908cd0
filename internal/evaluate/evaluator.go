// Package evaluate turns a finalized candidate set into a profit decision.
// Evaluation is side-effect free and deterministic given its inputs and the
// injected fee function.
package evaluate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/autodropshipper/dealscout/internal/models"
)

// FeeFunc estimates the fees incurred when reselling at the basis listing's
// price: marketplace commission, shipping, and the like. It must be pure.
type FeeFunc func(product models.SourceProduct, basis models.Listing) decimal.Decimal

// CommissionAndShipping returns a FeeFunc charging a percentage commission of
// the basis price plus a fixed shipping estimate.
func CommissionAndShipping(commissionPct, shippingEstimate decimal.Decimal) FeeFunc {
	hundred := decimal.NewFromInt(100)
	return func(_ models.SourceProduct, basis models.Listing) decimal.Decimal {
		return basis.Price.Mul(commissionPct).Div(hundred).Add(shippingEstimate)
	}
}

// NoFees is a FeeFunc charging nothing, matching the original system's
// simple price-difference profit.
func NoFees(models.SourceProduct, models.Listing) decimal.Decimal {
	return decimal.Zero
}

// Evaluator computes the profit decision for a candidate set.
type Evaluator struct {
	fees      FeeFunc
	minProfit decimal.Decimal
}

// New creates an Evaluator. A nil fees function is treated as NoFees.
func New(fees FeeFunc, minProfit decimal.Decimal) *Evaluator {
	if fees == nil {
		fees = NoFees
	}
	return &Evaluator{fees: fees, minProfit: minProfit}
}

// Evaluate selects the lowest-priced listing as the profit basis (first-seen
// order breaks ties, since upstream ordering is already price-ascending) and
// computes:
//
//	potentialProfit = basisPrice - referencePrice - fees(product, basis)
//
// An empty candidate set yields a non-profitable result with zero profit.
func (e *Evaluator) Evaluate(product models.SourceProduct, chosen []models.Listing) models.MatchResult {
	result := models.MatchResult{
		ID:          uuid.New().String(),
		Product:     product,
		Listings:    chosen,
		EvaluatedAt: time.Now(),
	}

	basis, ok := result.Basis()
	if !ok {
		result.PotentialProfit = decimal.Zero
		return result
	}

	profit := basis.Price.Sub(product.ReferencePrice).Sub(e.fees(product, basis))
	result.PotentialProfit = profit
	result.Profitable = profit.GreaterThanOrEqual(e.minProfit)
	return result
}
