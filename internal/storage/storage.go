// Package storage persists source products and match results in SQLite.
//
// Match results are upserted under the natural key (product ID, basis
// listing link), making Save idempotent across re-runs and safe under
// concurrent evaluations: the unique key is what prevents duplicate rows,
// not any in-memory coordination.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/autodropshipper/dealscout/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS source_products (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	reference_price TEXT NOT NULL,
	currency        TEXT NOT NULL,
	marketplace     TEXT NOT NULL,
	source_url      TEXT NOT NULL DEFAULT '',
	discovered_at   TEXT NOT NULL,
	last_checked_at TEXT
);

CREATE TABLE IF NOT EXISTS match_results (
	result_id        TEXT NOT NULL,
	product_id       TEXT NOT NULL,
	basis_link       TEXT NOT NULL,
	listings         TEXT NOT NULL,
	potential_profit TEXT NOT NULL,
	profitable       INTEGER NOT NULL,
	evaluated_at     TEXT NOT NULL,
	PRIMARY KEY (product_id, basis_link),
	FOREIGN KEY (product_id) REFERENCES source_products(id)
);

CREATE INDEX IF NOT EXISTS idx_match_results_profitable
	ON match_results(profitable, evaluated_at);
`

// Pragmas applied on open. WAL and a busy timeout keep concurrent
// evaluations from tripping over each other.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Storage is a SQLite-backed repository for source products and match
// results. Safe for concurrent use.
type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path. Use ":memory:" in
// tests.
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// UpsertSourceProduct inserts or refreshes a discovered product. The
// last-checked timestamp is preserved on conflict so re-discovery does not
// reset staleness tracking.
func (s *Storage) UpsertSourceProduct(ctx context.Context, p *models.SourceProduct) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_products (id, name, reference_price, currency, marketplace, source_url, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			reference_price = excluded.reference_price,
			currency = excluded.currency,
			source_url = excluded.source_url`,
		p.ID, p.Name, p.ReferencePrice.String(), p.Currency, p.Marketplace,
		p.SourceURL, p.DiscoveredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}

// GetSourceProduct retrieves a product by ID.
func (s *Storage) GetSourceProduct(ctx context.Context, id string) (*models.SourceProduct, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, reference_price, currency, marketplace, source_url, discovered_at
		FROM source_products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	return p, err
}

// ProductsDueForCheck returns up to limit products that were never evaluated
// or whose last evaluation is older than staleness, oldest first.
func (s *Storage) ProductsDueForCheck(ctx context.Context, staleness time.Duration, limit int) ([]models.SourceProduct, error) {
	cutoff := time.Now().Add(-staleness).UTC().Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, reference_price, currency, marketplace, source_url, discovered_at
		FROM source_products
		WHERE last_checked_at IS NULL OR last_checked_at < ?
		ORDER BY last_checked_at IS NOT NULL, last_checked_at ASC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due products: %w", err)
	}
	defer rows.Close()

	var products []models.SourceProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// MarkChecked records that the product was evaluated at t.
func (s *Storage) MarkChecked(ctx context.Context, productID string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE source_products SET last_checked_at = ? WHERE id = ?`,
		t.UTC().Format(time.RFC3339Nano), productID)
	if err != nil {
		return fmt.Errorf("failed to mark product %s checked: %w", productID, err)
	}
	return nil
}

// Save upserts a match result under (product ID, basis listing link).
// Results without listings use an empty basis link, so repeated no-match
// evaluations collapse into a single row. Implements dispatch.Persister.
func (s *Storage) Save(ctx context.Context, result *models.MatchResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}

	basisLink := ""
	if basis, ok := result.Basis(); ok {
		basisLink = basis.Link
	}

	listings, err := json.Marshal(result.Listings)
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO match_results (result_id, product_id, basis_link, listings, potential_profit, profitable, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, basis_link) DO UPDATE SET
			result_id = excluded.result_id,
			listings = excluded.listings,
			potential_profit = excluded.potential_profit,
			profitable = excluded.profitable,
			evaluated_at = excluded.evaluated_at`,
		result.ID, result.Product.ID, basisLink, string(listings),
		result.PotentialProfit.String(), boolToInt(result.Profitable),
		result.EvaluatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save result for product %s: %w", result.Product.ID, err)
	}
	return nil
}

// GetMatchResults returns all stored results for a product, newest first.
func (s *Storage) GetMatchResults(ctx context.Context, productID string) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.result_id, r.listings, r.potential_profit, r.profitable, r.evaluated_at,
		       p.id, p.name, p.reference_price, p.currency, p.marketplace, p.source_url, p.discovered_at
		FROM match_results r
		JOIN source_products p ON p.id = r.product_id
		WHERE r.product_id = ?
		ORDER BY r.evaluated_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// ProfitableResults returns up to limit profitable results, newest first.
func (s *Storage) ProfitableResults(ctx context.Context, limit int) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.result_id, r.listings, r.potential_profit, r.profitable, r.evaluated_at,
		       p.id, p.name, p.reference_price, p.currency, p.marketplace, p.source_url, p.discovered_at
		FROM match_results r
		JOIN source_products p ON p.id = r.product_id
		WHERE r.profitable = 1
		ORDER BY r.evaluated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query profitable results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.SourceProduct, error) {
	var p models.SourceProduct
	var price, discovered string
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Currency, &p.Marketplace, &p.SourceURL, &discovered); err != nil {
		return nil, err
	}
	var err error
	if p.ReferencePrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt reference price for %s: %w", p.ID, err)
	}
	if p.DiscoveredAt, err = time.Parse(time.RFC3339Nano, discovered); err != nil {
		return nil, fmt.Errorf("corrupt discovered_at for %s: %w", p.ID, err)
	}
	return &p, nil
}

func scanResults(rows *sql.Rows) ([]models.MatchResult, error) {
	var results []models.MatchResult
	for rows.Next() {
		var r models.MatchResult
		var listings, profit, evaluated, price, discovered string
		var profitable int
		err := rows.Scan(&r.ID, &listings, &profit, &profitable, &evaluated,
			&r.Product.ID, &r.Product.Name, &price, &r.Product.Currency,
			&r.Product.Marketplace, &r.Product.SourceURL, &discovered)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(listings), &r.Listings); err != nil {
			return nil, fmt.Errorf("corrupt listings for result %s: %w", r.ID, err)
		}
		if r.PotentialProfit, err = decimal.NewFromString(profit); err != nil {
			return nil, fmt.Errorf("corrupt profit for result %s: %w", r.ID, err)
		}
		if r.Product.ReferencePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("corrupt reference price for result %s: %w", r.ID, err)
		}
		if r.EvaluatedAt, err = time.Parse(time.RFC3339Nano, evaluated); err != nil {
			return nil, fmt.Errorf("corrupt evaluated_at for result %s: %w", r.ID, err)
		}
		if r.Product.DiscoveredAt, err = time.Parse(time.RFC3339Nano, discovered); err != nil {
			return nil, fmt.Errorf("corrupt discovered_at for result %s: %w", r.ID, err)
		}
		r.Profitable = profitable != 0
		results = append(results, r)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
