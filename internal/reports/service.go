package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
)

type reportCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Service exposes cached sales and stock reports. Cached entries carry a
// generation number; order and invoice writes bump the generation so the next
// read recomputes.
type Service interface {
	SalesByProduct(ctx context.Context, rng Range) ([]ProductSales, error)
	SalesByCustomer(ctx context.Context, rng Range) ([]CustomerSales, error)
	SalesByMonth(ctx context.Context, rng Range) ([]MonthlySales, error)
	StockLevels(ctx context.Context) ([]StockLevel, error)
	Invalidate(ctx context.Context) error
}

type service struct {
	repo  *Repository
	cache reportCache
	ttl   time.Duration
}

// NewService constructs a reports service. The cache is optional; without it
// every read hits the database.
func NewService(repo *Repository, cache reportCache, ttl time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo, cache: cache, ttl: ttl}, nil
}

func (s *service) SalesByProduct(ctx context.Context, rng Range) ([]ProductSales, error) {
	key := s.cacheKey(ctx, "sales_by_product", rangeKey(rng))
	var cached []ProductSales
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.repo.SalesByProduct(ctx, rng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales by product")
	}
	s.toCache(ctx, key, rows)
	return rows, nil
}

func (s *service) SalesByCustomer(ctx context.Context, rng Range) ([]CustomerSales, error) {
	key := s.cacheKey(ctx, "sales_by_customer", rangeKey(rng))
	var cached []CustomerSales
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.repo.SalesByCustomer(ctx, rng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales by customer")
	}
	s.toCache(ctx, key, rows)
	return rows, nil
}

func (s *service) SalesByMonth(ctx context.Context, rng Range) ([]MonthlySales, error) {
	key := s.cacheKey(ctx, "sales_by_month", rangeKey(rng))
	var cached []MonthlySales
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.repo.SalesByMonth(ctx, rng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales by month")
	}
	s.toCache(ctx, key, rows)
	return rows, nil
}

func (s *service) StockLevels(ctx context.Context) ([]StockLevel, error) {
	key := s.cacheKey(ctx, "stock_levels")
	var cached []StockLevel
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.repo.StockLevels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock levels")
	}
	s.toCache(ctx, key, rows)
	return rows, nil
}

// Invalidate bumps the cache generation. Stale entries fall out via TTL.
func (s *service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	gen := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := s.cache.Set(ctx, s.cache.CacheKey("reports", "gen"), gen, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump report generation")
	}
	return nil
}

func (s *service) cacheKey(ctx context.Context, parts ...string) string {
	if s.cache == nil {
		return ""
	}
	gen, err := s.cache.Get(ctx, s.cache.CacheKey("reports", "gen"))
	if err != nil {
		gen = "0"
	}
	return s.cache.CacheKey(append([]string{"reports", gen}, parts...)...)
}

func (s *service) fromCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil || key == "" {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (s *service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil || key == "" {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	// cache failures never fail the read
	_ = s.cache.Set(ctx, key, string(raw), s.ttl)
}

func rangeKey(rng Range) string {
	from, to := "", ""
	if !rng.From.IsZero() {
		from = rng.From.UTC().Format(time.RFC3339)
	}
	if !rng.To.IsZero() {
		to = rng.To.UTC().Format(time.RFC3339)
	}
	return from + ".." + to
}
