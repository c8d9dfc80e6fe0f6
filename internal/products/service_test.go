package products

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT 'kg',
  default_price NUMERIC NOT NULL,
  tags TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS batch_products (
  batch_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  initial_qty INTEGER NOT NULL,
  remaining_qty INTEGER NOT NULL,
  updated_at DATETIME,
  PRIMARY KEY (batch_id, product_id)
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newProductsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestCreateDefaults(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateInput{
		Name:         " Copra ",
		DefaultPrice: decimal.NewFromInt(15000),
	})
	require.NoError(t, err)
	assert.Equal(t, "Copra", product.Name)
	assert.Equal(t, "kg", product.Unit)
	assert.True(t, product.IsActive)
}

func TestCreateInactivePersists(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db)
	ctx := context.Background()

	inactive := false
	created, err := svc.Create(ctx, CreateInput{
		Name:         "Coconut Shell Charcoal",
		DefaultPrice: decimal.NewFromInt(12000),
		IsActive:     &inactive,
	})
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	active, err := svc.List(ctx, pagination.Params{}, Filters{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active.Products)
}

func TestCreateValidation(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{DefaultPrice: decimal.NewFromInt(100)})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.Create(ctx, CreateInput{Name: "Copra", DefaultPrice: decimal.NewFromInt(-1)})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdatePriceAndDeactivate(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Name:         "Coconut Oil",
		Unit:         "liter",
		DefaultPrice: decimal.NewFromInt(40000),
	})
	require.NoError(t, err)

	price := decimal.NewFromInt(42000)
	inactive := false
	updated, err := svc.Update(ctx, created.ID, UpdateInput{
		DefaultPrice: &price,
		IsActive:     &inactive,
	})
	require.NoError(t, err)
	assert.True(t, updated.DefaultPrice.Equal(price))
	assert.False(t, updated.IsActive)
	assert.Equal(t, "liter", updated.Unit)
}

func TestDeleteBlockedByReferences(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Name:         "Coconut Fiber",
		DefaultPrice: decimal.NewFromInt(9000),
	})
	require.NoError(t, err)

	allocation := &models.BatchProduct{
		BatchID:      uuid.New(),
		ProductID:    created.ID,
		InitialQty:   10,
		RemainingQty: 10,
	}
	require.NoError(t, db.Create(allocation).Error)

	err = svc.Delete(ctx, created.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	require.NoError(t, db.Where("product_id = ?", created.ID).Delete(&models.BatchProduct{}).Error)
	require.NoError(t, svc.Delete(ctx, created.ID))
}

func TestListActiveOnlyAndPagination(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	seed := []struct {
		name   string
		active bool
	}{
		{"Copra", true},
		{"Coconut Oil", true},
		{"Coconut Shell Charcoal", false},
	}
	for i, row := range seed {
		product := &models.Product{
			ID:           uuid.New(),
			Name:         row.name,
			Unit:         "kg",
			DefaultPrice: decimal.NewFromInt(10000),
			IsActive:     row.active,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(product).Error)
	}

	active, err := svc.List(ctx, pagination.Params{}, Filters{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active.Products, 2)
	for _, row := range active.Products {
		assert.True(t, row.IsActive)
	}

	page, err := svc.List(ctx, pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Coconut Shell Charcoal", page.Products[0].Name)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Equal(t, "Copra", rest.Products[0].Name)

	search, err := svc.List(ctx, pagination.Params{}, Filters{Query: "Oil"})
	require.NoError(t, err)
	require.Len(t, search.Products, 1)
	assert.Equal(t, "Coconut Oil", search.Products[0].Name)
}
