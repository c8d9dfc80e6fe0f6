package customers

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
	"github.com/cocotrade/ops-backend/pkg/enums"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  address TEXT,
  city TEXT,
  latitude NUMERIC,
  longitude NUMERIC,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL,
  customer_id TEXT NOT NULL,
  batch_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  expedition TEXT,
  description TEXT,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCustomersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestCreateNormalizesPhone(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	customer, err := svc.Create(ctx, CreateInput{
		Name:  "  Toko Kelapa Sejahtera ",
		Phone: "+62 812-3456-789",
	})
	require.NoError(t, err)
	assert.Equal(t, "Toko Kelapa Sejahtera", customer.Name)
	assert.Equal(t, "628123456789", customer.Phone)

	local, err := svc.Create(ctx, CreateInput{Name: "Warung Nira", Phone: "08123456780"})
	require.NoError(t, err)
	assert.Equal(t, "628123456780", local.Phone)
}

func TestCreateValidation(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Phone: "628123"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.Create(ctx, CreateInput{Name: "Tanpa Telepon"})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdatePartialFields(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "CV Pesisir", Phone: "628100000001"})
	require.NoError(t, err)

	city := "Surabaya"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{City: &city})
	require.NoError(t, err)
	require.NotNil(t, updated.City)
	assert.Equal(t, "Surabaya", *updated.City)
	assert.Equal(t, "CV Pesisir", updated.Name)
	assert.Equal(t, "628100000001", updated.Phone)

	blank := "   "
	_, err = svc.Update(ctx, created.ID, UpdateInput{Name: &blank})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdateMissingCustomer(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)

	name := "Baru"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{Name: &name})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestDeleteBlockedByOrders(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "UD Harapan", Phone: "628100000002"})
	require.NoError(t, err)

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: 1000,
		CustomerID:  created.ID,
		BatchID:     uuid.New(),
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(5000),
	}
	require.NoError(t, db.Create(order).Error)

	err = svc.Delete(ctx, created.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	require.NoError(t, db.Delete(order).Error)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestListSearchAndPagination(t *testing.T) {
	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	names := []string{"Toko Alpha", "Toko Beta", "Warung Gamma"}
	for i, name := range names {
		customer := &models.Customer{
			ID:        uuid.New(),
			Name:      name,
			Phone:     fmt.Sprintf("62810000010%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(customer).Error)
	}

	page, err := svc.List(ctx, pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, page.Customers, 2)
	assert.Equal(t, "Warung Gamma", page.Customers[0].Name)
	assert.Equal(t, "Toko Beta", page.Customers[1].Name)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, rest.Customers, 1)
	assert.Equal(t, "Toko Alpha", rest.Customers[0].Name)
	assert.Empty(t, rest.NextCursor)

	byName, err := svc.List(ctx, pagination.Params{}, Filters{Query: "Beta"})
	require.NoError(t, err)
	require.Len(t, byName.Customers, 1)
	assert.Equal(t, "Toko Beta", byName.Customers[0].Name)

	byPhone, err := svc.List(ctx, pagination.Params{}, Filters{Query: "628100000102"})
	require.NoError(t, err)
	require.Len(t, byPhone.Customers, 1)
	assert.Equal(t, "Warung Gamma", byPhone.Customers[0].Name)
}
