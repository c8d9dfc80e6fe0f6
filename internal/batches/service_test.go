package batches

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
	"github.com/cocotrade/ops-backend/pkg/outbox"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

func setupBatchesTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  received_at DATETIME NOT NULL,
  notes TEXT,
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
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func newBatchesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		outbox.NewService(outbox.NewRepository(db), nil),
	)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Unit:         "kg",
		DefaultPrice: decimal.NewFromInt(15000),
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestCreateWithAllocations(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	oil := seedProduct(t, db, "Coconut Oil")

	batch, err := svc.Create(ctx, CreateInput{
		Code:       "B-2026-08",
		ReceivedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Allocations: []AllocationInput{
			{ProductID: copra.ID, Qty: 100},
			{ProductID: oil.ID, Qty: 40},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.BatchStatusActive, batch.Status)
	require.Len(t, batch.Products, 2)
	for _, row := range batch.Products {
		assert.Equal(t, row.InitialQty, row.RemainingQty)
	}
}

func TestCreateRejectsUnknownProductAtomically(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")

	_, err := svc.Create(ctx, CreateInput{
		Code:       "B-2026-09",
		ReceivedAt: time.Now(),
		Allocations: []AllocationInput{
			{ProductID: copra.ID, Qty: 50},
			{ProductID: uuid.New(), Qty: 10},
		},
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	var batchCount int64
	require.NoError(t, db.Model(&models.Batch{}).Count(&batchCount).Error)
	assert.Zero(t, batchCount)
}

func TestCreateDuplicateCode(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	input := CreateInput{
		Code:        "B-2026-10",
		ReceivedAt:  time.Now(),
		Allocations: []AllocationInput{{ProductID: copra.ID, Qty: 10}},
	}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, input)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestUpdateSoldOutEmitsEvent(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	batch, err := svc.Create(ctx, CreateInput{
		Code:        "B-2026-11",
		ReceivedAt:  time.Now(),
		Allocations: []AllocationInput{{ProductID: copra.ID, Qty: 10}},
	})
	require.NoError(t, err)

	soldOut := enums.BatchStatusSoldOut
	updated, err := svc.Update(ctx, batch.ID, UpdateInput{Status: &soldOut})
	require.NoError(t, err)
	assert.Equal(t, enums.BatchStatusSoldOut, updated.Status)

	var eventCount int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventBatchSoldOut).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)

	// marking sold out again is a no-op, no second event
	_, err = svc.Update(ctx, batch.ID, UpdateInput{Status: &soldOut})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventBatchSoldOut).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestUpdateAllocationKeepsReservedQty(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	batch, err := svc.Create(ctx, CreateInput{
		Code:        "B-2026-12",
		ReceivedAt:  time.Now(),
		Allocations: []AllocationInput{{ProductID: copra.ID, Qty: 100}},
	})
	require.NoError(t, err)

	// simulate 30 reserved by orders
	require.NoError(t, db.Model(&models.BatchProduct{}).
		Where("batch_id = ? AND product_id = ?", batch.ID, copra.ID).
		Update("remaining_qty", 70).Error)

	row, err := svc.UpdateAllocation(ctx, batch.ID, copra.ID, AllocationUpdate{InitialQty: 120})
	require.NoError(t, err)
	assert.Equal(t, 120, row.InitialQty)
	assert.Equal(t, 90, row.RemainingQty)

	// shrinking below the reserved qty is rejected
	_, err = svc.UpdateAllocation(ctx, batch.ID, copra.ID, AllocationUpdate{InitialQty: 20})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	// explicit remaining override within range
	remaining := 50
	row, err = svc.UpdateAllocation(ctx, batch.ID, copra.ID, AllocationUpdate{
		InitialQty:   120,
		RemainingQty: &remaining,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, row.RemainingQty)
}

func TestAddAllocation(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	fiber := seedProduct(t, db, "Coconut Fiber")
	batch, err := svc.Create(ctx, CreateInput{
		Code:        "B-2027-01",
		ReceivedAt:  time.Now(),
		Allocations: []AllocationInput{{ProductID: copra.ID, Qty: 10}},
	})
	require.NoError(t, err)

	row, err := svc.AddAllocation(ctx, batch.ID, AllocationInput{ProductID: fiber.ID, Qty: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, row.RemainingQty)

	_, err = svc.AddAllocation(ctx, batch.ID, AllocationInput{ProductID: fiber.ID, Qty: 5})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestDeleteBlockedByOpenOrders(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	batch, err := svc.Create(ctx, CreateInput{
		Code:        "B-2027-02",
		ReceivedAt:  time.Now(),
		Allocations: []AllocationInput{{ProductID: copra.ID, Qty: 10}},
	})
	require.NoError(t, err)

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: 1000,
		CustomerID:  uuid.New(),
		BatchID:     batch.ID,
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(5000),
	}
	require.NoError(t, db.Create(order).Error)

	err = svc.Delete(ctx, batch.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// cancelled orders do not block deletion
	require.NoError(t, db.Model(order).Update("status", enums.OrderStatusCancelled).Error)
	require.NoError(t, svc.Delete(ctx, batch.ID))

	var allocCount int64
	require.NoError(t, db.Model(&models.BatchProduct{}).
		Where("batch_id = ?", batch.ID).Count(&allocCount).Error)
	assert.Zero(t, allocCount)
}

func TestListByStatus(t *testing.T) {
	db := setupBatchesTestDB(t)
	svc := newBatchesService(t, db)
	ctx := context.Background()

	copra := seedProduct(t, db, "Copra")
	for i, code := range []string{"B-LST-01", "B-LST-02", "B-LST-03"} {
		batch, err := svc.Create(ctx, CreateInput{
			Code:        code,
			ReceivedAt:  time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC),
			Allocations: []AllocationInput{{ProductID: copra.ID, Qty: 10}},
		})
		require.NoError(t, err)
		if i == 2 {
			cancelled := enums.BatchStatusCancelled
			_, err = svc.Update(ctx, batch.ID, UpdateInput{Status: &cancelled})
			require.NoError(t, err)
		}
	}

	active := enums.BatchStatusActive
	list, err := svc.List(ctx, pagination.Params{}, Filters{Status: &active})
	require.NoError(t, err)
	require.Len(t, list.Batches, 2)

	byCode, err := svc.List(ctx, pagination.Params{}, Filters{Query: "LST-02"})
	require.NoError(t, err)
	require.Len(t, byCode.Batches, 1)
	assert.Equal(t, "B-LST-02", byCode.Batches[0].Code)
}
