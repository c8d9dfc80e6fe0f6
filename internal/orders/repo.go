package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(order_number), 999) + 1 FROM orders").
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Customer").
		Preload("Batch").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderItem{}).Error
}

func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", orderID).
		Delete(&models.Order{}).Error
}

func (r *repository) ListOrders(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.id, orders.order_number, orders.created_at, orders.status,
			orders.total_amount, customers.name AS customer_name, batches.code AS batch_code,
			(SELECT COUNT(*) FROM order_items WHERE order_items.order_id = orders.id) AS total_items`).
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Joins("JOIN batches ON batches.id = orders.batch_id")

	if filters.Status != nil {
		query = query.Where("orders.status = ?", *filters.Status)
	}
	if filters.CustomerID != nil {
		query = query.Where("orders.customer_id = ?", *filters.CustomerID)
	}
	if filters.BatchID != nil {
		query = query.Where("orders.batch_id = ?", *filters.BatchID)
	}
	if filters.DateFrom != nil {
		query = query.Where("orders.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("orders.created_at <= ?", *filters.DateTo)
	}
	if filters.Query != "" {
		query = query.Where("customers.name LIKE ?", "%"+filters.Query+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []Summary
	err = query.
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(limit + 1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &List{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) FindBatch(ctx context.Context, batchID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Where("id = ?", batchID).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindBatchProduct(ctx context.Context, batchID, productID uuid.UUID) (*models.BatchProduct, error) {
	var row models.BatchProduct
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("batch_id = ? AND product_id = ?", batchID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ReserveStock decrements remaining stock with a floor check. The write only
// lands when enough stock remains; false means insufficient stock or no
// allocation row.
func (r *repository) ReserveStock(ctx context.Context, batchID, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE batch_products
		SET remaining_qty = remaining_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE batch_id = ? AND product_id = ? AND remaining_qty >= ?
	`, qty, batchID, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseStock returns previously reserved stock to the batch. False means
// the allocation row does not exist.
func (r *repository) ReleaseStock(ctx context.Context, batchID, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE batch_products
		SET remaining_qty = remaining_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE batch_id = ? AND product_id = ?
	`, qty, batchID, productID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
