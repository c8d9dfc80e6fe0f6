package reports

import (
	"context"

	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/enums"
)

// Repository runs the aggregation queries behind the report endpoints.
// Cancelled orders never count toward sales.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a reports repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) salesBase(ctx context.Context, rng Range) *gorm.DB {
	query := r.db.WithContext(ctx).
		Table("orders").
		Where("orders.status <> ?", enums.OrderStatusCancelled)
	if !rng.From.IsZero() {
		query = query.Where("orders.created_at >= ?", rng.From)
	}
	if !rng.To.IsZero() {
		query = query.Where("orders.created_at <= ?", rng.To)
	}
	return query
}

func (r *Repository) SalesByProduct(ctx context.Context, rng Range) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.salesBase(ctx, rng).
		Select(`order_items.product_id, products.name AS product_name,
			SUM(order_items.qty) AS total_qty,
			SUM(order_items.qty * order_items.unit_price) AS total_amount`).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Group("order_items.product_id, products.name").
		Order("total_amount DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) SalesByCustomer(ctx context.Context, rng Range) ([]CustomerSales, error) {
	var rows []CustomerSales
	err := r.salesBase(ctx, rng).
		Select(`orders.customer_id, customers.name AS customer_name,
			COUNT(orders.id) AS order_count,
			SUM(orders.total_amount) AS total_amount`).
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Group("orders.customer_id, customers.name").
		Order("total_amount DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SalesByMonth groups on the YYYY-MM prefix of the order timestamp, which
// reads the same from both Postgres and sqlite.
func (r *Repository) SalesByMonth(ctx context.Context, rng Range) ([]MonthlySales, error) {
	var rows []MonthlySales
	err := r.salesBase(ctx, rng).
		Select(`SUBSTR(CAST(orders.created_at AS TEXT), 1, 7) AS month,
			COUNT(orders.id) AS order_count,
			SUM(orders.total_amount) AS total_amount`).
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) StockLevels(ctx context.Context) ([]StockLevel, error) {
	var rows []StockLevel
	err := r.db.WithContext(ctx).
		Table("batch_products").
		Select(`batch_products.batch_id, batches.code AS batch_code,
			batch_products.product_id, products.name AS product_name,
			batch_products.initial_qty, batch_products.remaining_qty`).
		Joins("JOIN batches ON batches.id = batch_products.batch_id").
		Joins("JOIN products ON products.id = batch_products.product_id").
		Where("batches.status = ?", enums.BatchStatusActive).
		Order("batches.code ASC, products.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
