package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and batch stock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextOrderNumber(ctx context.Context) (int64, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	ListOrders(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
	FindBatch(ctx context.Context, batchID uuid.UUID) (*models.Batch, error)
	FindBatchProduct(ctx context.Context, batchID, productID uuid.UUID) (*models.BatchProduct, error)
	ReserveStock(ctx context.Context, batchID, productID uuid.UUID, qty int) (bool, error)
	ReleaseStock(ctx context.Context, batchID, productID uuid.UUID, qty int) (bool, error)
}
