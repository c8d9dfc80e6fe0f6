package batches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

// Repository provides batch persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a batch repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *Repository) CreateAllocations(ctx context.Context, rows []models.BatchProduct) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Products.Product").
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *Repository) FindAllocation(ctx context.Context, batchID, productID uuid.UUID) (*models.BatchProduct, error) {
	var row models.BatchProduct
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND product_id = ?", batchID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) UpdateAllocation(ctx context.Context, batchID, productID uuid.UUID, initialQty, remainingQty int) error {
	return r.db.WithContext(ctx).
		Model(&models.BatchProduct{}).
		Where("batch_id = ? AND product_id = ?", batchID, productID).
		Updates(map[string]any{
			"initial_qty":   initialQty,
			"remaining_qty": remainingQty,
		}).Error
}

func (r *Repository) DeleteAllocations(ctx context.Context, batchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&models.BatchProduct{}).Error
}

func (r *Repository) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Batch{}).Error
}

// CountOpenOrders reports orders that still reference the batch and are not
// cancelled.
func (r *Repository) CountOpenOrders(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("batch_id = ? AND status <> ?", batchID, enums.OrderStatusCancelled).
		Count(&count).Error
	return count, err
}

func (r *Repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("batches").
		Select("id, code, status, received_at, created_at")

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Query != "" {
		query = query.Where("code LIKE ?", "%"+filters.Query+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []Summary
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &List{Batches: rows}
	if len(rows) > limit {
		list.Batches = rows[:limit]
		last := list.Batches[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
