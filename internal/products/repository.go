package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

// Repository provides product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Product{}).Error
}

// CountReferences reports how many batch allocations and order items point at
// the product.
func (r *Repository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var allocations int64
	err := r.db.WithContext(ctx).
		Model(&models.BatchProduct{}).
		Where("product_id = ?", id).
		Count(&allocations).Error
	if err != nil {
		return 0, err
	}
	var items int64
	err = r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_id = ?", id).
		Count(&items).Error
	if err != nil {
		return 0, err
	}
	return allocations + items, nil
}

func (r *Repository) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("products").
		Select("id, name, unit, default_price, is_active, created_at")

	if filters.Query != "" {
		query = query.Where("name LIKE ?", "%"+filters.Query+"%")
	}
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
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

	list := &List{Products: rows}
	if len(rows) > limit {
		list.Products = rows[:limit]
		last := list.Products[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
