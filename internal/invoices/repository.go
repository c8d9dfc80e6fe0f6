package invoices

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

// Repository provides invoice persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an invoice repository bound to the provided DB.
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

// NextInvoiceSequence returns the next numeric suffix for invoice numbers.
// Numbers look like INV-000123; the suffix is parsed back out so the sequence
// survives restarts without a dedicated counter table.
func (r *Repository) NextInvoiceSequence(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(CAST(SUBSTR(number, 5) AS INTEGER)), 0) + 1 FROM invoices").
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Customer").
		Preload("Payments").
		Preload("BankAccount").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) InsertPayment(ctx context.Context, payment *models.PaymentLog) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) UpdatePaidAmount(ctx context.Context, invoiceID uuid.UUID, paid decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("paid_amount", paid).Error
}

func (r *Repository) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("invoices").
		Select(`invoices.id, invoices.number, invoices.order_id, orders.order_number,
			invoices.issued_at, invoices.total_amount, invoices.paid_amount, invoices.created_at`).
		Joins("JOIN orders ON orders.id = invoices.order_id")

	if filters.UnpaidOnly {
		query = query.Where("invoices.paid_amount < invoices.total_amount")
	}
	if filters.Query != "" {
		query = query.Where("invoices.number LIKE ?", "%"+filters.Query+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(invoices.created_at < ?) OR (invoices.created_at = ? AND invoices.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []Summary
	err = query.
		Order("invoices.created_at DESC").
		Order("invoices.id DESC").
		Limit(limit + 1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &List{Invoices: rows}
	if len(rows) > limit {
		list.Invoices = rows[:limit]
		last := list.Invoices[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
