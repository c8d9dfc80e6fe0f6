package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/outbox"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order operations. Every mutation reconciles batch stock
// inside a single transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Update(ctx context.Context, input UpdateInput) (*models.Order, error)
	Delete(ctx context.Context, input DeleteInput) error
	UpdateStatus(ctx context.Context, input StatusInput) error
	UpdateShipment(ctx context.Context, input ShipmentInput) error
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		batch, err := repo.FindBatch(ctx, input.BatchID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
		}
		if batch.Status != enums.BatchStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("batch %s is %s and cannot take orders", batch.Code, batch.Status))
		}

		number, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}

		order := &models.Order{
			ID:          uuid.New(),
			OrderNumber: number,
			CustomerID:  input.CustomerID,
			BatchID:     input.BatchID,
			Status:      enums.OrderStatusPending,
			Expedition:  input.Expedition,
			Description: input.Description,
			TotalAmount: totalOf(input.Items),
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		if err := repo.CreateOrderItems(ctx, buildItems(order.ID, input.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
		}

		for _, item := range input.Items {
			if err := s.reserve(ctx, repo, input.BatchID, item.ProductID, item.Qty); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: CreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				BatchID:     order.BatchID,
				Status:      order.Status,
				TotalAmount: order.TotalAmount,
				ItemCount:   len(input.Items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		created, err = repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled order cannot be edited")
		}

		if input.BatchID != order.BatchID {
			batch, err := repo.FindBatch(ctx, input.BatchID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
			}
			if batch.Status != enums.BatchStatusActive {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("batch %s is %s and cannot take orders", batch.Code, batch.Status))
			}

			// Return every original reservation to the batch it was taken
			// from, then reserve the full new set against the new batch.
			for _, item := range order.Items {
				if err := s.release(ctx, repo, order.BatchID, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
			for _, item := range input.Items {
				if err := s.reserve(ctx, repo, input.BatchID, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		} else {
			for productID, delta := range stockDeltas(order.Items, input.Items) {
				switch {
				case delta > 0:
					if err := s.reserve(ctx, repo, order.BatchID, productID, delta); err != nil {
						return err
					}
				case delta < 0:
					if err := s.release(ctx, repo, order.BatchID, productID, -delta); err != nil {
						return err
					}
				}
			}
		}

		if err := repo.DeleteOrderItems(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order items")
		}
		if err := repo.CreateOrderItems(ctx, buildItems(order.ID, input.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
		}

		updates := map[string]any{
			"customer_id":  input.CustomerID,
			"batch_id":     input.BatchID,
			"expedition":   input.Expedition,
			"description":  input.Description,
			"total_amount": totalOf(input.Items),
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: CreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  input.CustomerID,
				BatchID:     input.BatchID,
				Status:      order.Status,
				TotalAmount: totalOf(input.Items),
				ItemCount:   len(input.Items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		updated, err = repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// Cancelled orders hold no reservations; everything else returns
		// its quantities before the rows go away.
		if order.Status != enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.release(ctx, repo, order.BatchID, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		}

		if err := repo.DeleteOrderItems(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order items")
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: DeletedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				BatchID:     order.BatchID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) UpdateStatus(ctx context.Context, input StatusInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Status {
			return nil
		}

		// Moving into cancelled releases every reservation; moving out of
		// cancelled takes them again, subject to current stock.
		switch {
		case input.Status == enums.OrderStatusCancelled:
			for _, item := range order.Items {
				if err := s.release(ctx, repo, order.BatchID, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		case order.Status == enums.OrderStatusCancelled:
			for _, item := range order.Items {
				if err := s.reserve(ctx, repo, order.BatchID, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": input.Status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: StatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				From:        order.Status,
				To:          input.Status,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) UpdateShipment(ctx context.Context, input ShipmentInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindOrder(ctx, input.OrderID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		updates := map[string]any{
			"expedition":  input.Expedition,
			"description": input.Description,
		}
		if err := repo.UpdateOrder(ctx, input.OrderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	list, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// reserve takes qty from the batch allocation, translating a failed floor
// check into a state conflict that names the product and the available qty.
func (s *service) reserve(ctx context.Context, repo Repository, batchID, productID uuid.UUID, qty int) error {
	ok, err := repo.ReserveStock(ctx, batchID, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if ok {
		return nil
	}

	allocation, err := repo.FindBatchProduct(ctx, batchID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not allocated to this batch")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch allocation")
	}

	name := productID.String()
	if allocation.Product != nil {
		name = allocation.Product.Name
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("insufficient stock for %s: %d available, %d requested", name, allocation.RemainingQty, qty)).
		WithDetails(map[string]any{
			"product_id":    productID,
			"batch_id":      batchID,
			"available_qty": allocation.RemainingQty,
			"requested_qty": qty,
		})
}

func (s *service) release(ctx context.Context, repo Repository, batchID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	ok, err := repo.ReleaseStock(ctx, batchID, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "batch allocation missing during stock release")
	}
	return nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive")
		}
		if !item.UnitPrice.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item unit price must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product line")
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// stockDeltas computes per-product quantity changes between the stored item
// set and the submitted one. Positive values need extra stock, negative
// values free it.
func stockDeltas(current []models.OrderItem, next []ItemInput) map[uuid.UUID]int {
	deltas := make(map[uuid.UUID]int, len(current)+len(next))
	for _, item := range current {
		deltas[item.ProductID] -= item.Qty
	}
	for _, item := range next {
		deltas[item.ProductID] += item.Qty
	}
	for productID, delta := range deltas {
		if delta == 0 {
			delete(deltas, productID)
		}
	}
	return deltas
}

func totalOf(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total
}

func buildItems(orderID uuid.UUID, items []ItemInput) []models.OrderItem {
	rows := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		})
	}
	return rows
}

func buildActor(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
