package batches

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/cocotrade/ops-backend/pkg/db"
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

// Service exposes stock batch operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Batch, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Batch, error)
	UpdateAllocation(ctx context.Context, batchID, productID uuid.UUID, input AllocationUpdate) (*models.BatchProduct, error)
	AddAllocation(ctx context.Context, batchID uuid.UUID, input AllocationInput) (*models.BatchProduct, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService constructs a batch service instance.
func NewService(repo *Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batch repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Batch, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch code required")
	}
	if input.ReceivedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received date required")
	}
	if err := validateAllocations(input.Allocations); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("batch code %s already exists", code))
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check batch code")
	}

	batch := &models.Batch{
		ID:         uuid.New(),
		Code:       code,
		Status:     enums.BatchStatusActive,
		ReceivedAt: input.ReceivedAt,
		Notes:      input.Notes,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, alloc := range input.Allocations {
			exists, err := repo.ProductExists(ctx, alloc.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
			}
			if !exists {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("unknown product %s", alloc.ProductID))
			}
		}
		if _, err := repo.Create(ctx, batch); err != nil {
			// the FindByCode pre-check races with concurrent creates
			if pkgdb.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("batch code %s already exists", code))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert batch")
		}
		rows := make([]models.BatchProduct, 0, len(input.Allocations))
		for _, alloc := range input.Allocations {
			rows = append(rows, models.BatchProduct{
				BatchID:      batch.ID,
				ProductID:    alloc.ProductID,
				InitialQty:   alloc.Qty,
				RemainingQty: alloc.Qty,
			})
		}
		if err := repo.CreateAllocations(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert allocations")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, batch.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Batch, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch code cannot be blank")
		}
		if code != batch.Code {
			if _, err := s.repo.FindByCode(ctx, code); err == nil {
				return nil, pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("batch code %s already exists", code))
			} else if err != gorm.ErrRecordNotFound {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check batch code")
			}
		}
		updates["code"] = code
	}
	if input.ReceivedAt != nil {
		if input.ReceivedAt.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "received date cannot be blank")
		}
		updates["received_at"] = *input.ReceivedAt
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	soldOut := false
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid batch status %q", *input.Status))
		}
		if *input.Status != batch.Status {
			updates["status"] = *input.Status
			soldOut = *input.Status == enums.BatchStatusSoldOut
		}
	}

	if len(updates) == 0 {
		return batch, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateBatch(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch")
		}
		if soldOut {
			event := outbox.DomainEvent{
				EventType:     enums.EventBatchSoldOut,
				AggregateType: enums.AggregateBatch,
				AggregateID:   id,
				Version:       1,
				Data:          SoldOutEvent{BatchID: id, Code: batch.Code},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sold out event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdateAllocation rewrites an allocation's quantities. When RemainingQty is
// not given, the qty already reserved by orders stays reserved and the
// remainder tracks the new initial.
func (s *service) UpdateAllocation(ctx context.Context, batchID, productID uuid.UUID, input AllocationUpdate) (*models.BatchProduct, error) {
	if input.InitialQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial qty cannot be negative")
	}

	var updated *models.BatchProduct
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindAllocation(ctx, batchID, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}

		reserved := current.InitialQty - current.RemainingQty
		remaining := input.InitialQty - reserved
		if input.RemainingQty != nil {
			remaining = *input.RemainingQty
		}
		if remaining < 0 || remaining > input.InitialQty {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("remaining qty %d out of range for initial %d (%d reserved)",
					remaining, input.InitialQty, reserved)).
				WithDetails(map[string]any{
					"batch_id":     batchID,
					"product_id":   productID,
					"reserved_qty": reserved,
				})
		}

		if err := repo.UpdateAllocation(ctx, batchID, productID, input.InitialQty, remaining); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update allocation")
		}
		updated, err = repo.FindAllocation(ctx, batchID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload allocation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) AddAllocation(ctx context.Context, batchID uuid.UUID, input AllocationInput) (*models.BatchProduct, error) {
	if err := validateAllocations([]AllocationInput{input}); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, batchID); err != nil {
		return nil, err
	}

	var created *models.BatchProduct
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.ProductExists(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("unknown product %s", input.ProductID))
		}
		if _, err := repo.FindAllocation(ctx, batchID, input.ProductID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already allocated to batch")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check allocation")
		}

		row := models.BatchProduct{
			BatchID:      batchID,
			ProductID:    input.ProductID,
			InitialQty:   input.Qty,
			RemainingQty: input.Qty,
		}
		if err := repo.CreateAllocations(ctx, []models.BatchProduct{row}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert allocation")
		}
		created = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	open, err := s.repo.CountOpenOrders(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count batch orders")
	}
	if open > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("batch has %d open orders and cannot be deleted", open))
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAllocations(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete allocations")
		}
		if err := repo.DeleteBatch(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete batch")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	return batch, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batches")
	}
	return list, nil
}

func validateAllocations(allocations []AllocationInput) error {
	seen := map[uuid.UUID]bool{}
	for _, alloc := range allocations {
		if alloc.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "allocation product id required")
		}
		if alloc.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "allocation qty must be positive")
		}
		if seen[alloc.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in allocations")
		}
		seen[alloc.ProductID] = true
	}
	return nil
}
