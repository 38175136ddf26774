package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/shared"
	"github.com/sdthai/backoffice/internal/stock"
)

const createRetries = 3

// ProductLookup is the slice of the catalog the planner needs, mainly
// shelf life for expiry computation.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*products.Product, error)
}

// Service plans and completes production batches.
type Service struct {
	repo    Repository
	catalog ProductLookup
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, catalog ProductLookup) *Service {
	return &Service{repo: repo, catalog: catalog, now: time.Now}
}

// PlanningView aggregates confirmed demand for one delivery date by
// product. Pure read over a fresh snapshot; nothing is cached or mutated.
func (s *Service) PlanningView(ctx context.Context, date time.Time) ([]PlanningLine, error) {
	demand, err := s.repo.ConfirmedDemand(ctx, date)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var lines []PlanningLine
	for _, d := range demand {
		i, ok := index[d.ProductID]
		if !ok {
			i = len(lines)
			index[d.ProductID] = i
			lines = append(lines, PlanningLine{ProductID: d.ProductID, ProductName: d.ProductName})
		}
		lines[i].TotalQuantity += d.Quantity
		lines[i].Orders = append(lines[i].Orders, PlanningOrderRef{
			OrderID:     d.OrderID,
			OrderNumber: d.OrderNumber,
			Quantity:    d.Quantity,
		})
	}
	return lines, nil
}

// Create plans a batch from the given items. Products are validated up
// front; the batch number comes from the per-day counter.
func (s *Service) Create(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	productionDate, err := time.ParseInLocation("2006-01-02", req.ProductionDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid production date %q", shared.ErrInvalidState, req.ProductionDate)
	}

	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, fmt.Errorf("%w: product %s listed twice", shared.ErrBusinessRule, item.ProductID)
		}
		seen[item.ProductID] = true
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %s is not active", shared.ErrBusinessRule, product.Name)
		}
	}

	batch := Batch{
		ID:             uuid.NewString(),
		ProductionDate: productionDate,
		Status:         StatusPlanned,
	}

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		lastErr = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository, _ stock.Repository) error {
			number, err := tx.NextBatchNumber(ctx, productionDate)
			if err != nil {
				return err
			}
			batch.BatchNumber = number
			if err := tx.Create(ctx, batch); err != nil {
				return err
			}
			for _, item := range req.Items {
				err := tx.InsertItem(ctx, BatchItem{
					ID:              uuid.NewString(),
					BatchID:         batch.ID,
					ProductID:       item.ProductID,
					PlannedQuantity: item.Quantity,
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if !errors.Is(lastErr, shared.ErrConflict) {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return s.repo.Get(ctx, batch.ID)
}

// Start moves a planned batch into progress.
func (s *Service) Start(ctx context.Context, id string) (*Batch, error) {
	batch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch.Status != StatusPlanned {
		return nil, fmt.Errorf("%w: batch %s is %s, only planned batches can start", shared.ErrInvalidState, batch.BatchNumber, batch.Status)
	}
	if err := s.repo.SetStatus(ctx, id, StatusInProgress); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Complete closes an in-progress batch: records actual quantities, creates
// one stock lot per item with expiry = production date + shelf life, writes
// the IN_PRODUCTION movements, and stamps the batch with the earliest item
// expiry. Everything commits in one transaction.
func (s *Service) Complete(ctx context.Context, id string, req CompleteBatchRequest) (*Batch, error) {
	for productID := range req.ActualQuantities {
		if req.ActualQuantities[productID] < 0 {
			return nil, fmt.Errorf("%w: actual quantity for product %s is negative", shared.ErrBusinessRule, productID)
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository, ledger stock.Repository) error {
		batch, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if batch.Status != StatusInProgress {
			return fmt.Errorf("%w: batch %s is %s, only in-progress batches can complete",
				shared.ErrInvalidState, batch.BatchNumber, batch.Status)
		}

		planned := make(map[string]bool, len(batch.Items))
		for _, item := range batch.Items {
			planned[item.ProductID] = true
		}
		for productID := range req.ActualQuantities {
			if !planned[productID] {
				return fmt.Errorf("%w: product %s is not part of batch %s", shared.ErrBusinessRule, productID, batch.BatchNumber)
			}
		}

		var batchExpiry time.Time
		for _, item := range batch.Items {
			product, err := s.catalog.Get(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("product %s: %w", item.ProductID, err)
			}

			actual := item.PlannedQuantity
			if q, ok := req.ActualQuantities[item.ProductID]; ok {
				actual = q
			}
			if err := tx.SetActualQuantity(ctx, item.ID, actual); err != nil {
				return err
			}
			if actual == 0 {
				continue
			}

			expiry := batch.ProductionDate.AddDate(0, 0, product.ShelfLifeDays)
			if batchExpiry.IsZero() || expiry.Before(batchExpiry) {
				batchExpiry = expiry
			}

			lot := stock.Lot{
				ID:              uuid.NewString(),
				ProductID:       item.ProductID,
				BatchID:         &batch.ID,
				InitialQuantity: actual,
				Quantity:        actual,
				Purpose:         stock.PurposeSale,
				ProductionDate:  batch.ProductionDate,
				ExpiryDate:      expiry,
			}
			if err := ledger.InsertLot(ctx, lot); err != nil {
				return err
			}
			number := batch.BatchNumber
			err = ledger.InsertMovement(ctx, stock.Movement{
				ID:        uuid.NewString(),
				LotID:     lot.ID,
				Type:      stock.MovementInProduction,
				Quantity:  actual,
				Reference: &number,
			})
			if err != nil {
				return err
			}
		}

		if batchExpiry.IsZero() {
			batchExpiry = batch.ProductionDate
		}
		return tx.Complete(ctx, batch.ID, batchExpiry)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel abandons a batch that has not produced stock yet.
func (s *Service) Cancel(ctx context.Context, id string) (*Batch, error) {
	batch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: batch %s is completed, its stock already exists", shared.ErrInvalidState, batch.BatchNumber)
	}
	if batch.Status == StatusCancelled {
		return batch, nil
	}
	if err := s.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns a batch with its items.
func (s *Service) Get(ctx context.Context, id string) (*Batch, error) {
	return s.repo.Get(ctx, id)
}

// List returns batches, optionally for one production date.
func (s *Service) List(ctx context.Context, date *time.Time) ([]Batch, error) {
	return s.repo.List(ctx, date)
}
