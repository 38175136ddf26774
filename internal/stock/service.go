package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdthai/backoffice/internal/shared"
)

// Service is the inventory ledger. Every mutating operation runs in one
// transaction: the FEFO lot walk locks the rows it reads, feasibility is
// checked for the whole order first, and only then are the deltas applied.
// A shortfall therefore leaves no partial state behind.
type Service struct {
	repo              Repository
	expiryAlertWindow time.Duration
	now               func() time.Time
}

// NewService builds Service. expiryAlertWindow bounds how far ahead the
// expiry alert looks.
func NewService(repo Repository, expiryAlertWindow time.Duration) *Service {
	return &Service{repo: repo, expiryAlertWindow: expiryAlertWindow, now: time.Now}
}

// Reserve places a soft hold for every line of the order, consuming lots in
// FEFO order. All lines succeed or nothing is held.
func (s *Service) Reserve(ctx context.Context, orderID string) ([]Reservation, error) {
	var reservations []Reservation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == "CANCELLED" {
			return fmt.Errorf("%w: order %s is cancelled", shared.ErrInvalidState, order.OrderNumber)
		}

		for _, line := range order.Lines {
			lots, err := tx.LotsForProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			available := 0
			for _, lot := range lots {
				available += lot.Available()
			}
			if available < line.Quantity {
				return fmt.Errorf("%w: insufficient stock for product %s, short %d",
					shared.ErrBusinessRule, line.ProductID, line.Quantity-available)
			}

			remaining := line.Quantity
			for _, lot := range lots {
				if remaining == 0 {
					break
				}
				take := min(lot.Available(), remaining)
				if take == 0 {
					continue
				}
				if err := tx.SetLotQuantities(ctx, lot.ID, lot.Quantity, lot.ReservedQuantity+take, lot.InitialQuantity); err != nil {
					return err
				}
				reservations = append(reservations, Reservation{LotID: lot.ID, Quantity: take})
				remaining -= take
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// Release undoes holds for the order, walking the same FEFO order. Each
// release is bounded by the lot's current reserved count, so releasing more
// than was ever reserved cannot happen.
func (s *Service) Release(ctx context.Context, orderID string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, line := range order.Lines {
			lots, err := tx.LotsForProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			remaining := line.Quantity
			for _, lot := range lots {
				if remaining == 0 {
					break
				}
				give := min(lot.ReservedQuantity, remaining)
				if give == 0 {
					continue
				}
				if err := tx.SetLotQuantities(ctx, lot.ID, lot.Quantity, lot.ReservedQuantity-give, lot.InitialQuantity); err != nil {
					return err
				}
				remaining -= give
			}
		}
		return nil
	})
}

// Decrement permanently consumes on-hand stock at delivery completion.
// Lines may repeat a product, so demand is summed per product first; the
// whole order is then prechecked against locked lots before the first
// write, and a shortfall rejects without touching anything. Reserved
// counts come down with the consumed quantity, floored at zero to
// reconcile unreserved deliveries.
func (s *Service) Decrement(ctx context.Context, orderID string) ([]Movement, error) {
	var movements []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		productIDs := make([]string, 0, len(order.Lines))
		demand := make(map[string]int, len(order.Lines))
		for _, line := range order.Lines {
			if _, ok := demand[line.ProductID]; !ok {
				productIDs = append(productIDs, line.ProductID)
			}
			demand[line.ProductID] += line.Quantity
		}

		lotsByProduct := make(map[string][]Lot, len(productIDs))
		for _, productID := range productIDs {
			lots, err := tx.LotsForProductForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			onHand := 0
			for _, lot := range lots {
				onHand += lot.Quantity
			}
			if onHand < demand[productID] {
				return fmt.Errorf("%w: insufficient stock for product %s, short %d",
					shared.ErrBusinessRule, productID, demand[productID]-onHand)
			}
			lotsByProduct[productID] = lots
		}

		ref := order.OrderNumber
		for _, productID := range productIDs {
			remaining := demand[productID]
			for _, lot := range lotsByProduct[productID] {
				if remaining == 0 {
					break
				}
				take := min(lot.Quantity, remaining)
				if take == 0 {
					continue
				}
				reserved := max(lot.ReservedQuantity-take, 0)
				if err := tx.SetLotQuantities(ctx, lot.ID, lot.Quantity-take, reserved, lot.InitialQuantity); err != nil {
					return err
				}
				m := Movement{
					ID:        uuid.NewString(),
					LotID:     lot.ID,
					Type:      MovementOutDelivery,
					Quantity:  -take,
					Reference: &ref,
				}
				if err := tx.InsertMovement(ctx, m); err != nil {
					return err
				}
				movements = append(movements, m)
				remaining -= take
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// ReturnToStock credits returned goods back to the product's freshest lot
// as an IN_RETURN movement. Returned units are indistinguishable from the
// lot they rejoin, so the latest expiry is the conservative home for them.
func (s *Service) ReturnToStock(ctx context.Context, productID string, quantity int, reference string) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: return quantity must be positive", shared.ErrBusinessRule)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		lots, err := tx.LotsForProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if len(lots) == 0 {
			return fmt.Errorf("%w: no stock lot exists for product %s to return into", shared.ErrBusinessRule, productID)
		}
		lot := lots[len(lots)-1]
		if err := tx.SetLotQuantities(ctx, lot.ID, lot.Quantity+quantity, lot.ReservedQuantity, lot.InitialQuantity); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, Movement{
			ID:        uuid.NewString(),
			LotID:     lot.ID,
			Type:      MovementInReturn,
			Quantity:  quantity,
			Reference: &reference,
		})
	})
}

// Adjust corrects a lot's on-hand count. The initial-quantity audit snapshot
// moves with the delta so initial minus movements still reconciles.
func (s *Service) Adjust(ctx context.Context, lotID string, req AdjustRequest) (*Lot, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		lot, err := tx.GetLotForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		newQuantity := lot.Quantity + req.Delta
		if newQuantity < 0 {
			return fmt.Errorf("%w: adjustment would drive lot %s to %d", shared.ErrBusinessRule, lot.ID, newQuantity)
		}
		if newQuantity < lot.ReservedQuantity {
			return fmt.Errorf("%w: adjustment would drop lot %s below its %d reserved units",
				shared.ErrBusinessRule, lot.ID, lot.ReservedQuantity)
		}
		if err := tx.SetLotQuantities(ctx, lot.ID, newQuantity, lot.ReservedQuantity, lot.InitialQuantity+req.Delta); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, Movement{
			ID:       uuid.NewString(),
			LotID:    lot.ID,
			Type:     MovementAdjustment,
			Quantity: req.Delta,
			Notes:    req.Notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetLot(ctx, lotID)
}

// CreateLot registers stock that did not come from production, for demo or
// staff purposes or opening balances.
func (s *Service) CreateLot(ctx context.Context, req CreateLotRequest) (*Lot, error) {
	productionDate, err := time.ParseInLocation("2006-01-02", req.ProductionDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid production date %q", shared.ErrInvalidState, req.ProductionDate)
	}
	expiryDate, err := time.ParseInLocation("2006-01-02", req.ExpiryDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry date %q", shared.ErrInvalidState, req.ExpiryDate)
	}
	if expiryDate.Before(productionDate) {
		return nil, fmt.Errorf("%w: expiry date precedes production date", shared.ErrBusinessRule)
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = PurposeSale
	}
	lot := Lot{
		ID:              uuid.NewString(),
		ProductID:       req.ProductID,
		InitialQuantity: req.Quantity,
		Quantity:        req.Quantity,
		Purpose:         purpose,
		ProductionDate:  productionDate,
		ExpiryDate:      expiryDate,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.InsertLot(ctx, lot); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, Movement{
			ID:       uuid.NewString(),
			LotID:    lot.ID,
			Type:     MovementInProduction,
			Quantity: req.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetLot(ctx, lot.ID)
}

// GetLot returns one lot.
func (s *Service) GetLot(ctx context.Context, id string) (*Lot, error) {
	return s.repo.GetLot(ctx, id)
}

// ListLots returns lots in FEFO order, optionally for one product.
func (s *Service) ListLots(ctx context.Context, productID *string) ([]Lot, error) {
	return s.repo.ListLots(ctx, productID)
}

// Movements returns the ledger history of a lot, newest first.
func (s *Service) Movements(ctx context.Context, lotID string) ([]Movement, error) {
	return s.repo.ListMovements(ctx, lotID)
}

// Summary aggregates on-hand, reserved and available per product, with the
// soonest expiry among lots still holding stock.
func (s *Service) Summary(ctx context.Context, productID *string) ([]ProductSummary, error) {
	return s.repo.Summary(ctx, productID)
}

// Alerts reports products under their alert threshold and lots expiring
// within the configured window.
func (s *Service) Alerts(ctx context.Context) (*Alerts, error) {
	return s.AlertsWithin(ctx, s.expiryAlertWindow)
}

// AlertsWithin is Alerts with the expiry look-ahead overridden, for
// callers that carry their own window such as the scheduled sweep.
func (s *Service) AlertsWithin(ctx context.Context, window time.Duration) (*Alerts, error) {
	low, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	expiring, err := s.repo.ExpiringLots(ctx, s.now().Add(window))
	if err != nil {
		return nil, err
	}
	return &Alerts{LowStock: low, Expiring: expiring}, nil
}
