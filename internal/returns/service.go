package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/shared"
)

// PartnerLookup resolves the partner opening a return.
type PartnerLookup interface {
	Get(ctx context.Context, id string) (*partners.Partner, error)
}

// StockPort credits restockable goods back to the ledger during processing.
type StockPort interface {
	ReturnToStock(ctx context.Context, productID string, quantity int, reference string) error
}

// Service runs the return review flow: requests are photographed and
// reviewed first, and stock moves only when an approved return is
// processed.
type Service struct {
	repo     Repository
	partners PartnerLookup
	stock    StockPort
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, partnerLookup PartnerLookup, stockPort StockPort) *Service {
	return &Service{repo: repo, partners: partnerLookup, stock: stockPort, now: time.Now}
}

// Create opens a return request in REQUESTED.
func (s *Service) Create(ctx context.Context, req CreateReturnRequest) (*Return, error) {
	partner, err := s.partners.Get(ctx, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("partner %s: %w", req.PartnerID, err)
	}

	ret := Return{
		ID:        uuid.NewString(),
		PartnerID: partner.ID,
		OrderID:   req.OrderID,
		Status:    StatusRequested,
		Reason:    req.Reason,
		PhotoKeys: req.PhotoKeys,
	}
	for _, item := range req.Items {
		ret.Items = append(ret.Items, ReturnItem{
			ID:        uuid.NewString(),
			ReturnID:  ret.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Restock:   item.Restock,
		})
	}
	if err := s.repo.Create(ctx, ret); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ret.ID)
}

// Approve accepts a requested return for processing.
func (s *Service) Approve(ctx context.Context, id string) (*Return, error) {
	return s.transition(ctx, id, StatusRequested, StatusApproved)
}

// Reject closes a requested return without stock effects.
func (s *Service) Reject(ctx context.Context, id string) (*Return, error) {
	return s.transition(ctx, id, StatusRequested, StatusRejected)
}

// Process executes an approved return: every restockable item is credited
// back to the ledger, then the return closes.
func (s *Service) Process(ctx context.Context, id string) (*Return, error) {
	ret, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status != StatusApproved {
		return nil, fmt.Errorf("%w: return is %s, only approved returns can be processed", shared.ErrInvalidState, ret.Status)
	}

	reference := "return " + ret.ID
	for _, item := range ret.Items {
		if !item.Restock {
			continue
		}
		if err := s.stock.ReturnToStock(ctx, item.ProductID, item.Quantity, reference); err != nil {
			return nil, err
		}
	}
	if err := s.repo.MarkProcessed(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one return request with its items.
func (s *Service) Get(ctx context.Context, id string) (*Return, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered return requests.
func (s *Service) List(ctx context.Context, req ListReturnsRequest) ([]Return, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) transition(ctx context.Context, id string, from, to Status) (*Return, error) {
	ret, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status != from {
		return nil, fmt.Errorf("%w: return is %s, expected %s", shared.ErrInvalidState, ret.Status, from)
	}
	if err := s.repo.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
