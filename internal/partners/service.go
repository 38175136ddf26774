package partners

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Defaults applied on creation, matching how accounts are usually set up:
// deliveries Monday and Thursday, driver collects cash.
var defaultDeliveryDays = []int{1, 4}

const defaultPaymentMethod = "CASH_TO_DRIVER"

// Service coordinates partner account management.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a partner account.
func (s *Service) Create(ctx context.Context, req CreatePartnerRequest) (*Partner, error) {
	days := req.FixedDeliveryDays
	if len(days) == 0 {
		days = defaultDeliveryDays
	}
	payment := req.PaymentMethod
	if payment == "" {
		payment = defaultPaymentMethod
	}
	p := Partner{
		ID:                uuid.NewString(),
		Type:              req.Type,
		Name:              req.Name,
		Address:           req.Address,
		City:              req.City,
		Phone:             req.Phone,
		Email:             req.Email,
		FixedDeliveryDays: days,
		PaymentMethod:     payment,
		IsActive:          true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create partner: %w", err)
	}
	return s.repo.Get(ctx, p.ID)
}

// Update applies partial changes, including the per-partner deadline override.
func (s *Service) Update(ctx context.Context, id string, req UpdatePartnerRequest) (*Partner, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.City != nil {
		p.City = *req.City
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.FixedDeliveryDays != nil {
		p.FixedDeliveryDays = *req.FixedDeliveryDays
	}
	if req.OrderDeadlineTime != nil {
		p.OrderDeadlineTime = req.OrderDeadlineTime
	}
	if req.OrderDeadlineDays != nil {
		p.OrderDeadlineDays = req.OrderDeadlineDays
	}
	if req.PaymentMethod != nil {
		p.PaymentMethod = *req.PaymentMethod
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, fmt.Errorf("update partner: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one partner.
func (s *Service) Get(ctx context.Context, id string) (*Partner, error) {
	return s.repo.Get(ctx, id)
}

// List returns all partners for the back office.
func (s *Service) List(ctx context.Context) ([]Partner, error) {
	return s.repo.List(ctx, false)
}

// PublicList returns active partners for the marketing site.
func (s *Service) PublicList(ctx context.Context) ([]PublicPartner, error) {
	active, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]PublicPartner, 0, len(active))
	for _, p := range active {
		out = append(out, PublicPartner{ID: p.ID, Type: p.Type, Name: p.Name, Address: p.Address, City: p.City, Phone: p.Phone})
	}
	return out, nil
}
