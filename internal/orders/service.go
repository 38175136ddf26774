package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/shared"
)

// createRetries bounds retry on order-number collisions. The counter table
// serializes allocation, so a collision means a concurrent insert raced a
// rolled-back sequence; one or two retries always clears it.
const createRetries = 3

// PartnerLookup is the slice of partner data order placement needs.
type PartnerLookup interface {
	Get(ctx context.Context, id string) (*partners.Partner, error)
}

// Service coordinates order placement and lifecycle.
type Service struct {
	repo     Repository
	partners PartnerLookup
	catalog  ProductLookup
	pricer   Pricer
	policy   DeadlinePolicy
	audit    *shared.AuditLogger
	now      func() time.Time
}

// NewService builds Service. A nil audit logger disables audit records.
func NewService(repo Repository, partnerLookup PartnerLookup, catalog ProductLookup, pricer Pricer, policy DeadlinePolicy, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		partners: partnerLookup,
		catalog:  catalog,
		pricer:   pricer,
		policy:   policy,
		audit:    audit,
		now:      time.Now,
	}
}

// Create places an order. Deadline policy and pricing both run before
// anything is written; the order number is allocated and the order plus
// its lines inserted in one transaction.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	partner, err := s.partners.Get(ctx, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("partner %s: %w", req.PartnerID, err)
	}
	if !partner.IsActive {
		return nil, fmt.Errorf("%w: partner %s is not active", shared.ErrBusinessRule, partner.Name)
	}

	requestedDate, err := time.ParseInLocation("2006-01-02", req.RequestedDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid requested date %q", shared.ErrInvalidState, req.RequestedDate)
	}

	deadline, err := s.policy.Evaluate(partner, requestedDate, req.IsUrgent, s.now())
	if err != nil {
		return nil, err
	}
	priced, err := s.pricer.Price(ctx, s.catalog, req.Items, req.IsUrgent)
	if err != nil {
		return nil, err
	}

	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = DeliveryStandard
	}
	if deliveryType == DeliveryOnSite && (req.OnSiteTime == nil || *req.OnSiteTime == "") {
		return nil, fmt.Errorf("%w: on-site orders require a pickup time", shared.ErrBusinessRule)
	}
	if req.IsUrgent && (req.UrgentReason == nil || *req.UrgentReason == "") {
		return nil, fmt.Errorf("%w: urgent orders require a reason", shared.ErrBusinessRule)
	}

	status := StatusConfirmed
	if req.IsUrgent || deadline.RequiresApproval {
		status = StatusPending
	}

	actor := shared.ActorFromContext(ctx)
	order := Order{
		ID:               uuid.NewString(),
		PartnerID:        partner.ID,
		UserID:           actor.UserID,
		Status:           status,
		RequestedDate:    requestedDate,
		DeliveryType:     deliveryType,
		OnSiteTime:       req.OnSiteTime,
		IsUrgent:         req.IsUrgent,
		UrgentReason:     req.UrgentReason,
		DeadlineType:     deadline.Classification,
		RequiresApproval: deadline.RequiresApproval,
		Subtotal:         priced.Subtotal,
		VATAmount:        priced.VATAmount,
		Total:            priced.Total,
		Notes:            req.Notes,
	}

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		lastErr = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
			number, err := tx.NextOrderNumber(ctx, s.now())
			if err != nil {
				return err
			}
			order.OrderNumber = number
			if err := tx.Create(ctx, order); err != nil {
				return err
			}
			for _, line := range priced.Lines {
				line.ID = uuid.NewString()
				line.OrderID = order.ID
				if err := tx.InsertLine(ctx, line); err != nil {
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

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   "order.created",
			Entity:   "order",
			EntityID: order.ID,
			Meta:     map[string]any{"orderNumber": order.OrderNumber, "total": order.Total.String()},
		})
	}
	return s.repo.Get(ctx, order.ID)
}

// Approve resolves a pending urgent or late order. Approval confirms the
// order; rejection cancels it.
func (s *Service) Approve(ctx context.Context, id string, approved bool) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending {
		return nil, fmt.Errorf("%w: order %s is %s, only pending orders can be approved", shared.ErrInvalidState, order.OrderNumber, order.Status)
	}

	status := StatusConfirmed
	if !approved {
		status = StatusCancelled
	}
	if err := s.repo.SetApproval(ctx, id, approved, status); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx).UserID,
			Action:   "order.approval",
			Entity:   "order",
			EntityID: id,
			Meta:     map[string]any{"approved": approved},
		})
	}
	return s.repo.Get(ctx, id)
}

// Update edits an order that has not reached a terminal status. Date
// changes re-run the deadline policy against the current clock; item
// changes replace the lines and reprice the whole order.
func (s *Service) Update(ctx context.Context, id string, req UpdateOrderRequest) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s and can no longer be edited", shared.ErrInvalidState, order.OrderNumber, order.Status)
	}

	partner, err := s.partners.Get(ctx, order.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("partner %s: %w", order.PartnerID, err)
	}

	if req.RequestedDate != nil {
		requestedDate, err := time.ParseInLocation("2006-01-02", *req.RequestedDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid requested date %q", shared.ErrInvalidState, *req.RequestedDate)
		}
		deadline, err := s.policy.Evaluate(partner, requestedDate, order.IsUrgent, s.now())
		if err != nil {
			return nil, err
		}
		// The fresh evaluation replaces the stored one in both
		// directions: a date moved back inside the standard window
		// clears the approval flag.
		escalate := deadline.RequiresApproval && !order.RequiresApproval
		order.RequestedDate = requestedDate
		order.DeadlineType = deadline.Classification
		order.RequiresApproval = deadline.RequiresApproval
		if escalate {
			order.Status = StatusPending
		}
	}
	if req.Notes != nil {
		order.Notes = req.Notes
	}

	var newLines []OrderLine
	if req.Items != nil {
		priced, err := s.pricer.Price(ctx, s.catalog, *req.Items, order.IsUrgent)
		if err != nil {
			return nil, err
		}
		order.Subtotal = priced.Subtotal
		order.VATAmount = priced.VATAmount
		order.Total = priced.Total
		newLines = priced.Lines
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.UpdateHeader(ctx, *order); err != nil {
			return err
		}
		if newLines == nil {
			return nil
		}
		if err := tx.DeleteLines(ctx, order.ID); err != nil {
			return err
		}
		for _, line := range newLines {
			line.ID = uuid.NewString()
			line.OrderID = order.ID
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel marks an order cancelled. Delivered orders are immutable.
func (s *Service) Cancel(ctx context.Context, id string) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanCancel() {
		return nil, fmt.Errorf("%w: order %s has been delivered and cannot be cancelled", shared.ErrInvalidState, order.OrderNumber)
	}
	if order.Status == StatusCancelled {
		return order, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx).UserID,
			Action:   "order.cancelled",
			Entity:   "order",
			EntityID: id,
		})
	}
	return s.repo.Get(ctx, id)
}

// MarkReady transitions a confirmed order to READY once production has
// covered it.
func (s *Service) MarkReady(ctx context.Context, id string) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: order %s is %s, only confirmed orders become ready", shared.ErrInvalidState, order.OrderNumber, order.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusReady); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of orders plus the unfiltered match count.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

// SetStatus applies a lifecycle transition requested by another module,
// validating the allowed edges.
func (s *Service) SetStatus(ctx context.Context, id string, status OrderStatus) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return fmt.Errorf("%w: order %s is %s", shared.ErrInvalidState, order.OrderNumber, order.Status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
