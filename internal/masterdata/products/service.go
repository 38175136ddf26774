package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sdthai/backoffice/internal/platform/cache"
	"github.com/sdthai/backoffice/internal/shared"
)

const publicCatalogKey = "catalog:public"

// Service coordinates catalog operations.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	flight singleflight.Group
}

// NewService builds Service. Cache may be nil.
func NewService(repo Repository, c *cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// Create registers a new product. SKU and barcode uniqueness is enforced by
// the store and surfaced as a conflict.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	price, err := decimal.NewFromString(req.PriceB2B)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%w: invalid price %q", shared.ErrBusinessRule, req.PriceB2B)
	}

	p := Product{
		ID:            uuid.NewString(),
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Name:          req.Name,
		PriceB2B:      price.Round(2),
		ShelfLifeDays: req.ShelfLifeDays,
		MinStockAlert: req.MinStockAlert,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	_ = s.cache.Invalidate(ctx, publicCatalogKey)
	return s.repo.Get(ctx, p.ID)
}

// Update applies partial changes. Price changes never touch existing order
// lines: the line snapshot is frozen at order time.
func (s *Service) Update(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.PriceB2B != nil {
		price, err := decimal.NewFromString(*req.PriceB2B)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: invalid price %q", shared.ErrBusinessRule, *req.PriceB2B)
		}
		p.PriceB2B = price.Round(2)
	}
	if req.ShelfLifeDays != nil {
		p.ShelfLifeDays = *req.ShelfLifeDays
	}
	if req.MinStockAlert != nil {
		p.MinStockAlert = *req.MinStockAlert
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	_ = s.cache.Invalidate(ctx, publicCatalogKey)
	return s.repo.Get(ctx, id)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// GetByBarcode is used by the POS scanner flow.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	return s.repo.GetByBarcode(ctx, barcode)
}

// List returns the full catalog for the back office.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, false)
}

// PublicList serves the active catalog for the marketing site, cached.
// Concurrent cache misses collapse into a single rebuild.
func (s *Service) PublicList(ctx context.Context) ([]PublicProduct, error) {
	v, err, _ := s.flight.Do(publicCatalogKey, func() (interface{}, error) {
		var out []PublicProduct
		err := s.cache.FetchJSON(ctx, publicCatalogKey, &out, func(ctx context.Context) (interface{}, error) {
			active, err := s.repo.List(ctx, true)
			if err != nil {
				return nil, err
			}
			public := make([]PublicProduct, 0, len(active))
			for _, p := range active {
				public = append(public, PublicProduct{ID: p.ID, SKU: p.SKU, Name: p.Name, PriceB2B: p.PriceB2B})
			}
			return public, nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]PublicProduct), nil
}
