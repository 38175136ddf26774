package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/shared"
)

// Repository persists products in PostgreSQL.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]Product, error)
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, sku, barcode, name, price_b2b, shelf_life_days, min_stock_alert, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	return scanProduct(row)
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name ASC`
	if activeOnly {
		query = `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY name ASC`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, sku, barcode, name, price_b2b, shelf_life_days, min_stock_alert, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.SKU, p.Barcode, p.Name, db.DecimalToNumeric(p.PriceB2B), p.ShelfLifeDays, p.MinStockAlert, p.IsActive,
	)
	return mapUniqueViolation(err)
}

func (r *repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, price_b2b = $3, shelf_life_days = $4, min_stock_alert = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, db.DecimalToNumeric(p.PriceB2B), p.ShelfLifeDays, p.MinStockAlert, p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s", shared.ErrNotFound, p.ID)
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price pgtype.Numeric
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &price, &p.ShelfLifeDays, &p.MinStockAlert, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product", shared.ErrNotFound)
		}
		return nil, err
	}
	p.PriceB2B = db.NumericToDecimal(price)
	return &p, nil
}

func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "products_sku_key":
			return fmt.Errorf("%w: SKU already exists", shared.ErrConflict)
		case "products_barcode_key":
			return fmt.Errorf("%w: barcode already exists", shared.ErrConflict)
		}
		return fmt.Errorf("%w: duplicate product", shared.ErrConflict)
	}
	return err
}
