package partners

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/shared"
)

// Repository persists partners in PostgreSQL.
type Repository interface {
	Get(ctx context.Context, id string) (*Partner, error)
	List(ctx context.Context, activeOnly bool) ([]Partner, error)
	Create(ctx context.Context, p Partner) error
	Update(ctx context.Context, p Partner) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const partnerColumns = `id, type, name, address, city, phone, email, fixed_delivery_days, order_deadline_time, order_deadline_days, payment_method, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Partner, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id)
	return scanPartner(row)
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners ORDER BY name ASC`
	if activeOnly {
		query = `SELECT ` + partnerColumns + ` FROM partners WHERE is_active ORDER BY name ASC`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Partner) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO partners (id, type, name, address, city, phone, email, fixed_delivery_days, order_deadline_time, order_deadline_days, payment_method, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Type, p.Name, p.Address, p.City, p.Phone, p.Email, p.FixedDeliveryDays, p.OrderDeadlineTime, p.OrderDeadlineDays, p.PaymentMethod, p.IsActive,
	)
	return err
}

func (r *repository) Update(ctx context.Context, p Partner) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE partners
		SET name = $2, address = $3, city = $4, phone = $5, email = $6,
		    fixed_delivery_days = $7, order_deadline_time = $8, order_deadline_days = $9,
		    payment_method = $10, is_active = $11, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Address, p.City, p.Phone, p.Email, p.FixedDeliveryDays, p.OrderDeadlineTime, p.OrderDeadlineDays, p.PaymentMethod, p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: partner %s", shared.ErrNotFound, p.ID)
	}
	return nil
}

func scanPartner(row pgx.Row) (*Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.Type, &p.Name, &p.Address, &p.City, &p.Phone, &p.Email,
		&p.FixedDeliveryDays, &p.OrderDeadlineTime, &p.OrderDeadlineDays, &p.PaymentMethod,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: partner", shared.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}
