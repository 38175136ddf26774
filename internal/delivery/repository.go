package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/shared"
)

// Repository persists deliveries.
type Repository interface {
	Get(ctx context.Context, id string) (*Delivery, error)
	GetByOrder(ctx context.Context, orderID string) (*Delivery, error)
	List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, error)
	Create(ctx context.Context, d Delivery) error
	Assign(ctx context.Context, id, driverID string) error
	SetStatus(ctx context.Context, id string, status Status) error
	Complete(ctx context.Context, id string, signatureKey *string, photoKeys []string, at time.Time) error
	Fail(ctx context.Context, id, reason string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const deliveryColumns = `id, order_id, status, driver_id, scheduled_date, signature_key, photo_keys,
	failure_reason, completed_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Delivery, error) {
	return scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
}

func (r *repository) GetByOrder(ctx context.Context, orderID string) (*Delivery, error) {
	return scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1`, orderID))
}

func (r *repository) List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1
	if req.DriverID != nil {
		conditions = append(conditions, fmt.Sprintf("driver_id = $%d", argPos))
		args = append(args, *req.DriverID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.Date != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_date = $%d", argPos))
		args = append(args, *req.Date)
	}

	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE ` + conditions[0]
	for i := 1; i < len(conditions); i++ {
		query += " AND " + conditions[i]
	}
	query += " ORDER BY scheduled_date, created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDeliveryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, d Delivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO deliveries (id, order_id, status, scheduled_date)
		VALUES ($1, $2, $3, $4)`,
		d.ID, d.OrderID, d.Status, d.ScheduledDate)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: order %s already has a delivery", shared.ErrConflict, d.OrderID)
	}
	return err
}

func (r *repository) Assign(ctx context.Context, id, driverID string) error {
	return r.exec(ctx, id, `UPDATE deliveries SET driver_id = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		id, driverID, StatusAssigned)
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status) error {
	return r.exec(ctx, id, `UPDATE deliveries SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

func (r *repository) Complete(ctx context.Context, id string, signatureKey *string, photoKeys []string, at time.Time) error {
	return r.exec(ctx, id, `
		UPDATE deliveries SET status = $2, signature_key = $3, photo_keys = $4, completed_at = $5, updated_at = NOW()
		WHERE id = $1`, id, StatusCompleted, signatureKey, photoKeys, at)
}

func (r *repository) Fail(ctx context.Context, id, reason string) error {
	return r.exec(ctx, id, `UPDATE deliveries SET status = $2, failure_reason = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusFailed, reason)
}

func (r *repository) exec(ctx context.Context, id, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: delivery %s", shared.ErrNotFound, id)
	}
	return nil
}

func scanDelivery(row pgx.Row) (*Delivery, error) {
	d, err := scanDeliveryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: delivery", shared.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func scanDeliveryRow(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.Status, &d.DriverID, &d.ScheduledDate, &d.SignatureKey,
		&d.PhotoKeys, &d.FailureReason, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
