package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/shared"
)

// Repository persists return requests.
type Repository interface {
	Get(ctx context.Context, id string) (*Return, error)
	List(ctx context.Context, req ListReturnsRequest) ([]Return, error)
	Create(ctx context.Context, ret Return) error
	SetStatus(ctx context.Context, id string, status Status) error
	MarkProcessed(ctx context.Context, id string, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const returnColumns = `id, partner_id, order_id, status, reason, photo_keys, processed_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Return, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns WHERE id = $1`, id)
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: return", shared.ErrNotFound)
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, return_id, product_id, quantity, restock
		FROM return_items WHERE return_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item ReturnItem
		if err := rows.Scan(&item.ID, &item.ReturnID, &item.ProductID, &item.Quantity, &item.Restock); err != nil {
			return nil, err
		}
		ret.Items = append(ret.Items, item)
	}
	return ret, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListReturnsRequest) ([]Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE TRUE`
	var args []interface{}
	argPos := 1
	if req.PartnerID != nil {
		query += fmt.Sprintf(" AND partner_id = $%d", argPos)
		args = append(args, *req.PartnerID)
		argPos++
	}
	if req.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ret)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, ret Return) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO returns (id, partner_id, order_id, status, reason, photo_keys)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ret.ID, ret.PartnerID, ret.OrderID, ret.Status, ret.Reason, ret.PhotoKeys)
		if err != nil {
			return err
		}
		for _, item := range ret.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO return_items (id, return_id, product_id, quantity, restock)
				VALUES ($1, $2, $3, $4, $5)`,
				item.ID, item.ReturnID, item.ProductID, item.Quantity, item.Restock)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE returns SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: return %s", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE returns SET status = $2, processed_at = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusProcessed, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: return %s", shared.ErrNotFound, id)
	}
	return nil
}

func scanReturn(row pgx.Row) (*Return, error) {
	var ret Return
	err := row.Scan(&ret.ID, &ret.PartnerID, &ret.OrderID, &ret.Status, &ret.Reason, &ret.PhotoKeys,
		&ret.ProcessedAt, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}
