package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/shared"
	"github.com/sdthai/backoffice/internal/stock"
)

// Repository persists production batches. WithTx also hands the callback a
// ledger repository bound to the same transaction, so batch completion and
// lot creation commit together.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository, stock.Repository) error) error
	Get(ctx context.Context, id string) (*Batch, error)
	GetForUpdate(ctx context.Context, id string) (*Batch, error)
	List(ctx context.Context, date *time.Time) ([]Batch, error)
	Create(ctx context.Context, b Batch) error
	InsertItem(ctx context.Context, item BatchItem) error
	SetStatus(ctx context.Context, id string, status BatchStatus) error
	Complete(ctx context.Context, id string, expiry time.Time) error
	SetActualQuantity(ctx context.Context, itemID string, quantity int) error
	NextBatchNumber(ctx context.Context, day time.Time) (string, error)
	ConfirmedDemand(ctx context.Context, date time.Time) ([]DemandRow, error)
}

// DemandRow is one confirmed order line feeding the planning view.
type DemandRow struct {
	ProductID   string
	ProductName string
	OrderID     string
	OrderNumber string
	Quantity    int
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository, stock.Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool}, stock.NewTxRepository(tx))
	})
}

const batchColumns = `id, batch_number, production_date, expiry_date, status, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Batch, error) {
	return r.get(ctx, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, id string) (*Batch, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *repository) get(ctx context.Context, id, suffix string) (*Batch, error) {
	row := r.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM production_batches WHERE id = $1`+suffix, id)
	b, err := scanBatch(row)
	if err != nil {
		return nil, err
	}
	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

func (r *repository) List(ctx context.Context, date *time.Time) ([]Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM production_batches ORDER BY production_date DESC, batch_number DESC`
	var args []interface{}
	if date != nil {
		query = `SELECT ` + batchColumns + ` FROM production_batches WHERE production_date = $1 ORDER BY batch_number`
		args = append(args, *date)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, b Batch) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO production_batches (id, batch_number, production_date, status)
		VALUES ($1, $2, $3, $4)`,
		b.ID, b.BatchNumber, b.ProductionDate, b.Status)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: batch number %s already taken", shared.ErrConflict, b.BatchNumber)
	}
	return err
}

func (r *repository) InsertItem(ctx context.Context, item BatchItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO production_batch_items (id, batch_id, product_id, planned_quantity)
		VALUES ($1, $2, $3, $4)`,
		item.ID, item.BatchID, item.ProductID, item.PlannedQuantity)
	return err
}

func (r *repository) SetStatus(ctx context.Context, id string, status BatchStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE production_batches SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: batch %s", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Complete(ctx context.Context, id string, expiry time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE production_batches SET status = $2, expiry_date = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusCompleted, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: batch %s", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) SetActualQuantity(ctx context.Context, itemID string, quantity int) error {
	_, err := r.db.Exec(ctx, `UPDATE production_batch_items SET actual_quantity = $2 WHERE id = $1`, itemID, quantity)
	return err
}

// NextBatchNumber allocates YYYYMMDD-NNN from a per-day counter, same scheme
// as order numbers.
func (r *repository) NextBatchNumber(ctx context.Context, day time.Time) (string, error) {
	var seq int
	err := r.db.QueryRow(ctx, `
		INSERT INTO batch_counters (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = batch_counters.seq + 1
		RETURNING seq`, day.Format("2006-01-02"),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next batch number: %w", err)
	}
	return fmt.Sprintf("%s-%03d", day.Format("20060102"), seq), nil
}

// ConfirmedDemand reads confirmed order lines for one delivery date. Pure
// read over the orders module's tables.
func (r *repository) ConfirmedDemand(ctx context.Context, date time.Time) ([]DemandRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ol.product_id, p.name, o.id, o.order_number, ol.quantity
		FROM orders o
		JOIN order_lines ol ON ol.order_id = o.id
		JOIN products p ON p.id = ol.product_id
		WHERE o.status = 'CONFIRMED' AND o.requested_date = $1
		ORDER BY p.name, o.order_number`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DemandRow
	for rows.Next() {
		var d DemandRow
		if err := rows.Scan(&d.ProductID, &d.ProductName, &d.OrderID, &d.OrderNumber, &d.Quantity); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) getItems(ctx context.Context, batchID string) ([]BatchItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, batch_id, product_id, planned_quantity, actual_quantity
		FROM production_batch_items WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BatchItem
	for rows.Next() {
		var item BatchItem
		if err := rows.Scan(&item.ID, &item.BatchID, &item.ProductID, &item.PlannedQuantity, &item.ActualQuantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.BatchNumber, &b.ProductionDate, &b.ExpiryDate, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: production batch", shared.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}
