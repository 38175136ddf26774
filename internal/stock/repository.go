package stock

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
)

// OrderLineRef is the demand the ledger fulfills: one product, one quantity.
type OrderLineRef struct {
	ProductID string
	Quantity  int
}

// OrderRef is the slice of an order the ledger needs.
type OrderRef struct {
	ID          string
	OrderNumber string
	Status      string
	Lines       []OrderLineRef
}

// Repository persists lots and movements. FEFO-ordered reads take row locks
// so availability checks and reservation writes serialize per lot.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	GetLot(ctx context.Context, id string) (*Lot, error)
	GetLotForUpdate(ctx context.Context, id string) (*Lot, error)
	LotsForProductForUpdate(ctx context.Context, productID string) ([]Lot, error)
	ListLots(ctx context.Context, productID *string) ([]Lot, error)
	InsertLot(ctx context.Context, lot Lot) error
	SetLotQuantities(ctx context.Context, id string, quantity, reserved, initial int) error
	InsertMovement(ctx context.Context, m Movement) error
	ListMovements(ctx context.Context, lotID string) ([]Movement, error)
	GetOrder(ctx context.Context, orderID string) (*OrderRef, error)
	Summary(ctx context.Context, productID *string) ([]ProductSummary, error)
	LowStock(ctx context.Context) ([]LowStockAlert, error)
	ExpiringLots(ctx context.Context, before time.Time) ([]ExpiryAlert, error)
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

// NewTxRepository binds a Repository to an in-flight transaction, for
// modules that must create lots atomically with their own writes.
func NewTxRepository(tx pgx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const lotColumns = `id, product_id, batch_id, initial_quantity, quantity, reserved_quantity, purpose,
	production_date, expiry_date, created_at, updated_at`

func (r *repository) GetLot(ctx context.Context, id string) (*Lot, error) {
	return scanLot(r.db.QueryRow(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1`, id))
}

func (r *repository) GetLotForUpdate(ctx context.Context, id string) (*Lot, error) {
	return scanLot(r.db.QueryRow(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1 FOR UPDATE`, id))
}

// LotsForProductForUpdate returns the product's lots in FEFO order and locks
// them for the duration of the transaction. Expiry first, then production
// date, then creation order for ties.
func (r *repository) LotsForProductForUpdate(ctx context.Context, productID string) ([]Lot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+lotColumns+` FROM stock_lots
		WHERE product_id = $1
		ORDER BY expiry_date ASC, production_date ASC, created_at ASC, id ASC
		FOR UPDATE`, productID)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

func (r *repository) ListLots(ctx context.Context, productID *string) ([]Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots ORDER BY expiry_date ASC, production_date ASC, created_at ASC`
	var args []interface{}
	if productID != nil {
		query = `SELECT ` + lotColumns + ` FROM stock_lots WHERE product_id = $1
			ORDER BY expiry_date ASC, production_date ASC, created_at ASC`
		args = append(args, *productID)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

func (r *repository) InsertLot(ctx context.Context, lot Lot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO stock_lots (id, product_id, batch_id, initial_quantity, quantity, reserved_quantity, purpose, production_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		lot.ID, lot.ProductID, lot.BatchID, lot.InitialQuantity, lot.Quantity, lot.ReservedQuantity,
		lot.Purpose, lot.ProductionDate, lot.ExpiryDate)
	return err
}

func (r *repository) SetLotQuantities(ctx context.Context, id string, quantity, reserved, initial int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE stock_lots SET quantity = $2, reserved_quantity = $3, initial_quantity = $4, updated_at = NOW()
		WHERE id = $1`, id, quantity, reserved, initial)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: stock lot %s", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) InsertMovement(ctx context.Context, m Movement) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO stock_movements (id, lot_id, movement_type, quantity, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.LotID, m.Type, m.Quantity, m.Reference, m.Notes)
	return err
}

func (r *repository) ListMovements(ctx context.Context, lotID string) ([]Movement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, lot_id, movement_type, quantity, reference, notes, created_at
		FROM stock_movements WHERE lot_id = $1 ORDER BY created_at DESC`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.LotID, &m.Type, &m.Quantity, &m.Reference, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetOrder reads the order header and lines the ledger acts on. The orders
// module owns those tables; this is a deliberate read-only cross-module
// query, same as the reporting queries elsewhere.
func (r *repository) GetOrder(ctx context.Context, orderID string) (*OrderRef, error) {
	var ref OrderRef
	err := r.db.QueryRow(ctx, `SELECT id, order_number, status FROM orders WHERE id = $1`, orderID).
		Scan(&ref.ID, &ref.OrderNumber, &ref.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", shared.ErrNotFound, orderID)
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT product_id, quantity FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line OrderLineRef
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		ref.Lines = append(ref.Lines, line)
	}
	return &ref, rows.Err()
}

func (r *repository) Summary(ctx context.Context, productID *string) ([]ProductSummary, error) {
	query := `
		SELECT p.id, p.name,
		       COALESCE(SUM(l.quantity), 0),
		       COALESCE(SUM(l.reserved_quantity), 0),
		       MIN(l.expiry_date) FILTER (WHERE l.quantity > 0)
		FROM products p
		LEFT JOIN stock_lots l ON l.product_id = p.id
		WHERE p.is_active`
	var args []interface{}
	if productID != nil {
		query += ` AND p.id = $1`
		args = append(args, *productID)
	}
	query += ` GROUP BY p.id, p.name ORDER BY p.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductSummary
	for rows.Next() {
		var s ProductSummary
		if err := rows.Scan(&s.ProductID, &s.ProductName, &s.Quantity, &s.Reserved, &s.EarliestExpiry); err != nil {
			return nil, err
		}
		s.Available = s.Quantity - s.Reserved
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, COALESCE(SUM(l.quantity - l.reserved_quantity), 0) AS available, p.min_stock_alert
		FROM products p
		LEFT JOIN stock_lots l ON l.product_id = p.id
		WHERE p.is_active AND p.min_stock_alert > 0
		GROUP BY p.id, p.name, p.min_stock_alert
		HAVING COALESCE(SUM(l.quantity - l.reserved_quantity), 0) < p.min_stock_alert
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LowStockAlert
	for rows.Next() {
		var a LowStockAlert
		if err := rows.Scan(&a.ProductID, &a.ProductName, &a.Available, &a.Threshold); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) ExpiringLots(ctx context.Context, before time.Time) ([]ExpiryAlert, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.id, l.product_id, p.name, l.quantity, l.expiry_date
		FROM stock_lots l
		JOIN products p ON p.id = l.product_id
		WHERE l.quantity > 0 AND l.expiry_date <= $1
		ORDER BY l.expiry_date ASC`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpiryAlert
	for rows.Next() {
		var a ExpiryAlert
		if err := rows.Scan(&a.LotID, &a.ProductID, &a.ProductName, &a.Quantity, &a.ExpiryDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func collectLots(rows pgx.Rows) ([]Lot, error) {
	defer rows.Close()
	var out []Lot
	for rows.Next() {
		lot, err := scanLotRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lot)
	}
	return out, rows.Err()
}

func scanLot(row pgx.Row) (*Lot, error) {
	lot, err := scanLotRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: stock lot", shared.ErrNotFound)
		}
		return nil, err
	}
	return lot, nil
}

func scanLotRow(row pgx.Row) (*Lot, error) {
	var lot Lot
	err := row.Scan(&lot.ID, &lot.ProductID, &lot.BatchID, &lot.InitialQuantity, &lot.Quantity,
		&lot.ReservedQuantity, &lot.Purpose, &lot.ProductionDate, &lot.ExpiryDate, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &lot, nil
}
