package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	Create(ctx context.Context, o Order) error
	InsertLine(ctx context.Context, line OrderLine) error
	DeleteLines(ctx context.Context, orderID string) error
	UpdateHeader(ctx context.Context, o Order) error
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	SetApproval(ctx context.Context, id string, approved bool, status OrderStatus) error
	NextOrderNumber(ctx context.Context, day time.Time) (string, error)
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

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const orderColumns = `id, order_number, partner_id, user_id, status, requested_date, delivery_type, on_site_time,
	is_urgent, urgent_reason, urgent_approved, deadline_type, requires_approval,
	subtotal, vat_amount, total, notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	lines, err := r.getLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.PartnerID != nil {
		conditions = append(conditions, fmt.Sprintf("partner_id = $%d", argPos))
		args = append(args, *req.PartnerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT "+orderColumns+" FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, order_number, partner_id, user_id, status, requested_date, delivery_type, on_site_time,
			is_urgent, urgent_reason, urgent_approved, deadline_type, requires_approval, subtotal, vat_amount, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.OrderNumber, o.PartnerID, o.UserID, o.Status, o.RequestedDate, o.DeliveryType, o.OnSiteTime,
		o.IsUrgent, o.UrgentReason, o.UrgentApproved, o.DeadlineType, o.RequiresApproval,
		db.DecimalToNumeric(o.Subtotal), db.DecimalToNumeric(o.VATAmount), db.DecimalToNumeric(o.Total), o.Notes,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: order number %s already taken", shared.ErrConflict, o.OrderNumber)
	}
	return err
}

func (r *repository) InsertLine(ctx context.Context, line OrderLine) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		line.ID, line.OrderID, line.ProductID, line.Quantity,
		db.DecimalToNumeric(line.UnitPrice), db.DecimalToNumeric(line.Subtotal),
	)
	return err
}

func (r *repository) DeleteLines(ctx context.Context, orderID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID)
	return err
}

func (r *repository) UpdateHeader(ctx context.Context, o Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET requested_date = $2, deadline_type = $3, requires_approval = $4, status = $5,
		    subtotal = $6, vat_amount = $7, total = $8, notes = $9, updated_at = NOW()
		WHERE id = $1`,
		o.ID, o.RequestedDate, o.DeadlineType, o.RequiresApproval, o.Status,
		db.DecimalToNumeric(o.Subtotal), db.DecimalToNumeric(o.VATAmount), db.DecimalToNumeric(o.Total), o.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", shared.ErrNotFound, o.ID)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) SetApproval(ctx context.Context, id string, approved bool, status OrderStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET urgent_approved = $2, requires_approval = FALSE, status = $3, updated_at = NOW()
		WHERE id = $1`, id, approved, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", shared.ErrNotFound, id)
	}
	return nil
}

// NextOrderNumber allocates ORD-YYYYMMDD-NNNN from a per-day counter row.
// The upsert takes a row lock, so concurrent creations serialize here and
// never hand out the same sequence. Gaps can appear when a creation rolls
// back; that is accepted.
func (r *repository) NextOrderNumber(ctx context.Context, day time.Time) (string, error) {
	var seq int
	err := r.db.QueryRow(ctx, `
		INSERT INTO order_counters (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_counters.seq + 1
		RETURNING seq`, day.Format("2006-01-02"),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq), nil
}

func (r *repository) getLines(ctx context.Context, orderID string) ([]OrderLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var line OrderLine
		var unitPrice, subtotal pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &unitPrice, &subtotal); err != nil {
			return nil, err
		}
		line.UnitPrice = db.NumericToDecimal(unitPrice)
		line.Subtotal = db.NumericToDecimal(subtotal)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var subtotal, vat, total pgtype.Numeric
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PartnerID, &o.UserID, &o.Status, &o.RequestedDate,
		&o.DeliveryType, &o.OnSiteTime, &o.IsUrgent, &o.UrgentReason, &o.UrgentApproved,
		&o.DeadlineType, &o.RequiresApproval, &subtotal, &vat, &total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order", shared.ErrNotFound)
		}
		return nil, err
	}
	o.Subtotal = db.NumericToDecimal(subtotal)
	o.VATAmount = db.NumericToDecimal(vat)
	o.Total = db.NumericToDecimal(total)
	return &o, nil
}
