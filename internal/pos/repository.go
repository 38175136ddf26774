package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/shared"
)

// Repository persists point-of-sale transactions.
type Repository interface {
	Create(ctx context.Context, t Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, partnerID *string, from, to time.Time) ([]Transaction, error)
	Stats(ctx context.Context, partnerID *string, from, to time.Time) (*Stats, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, t Transaction) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO pos_transactions (id, partner_id, payment_method, subtotal, vat_amount, total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.PartnerID, t.PaymentMethod,
			db.DecimalToNumeric(t.Subtotal), db.DecimalToNumeric(t.VATAmount), db.DecimalToNumeric(t.Total))
		if err != nil {
			return err
		}
		for _, line := range t.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO pos_transaction_lines (id, transaction_id, product_id, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				line.ID, line.TransactionID, line.ProductID, line.Quantity,
				db.DecimalToNumeric(line.UnitPrice), db.DecimalToNumeric(line.Subtotal))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const transactionColumns = `id, partner_id, payment_method, subtotal, vat_amount, total, created_at`

func (r *repository) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM pos_transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction", shared.ErrNotFound)
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, product_id, quantity, unit_price, subtotal
		FROM pos_transaction_lines WHERE transaction_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line TransactionLine
		var unitPrice, subtotal pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.TransactionID, &line.ProductID, &line.Quantity, &unitPrice, &subtotal); err != nil {
			return nil, err
		}
		line.UnitPrice = db.NumericToDecimal(unitPrice)
		line.Subtotal = db.NumericToDecimal(subtotal)
		t.Lines = append(t.Lines, line)
	}
	return t, rows.Err()
}

func (r *repository) List(ctx context.Context, partnerID *string, from, to time.Time) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM pos_transactions WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{from, to}
	if partnerID != nil {
		query += ` AND partner_id = $3`
		args = append(args, *partnerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *repository) Stats(ctx context.Context, partnerID *string, from, to time.Time) (*Stats, error) {
	query := `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM pos_transactions WHERE created_at >= $1 AND created_at < $2`
	args := []interface{}{from, to}
	if partnerID != nil {
		query += ` AND partner_id = $3`
		args = append(args, *partnerID)
	}
	query += ` GROUP BY payment_method ORDER BY payment_method`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{From: from, To: to}
	for rows.Next() {
		var s PaymentStats
		var total pgtype.Numeric
		if err := rows.Scan(&s.PaymentMethod, &s.Count, &total); err != nil {
			return nil, err
		}
		s.Total = db.NumericToDecimal(total)
		stats.ByPayment = append(stats.ByPayment, s)
		stats.Count += s.Count
		stats.Total = stats.Total.Add(s.Total)
	}
	return stats, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var subtotal, vat, total pgtype.Numeric
	err := row.Scan(&t.ID, &t.PartnerID, &t.PaymentMethod, &subtotal, &vat, &total, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Subtotal = db.NumericToDecimal(subtotal)
	t.VATAmount = db.NumericToDecimal(vat)
	t.Total = db.NumericToDecimal(total)
	return &t, nil
}
