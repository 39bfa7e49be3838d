package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmehra2102/checkout-service/internal/order/domain"
	"github.com/dmehra2102/checkout-service/pkg/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const orderColumns = `id, customer_email, product_id, stripe_session_id, stripe_payment_intent, amount_cents, has_paid, created_at, updated_at`

// stripe_payment_intent is NULL until the payment is confirmed.
const selectOrder = `SELECT id, customer_email, product_id, stripe_session_id, COALESCE(stripe_payment_intent, ''),
	amount_cents, has_paid, created_at, updated_at FROM orders`

func (r *Repository) Create(ctx context.Context, o domain.Order, event outbox.Envelope) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
				VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9)`,
		o.ID, o.CustomerEmail, o.ProductID, o.StripeSessionID, o.StripePaymentIntent, o.AmountCents, o.HasPaid, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) FindByPaymentIntent(ctx context.Context, intentID string) (domain.Order, error) {
	if intentID == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.findOne(ctx, selectOrder+` WHERE stripe_payment_intent=$1`, intentID)
}

func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	return r.findOne(ctx, selectOrder+` WHERE stripe_session_id=$1`, sessionID)
}

func (r *Repository) findOne(ctx context.Context, query, arg string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, err
}

// Save updates the mutable columns of an existing order by id.
func (r *Repository) Save(ctx context.Context, o domain.Order, events ...outbox.Envelope) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET stripe_payment_intent=NULLIF($2,''), has_paid=$3, updated_at=$4 WHERE id=$1`,
		o.ID, o.StripePaymentIntent, o.HasPaid, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	for _, ev := range events {
		if err = insertOutbox(ctx, tx, ev); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.CustomerEmail, &o.ProductID, &o.StripeSessionID, &o.StripePaymentIntent,
		&o.AmountCents, &o.HasPaid, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func insertOutbox(ctx context.Context, tx pgx.Tx, ev outbox.Envelope) error {
	headers := ev.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, headers, ev.Traceparent)
	return err
}
