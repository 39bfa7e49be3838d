package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmehra2102/checkout-service/internal/catalog/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, price, created_at) VALUES ($1, $2::numeric, $3) RETURNING id`,
		p.Name, p.Price.String(), p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return domain.Product{}, err
	}
	r.log.Info("product created", "product_id", p.ID)
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, price::text, created_at FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price::text, created_at FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &price, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = d
	return p, nil
}
