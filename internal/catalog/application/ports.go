package application

import (
	"context"

	"github.com/dmehra2102/checkout-service/internal/catalog/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}
