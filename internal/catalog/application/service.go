package application

import (
	"context"

	"github.com/dmehra2102/checkout-service/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo ProductRepository
}

func NewService(repo ProductRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// Get returns domain.ErrProductNotFound when id does not exist.
func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, name string, price decimal.Decimal) (domain.Product, error) {
	p, err := domain.NewProduct(name, price)
	if err != nil {
		return domain.Product{}, err
	}
	return s.repo.Create(ctx, p)
}
