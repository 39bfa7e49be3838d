package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

var hundred = decimal.NewFromInt(100)

type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
}

func NewProduct(name string, price decimal.Decimal) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if !price.Equal(price.Truncate(2)) {
		return Product{}, fmt.Errorf("%w: price has more than two decimal places", ErrInvalidProduct)
	}
	return Product{
		Name:      name,
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnitAmount is the price in minor currency units, rounded down.
func (p Product) UnitAmount() int64 {
	return p.Price.Mul(hundred).Floor().IntPart()
}
