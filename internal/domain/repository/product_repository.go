package repository

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
