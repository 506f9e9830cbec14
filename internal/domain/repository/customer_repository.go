package repository

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para Customer (comprador).
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
