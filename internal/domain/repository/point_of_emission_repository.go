package repository

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

// PointOfEmissionRepository define el puerto de persistencia para puntos de emisión.
type PointOfEmissionRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PointOfEmission, error)

	// NextSequence reserva el siguiente secuencial de forma atómica y devuelve el valor
	// reservado. Nunca se revierte: un fallo posterior deja un hueco, no un duplicado.
	NextSequence(ctx context.Context, id string) (uint64, error)
}
