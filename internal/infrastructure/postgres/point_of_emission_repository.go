package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

var _ repository.PointOfEmissionRepository = (*PointOfEmissionRepo)(nil)

// PointOfEmissionRepo implementa PointOfEmissionRepository sobre PostgreSQL.
type PointOfEmissionRepo struct {
	q Querier
}

// NewPointOfEmissionRepository construye el repositorio. NextSequence debe usarse con el
// pool (autocommit) para que la reserva no dependa de la transacción de emisión.
func NewPointOfEmissionRepository(q Querier) *PointOfEmissionRepo {
	return &PointOfEmissionRepo{q: q}
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanPointOfEmission(row pgxScanner) (*entity.PointOfEmission, error) {
	var p entity.PointOfEmission
	var seq int64
	err := row.Scan(&p.ID, &p.CompanyID, &p.Establishment, &p.EmissionPoint,
		&p.EstablishmentAddress, &seq, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.InvoiceSequence = uint64(seq)
	return &p, nil
}

func (r *PointOfEmissionRepo) GetByID(ctx context.Context, id string) (*entity.PointOfEmission, error) {
	const q = `
		SELECT id, company_id, establishment, emission_point, COALESCE(establishment_address, ''),
		       invoice_sequence, is_active, created_at, updated_at
		FROM points_of_emission WHERE id = $1`
	p, err := scanPointOfEmission(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get point_of_emission: %w", err)
	}
	return p, nil
}

// NextSequence incrementa y devuelve el valor previo en una sola sentencia: dos emisiones
// concurrentes nunca obtienen el mismo secuencial.
func (r *PointOfEmissionRepo) NextSequence(ctx context.Context, id string) (uint64, error) {
	const q = `
		UPDATE points_of_emission
		SET invoice_sequence = invoice_sequence + 1, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING invoice_sequence - 1`
	var seq int64
	if err := r.q.QueryRow(ctx, q, id).Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("punto de emisión %s inexistente o inactivo: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return uint64(seq), nil
}
