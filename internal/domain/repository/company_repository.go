package repository

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// UpdateCertificate guarda ruta y contraseña del .p12 e incrementa cert_version.
	UpdateCertificate(ctx context.Context, id, path, password string) (int, error)
}
