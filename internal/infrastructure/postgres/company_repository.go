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

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación de CompanyRepository.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	id, name, COALESCE(trade_name, ''), ruc, address, COALESCE(phone, ''), COALESCE(email, ''),
	environment, required_accounting, iva_rate, iva_rate_code,
	COALESCE(cert_path, ''), COALESCE(cert_password, ''), cert_version,
	status, created_at, updated_at`

func scanCompany(row pgxScanner) (*entity.Company, error) {
	var c entity.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.TradeName, &c.RUC, &c.Address, &c.Phone, &c.Email,
		&c.Environment, &c.RequiredAccounting, &c.IVARate, &c.IVARateCode,
		&c.CertPath, &c.CertPassword, &c.CertVersion,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	c, err := scanCompany(r.q.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

// UpdateCertificate registra un nuevo keystore y devuelve la nueva versión.
func (r *CompanyRepo) UpdateCertificate(ctx context.Context, id, path, password string) (int, error) {
	const q = `
		UPDATE companies
		SET cert_path = $2, cert_password = $3, cert_version = cert_version + 1, updated_at = now()
		WHERE id = $1
		RETURNING cert_version`
	var version int
	if err := r.q.QueryRow(ctx, q, id, path, password).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("update certificate: %w", err)
	}
	return version, nil
}
