package billing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// KeystoreStore guarda los .p12 subidos por las empresas.
type KeystoreStore interface {
	Save(companyID string, data []byte) (path string, err error)
	Remove(path string) error
}

// KeystoreLoader abre y verifica un keystore (signer.LoadFromP12).
type KeystoreLoader func(path, password string) (tls.Certificate, error)

// CertificateCache invalida el certificado descifrado de una empresa.
type CertificateCache interface {
	Invalidate(companyID string)
}

// CertificateUseCase rota el certificado de firma de una empresa.
type CertificateUseCase struct {
	companies repository.CompanyRepository
	store     KeystoreStore
	load      KeystoreLoader
	cache     CertificateCache
	now       func() time.Time
}

// NewCertificateUseCase construye el caso de uso.
func NewCertificateUseCase(companies repository.CompanyRepository, store KeystoreStore, load KeystoreLoader, cache CertificateCache) *CertificateUseCase {
	return &CertificateUseCase{companies: companies, store: store, load: load, cache: cache, now: time.Now}
}

// Upload guarda el keystore, verifica que abra con la contraseña y que el certificado esté
// vigente, y solo entonces lo registra como versión nueva. Las facturas que se firmen
// después usan el certificado nuevo.
//
// Retorna domain.ErrInvalidInput si el keystore no abre, el par no corresponde o está vencido.
func (uc *CertificateUseCase) Upload(ctx context.Context, companyID string, p12 []byte, password string) (*dto.CertificateResponse, error) {
	if len(p12) == 0 {
		return nil, fmt.Errorf("%w: keystore vacío", domain.ErrInvalidInput)
	}
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("certificado: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	path, err := uc.store.Save(companyID, p12)
	if err != nil {
		return nil, fmt.Errorf("certificado: guardar keystore: %w", err)
	}

	leaf, err := uc.verify(path, password)
	if err != nil {
		_ = uc.store.Remove(path)
		return nil, err
	}

	version, err := uc.companies.UpdateCertificate(ctx, companyID, path, password)
	if err != nil {
		_ = uc.store.Remove(path)
		return nil, fmt.Errorf("certificado: registrar: %w", err)
	}
	uc.cache.Invalidate(companyID)

	return &dto.CertificateResponse{
		Version:  version,
		Subject:  leaf.Subject.String(),
		Issuer:   leaf.Issuer.String(),
		Serial:   leaf.SerialNumber.String(),
		NotAfter: leaf.NotAfter,
	}, nil
}

func (uc *CertificateUseCase) verify(path, password string) (*x509.Certificate, error) {
	cert, err := uc.load(path, password)
	if err != nil {
		var se *sri.SigningError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, se.Reason)
		}
		return nil, err
	}
	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return nil, fmt.Errorf("%w: el keystore no contiene certificado", domain.ErrInvalidInput)
		}
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("%w: certificado ilegible", domain.ErrInvalidInput)
		}
	}
	if uc.now().After(leaf.NotAfter) {
		return nil, fmt.Errorf("%w: certificado vencido el %s", domain.ErrInvalidInput, leaf.NotAfter.Format("02/01/2006"))
	}
	return leaf, nil
}
