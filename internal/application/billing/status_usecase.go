package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

// XMLKind cuerpo XML almacenado.
type XMLKind string

const (
	XMLGenerated  XMLKind = "generated"
	XMLSigned     XMLKind = "signed"
	XMLAuthorized XMLKind = "authorized"
)

// StatusUseCase consultas de solo lectura sobre el estado SRI de una factura.
type StatusUseCase struct {
	invoiceRepo repository.InvoiceRepository
}

// NewStatusUseCase construye el caso de uso.
func NewStatusUseCase(invoiceRepo repository.InvoiceRepository) *StatusUseCase {
	return &StatusUseCase{invoiceRepo: invoiceRepo}
}

func (uc *StatusUseCase) get(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("estado: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

// GetSRIStatus estado, último error, clave de acceso y fecha de autorización.
func (uc *StatusUseCase) GetSRIStatus(ctx context.Context, companyID, invoiceID string) (*dto.InvoiceSRIStatusDTO, error) {
	inv, err := uc.get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	return &dto.InvoiceSRIStatusDTO{
		ID:           inv.ID,
		SRIStatus:    inv.SRIStatus.String(),
		Terminal:     inv.SRIStatus.IsTerminal(),
		AccessKey:    inv.AccessKey,
		Sequence:     inv.Sequence,
		Error:        inv.SRIError,
		AuthorizedAt: inv.AuthorizedAt,
		NotifiedAt:   inv.NotifiedAt,
	}, nil
}

// GetXML devuelve el cuerpo solicitado y el nombre de archivo sugerido.
// domain.ErrNotFound si ese cuerpo aún no existe.
func (uc *StatusUseCase) GetXML(ctx context.Context, companyID, invoiceID string, kind XMLKind) (string, string, error) {
	inv, err := uc.get(ctx, companyID, invoiceID)
	if err != nil {
		return "", "", err
	}
	var body string
	switch kind {
	case XMLGenerated, "":
		body = inv.XMLGenerated
	case XMLSigned:
		body = inv.XMLSigned
	case XMLAuthorized:
		body = inv.XMLAuthorized
	default:
		return "", "", fmt.Errorf("%w: kind debe ser generated, signed o authorized", domain.ErrInvalidInput)
	}
	if body == "" {
		return "", "", fmt.Errorf("%w: la factura no tiene XML %s", domain.ErrNotFound, kind)
	}
	return body, XMLFilename(inv.Sequence), nil
}
