package repository

import (
	"context"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// StatusUpdate campos que acompañan una transición de estado SRI. nil = no se toca.
type StatusUpdate struct {
	XMLSigned     *string
	XMLAuthorized *string
	AuthorizedAt  *time.Time
	SRIError      *string
}

// InvoiceRepository define el puerto de persistencia para Invoice y detalles.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)

	// GetForUpdate bloquea la fila (SELECT ... FOR UPDATE). Solo tiene sentido dentro de una tx.
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)

	// SaveBuilt persiste secuencial, clave de acceso, totales y xml_generado, y mueve
	// DRAFT → BUILT. Devuelve domain.ErrStaleState si la factura ya no está en DRAFT.
	SaveBuilt(ctx context.Context, invoice *entity.Invoice) error
	// UpdateDetailAmounts guarda subtotal e IVA redondeados por línea.
	UpdateDetailAmounts(ctx context.Context, detail *entity.InvoiceDetail) error

	// Transition compare-and-swap del estado SRI (UPDATE ... WHERE id AND sri_status = from).
	// Devuelve domain.ErrStaleState si otra ejecución ya movió el estado.
	Transition(ctx context.Context, id string, from, to sri.State, upd StatusUpdate) error
	// UpdateSignedXML refresca xml_firmado sin cambiar el estado (reintento de envío).
	UpdateSignedXML(ctx context.Context, id string, from sri.State, xmlSigned string) error
	// MarkNotified fija notified_at una única vez. Devuelve false si ya estaba notificada.
	MarkNotified(ctx context.Context, id string, at time.Time) (bool, error)
	// ClearNotified permite el reenvío manual del correo.
	ClearNotified(ctx context.Context, id string) error
}
