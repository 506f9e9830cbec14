package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// Invoice representa la cabecera de una factura electrónica SRI (codDoc 01).
type Invoice struct {
	ID                string
	CompanyID         string
	CustomerID        string
	PointOfEmissionID string
	Date              time.Time
	Sequence          string // secuencial de 9 dígitos, asignado al emitir
	AccessKey         string // clave de acceso de 49 dígitos
	NetTotal          decimal.Decimal // totalSinImpuestos
	DiscountTotal     decimal.Decimal
	TaxTotal          decimal.Decimal
	Tip               decimal.Decimal // propina
	GrandTotal        decimal.Decimal // importeTotal
	PaymentMethodCode string          // formaPago (01 sin sistema financiero)
	SRIStatus         sri.State
	SRIError          string // último mensaje de rechazo o fallo
	XMLGenerated      string // xml_generado
	XMLSigned         string // xml_firmado
	XMLAuthorized     string // xml_autorizado (comprobante devuelto por el SRI)
	AuthorizedAt      *time.Time
	NotifiedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DocumentNumber número visible 001-001-000000123.
func (i *Invoice) DocumentNumber(estab, ptoEmi string) string {
	return estab + "-" + ptoEmi + "-" + i.Sequence
}
