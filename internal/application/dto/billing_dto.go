package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssueInvoiceResponse respuesta de POST /api/invoices/:id/issue.
type IssueInvoiceResponse struct {
	ID             string          `json:"id"`
	SRIStatus      string          `json:"sri_status"`
	AccessKey      string          `json:"clave_acceso"`
	Sequence       string          `json:"secuencial"`
	DocumentNumber string          `json:"numero,omitempty"` // 001-001-000000123
	NetTotal       decimal.Decimal `json:"total_sin_impuestos"`
	TaxTotal       decimal.Decimal `json:"total_iva"`
	GrandTotal     decimal.Decimal `json:"importe_total"`
}

// InvoiceSRIStatusDTO respuesta ligera para GET /api/invoices/:id/sri.
// El frontend consulta este endpoint hasta que sri_status sea AUTHORIZED, REJECTED o FAILED.
type InvoiceSRIStatusDTO struct {
	ID           string     `json:"id"`
	SRIStatus    string     `json:"sri_status"` // BUILT|SIGNED|SCHEMA_VALID|SUBMITTED|PENDING|AUTHORIZED|REJECTED|FAILED
	Terminal     bool       `json:"terminal"`
	AccessKey    string     `json:"clave_acceso,omitempty"`
	Sequence     string     `json:"secuencial,omitempty"`
	Error        string     `json:"sri_error,omitempty"` // mensaje del XSD o del SRI, sin cambios
	AuthorizedAt *time.Time `json:"fecha_autorizacion,omitempty"`
	NotifiedAt   *time.Time `json:"fecha_notificacion,omitempty"`
}

// MessageResponse respuesta simple con un mensaje.
type MessageResponse struct {
	Message string `json:"message"`
}

// CertificateResponse respuesta de PUT /api/company/certificate.
type CertificateResponse struct {
	Version  int       `json:"version"`
	Subject  string    `json:"subject"`
	Issuer   string    `json:"issuer"`
	Serial   string    `json:"serial"`
	NotAfter time.Time `json:"vence"`
}
