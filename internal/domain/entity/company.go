package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company representa un emisor (contribuyente con RUC) del sistema multi-tenant.
type Company struct {
	ID                 string
	Name               string // razonSocial
	TradeName          string // nombreComercial
	RUC                string // 13 dígitos
	Address            string // dirMatriz
	Phone              string
	Email              string
	Environment        string // ambiente SRI: 1 pruebas, 2 producción
	RequiredAccounting bool   // obligadoContabilidad
	IVARate            decimal.Decimal // tarifa IVA vigente en porcentaje (15)
	IVARateCode        string          // codigoPorcentaje (4 = 15%)
	CertPath           string          // ruta del .p12
	CertPassword       string
	CertVersion        int // se incrementa al subir un certificado nuevo
	Status             string // active, suspended, inactive
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasCertificate true si la empresa puede firmar comprobantes.
func (c *Company) HasCertificate() bool {
	return c != nil && c.CertPath != ""
}
