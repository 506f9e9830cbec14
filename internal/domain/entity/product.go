package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o servicio facturable.
type Product struct {
	ID          string
	CompanyID   string
	SKU         string // codigoPrincipal, único por empresa
	Name        string
	Description string
	Price       decimal.Decimal
	Taxable     bool // graba IVA a la tarifa de la empresa; false = IVA 0%
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
