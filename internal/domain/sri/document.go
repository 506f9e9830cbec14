// Package sri modela el comprobante electrónico (factura 1.1.0), su ciclo de vida
// y la taxonomía de errores del pipeline de emisión.
package sri

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ErrInvalidDocument agrupa errores de forma del comprobante.
var ErrInvalidDocument = errors.New("comprobante inválido para SRI")

// TaxLine desglose tipado de un impuesto (reemplaza los mapas libres de impuestos).
type TaxLine struct {
	Code     string          // codigo (2 = IVA)
	RateCode string          // codigoPorcentaje (4 = 15%)
	Rate     decimal.Decimal // tarifa en porcentaje (15)
	Base     decimal.Decimal // baseImponible
	Amount   decimal.Decimal // valor
}

// LineItem detalle del comprobante con valores ya redondeados por línea.
type LineItem struct {
	ProductCode string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Subtotal    decimal.Decimal // precioTotalSinImpuesto
	Taxes       []TaxLine
}

// Issuer datos del emisor (infoTributaria).
type Issuer struct {
	RUC                  string
	LegalName            string // razonSocial
	TradeName            string // nombreComercial (opcional)
	MainAddress          string // dirMatriz
	EstablishmentAddress string // dirEstablecimiento
	RequiredAccounting   bool   // obligadoContabilidad
}

// Buyer datos del comprador.
type Buyer struct {
	IDType  string
	ID      string
	Name    string
	Address string
	Email   string
	Phone   string
}

// Payment forma de pago (pagos/pago).
type Payment struct {
	MethodCode string
	Total      decimal.Decimal
}

// Totals totales del comprobante.
type Totals struct {
	Subtotal   decimal.Decimal // totalSinImpuestos
	Discount   decimal.Decimal // totalDescuento
	Taxes      []TaxLine       // totalConImpuestos, agrupado por (codigo, codigoPorcentaje)
	TaxTotal   decimal.Decimal
	Tip        decimal.Decimal // propina
	GrandTotal decimal.Decimal // importeTotal
}

// AdditionalField campoAdicional de infoAdicional.
type AdditionalField struct {
	Name  string
	Value string
}

// TaxDocument comprobante electrónico listo para serializar.
type TaxDocument struct {
	Environment   string
	EmissionType  string
	DocType       string
	Establishment string
	EmissionPoint string
	Sequence      string
	AccessKey     string
	IssueDate     time.Time
	Currency      string
	Issuer        Issuer
	Buyer         Buyer
	Totals        Totals
	Items         []LineItem
	Payments      []Payment
	Additional    []AdditionalField
}

// Validate verifica la forma del comprobante una sola vez, al construirlo.
func (d *TaxDocument) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: documento nulo", ErrInvalidDocument)
	}
	var errs []error

	if err := pkgsri.ValidateAccessKey(d.AccessKey); err != nil {
		errs = append(errs, err)
	}
	if !pkgsri.ValidEnvironments[d.Environment] {
		errs = append(errs, fmt.Errorf("ambiente %q no soportado", d.Environment))
	}
	if len(d.Establishment) != 3 || len(d.EmissionPoint) != 3 {
		errs = append(errs, fmt.Errorf("estab/ptoEmi deben tener 3 dígitos (%q-%q)", d.Establishment, d.EmissionPoint))
	}
	if len(d.Sequence) != 9 {
		errs = append(errs, fmt.Errorf("secuencial debe tener 9 dígitos, se recibió %q", d.Sequence))
	}
	if len(d.Issuer.RUC) != 13 {
		errs = append(errs, fmt.Errorf("RUC del emisor debe tener 13 dígitos"))
	}
	if d.Issuer.LegalName == "" || d.Issuer.MainAddress == "" {
		errs = append(errs, fmt.Errorf("razonSocial y dirMatriz son obligatorios"))
	}
	if d.Buyer.ID == "" || d.Buyer.Name == "" {
		errs = append(errs, fmt.Errorf("identificación y razón social del comprador son obligatorias"))
	}
	if len(d.Items) == 0 {
		errs = append(errs, fmt.Errorf("%w: el comprobante debe tener al menos un detalle", ErrInvalidDocument))
	}

	var sumSubtotal, sumTax decimal.Decimal
	for i, it := range d.Items {
		if it.Quantity.Sign() <= 0 {
			errs = append(errs, fmt.Errorf("detalle %d: cantidad debe ser positiva", i+1))
		}
		if it.UnitPrice.Sign() < 0 || it.Discount.Sign() < 0 {
			errs = append(errs, fmt.Errorf("detalle %d: precio y descuento no pueden ser negativos", i+1))
		}
		if len(it.Taxes) == 0 {
			errs = append(errs, fmt.Errorf("detalle %d: sin impuestos", i+1))
		}
		for _, tl := range it.Taxes {
			if tl.Code == "" || tl.RateCode == "" {
				errs = append(errs, fmt.Errorf("detalle %d: impuesto sin codigo/codigoPorcentaje", i+1))
			}
			sumTax = sumTax.Add(tl.Amount)
		}
		sumSubtotal = sumSubtotal.Add(it.Subtotal)
	}
	if !d.Totals.Subtotal.Equal(sumSubtotal) {
		errs = append(errs, fmt.Errorf("totalSinImpuestos (%s) no coincide con la suma de detalles (%s)", d.Totals.Subtotal, sumSubtotal))
	}
	if !d.Totals.TaxTotal.Equal(sumTax) {
		errs = append(errs, fmt.Errorf("total de impuestos (%s) no coincide con la suma por línea (%s)", d.Totals.TaxTotal, sumTax))
	}
	expected := sumSubtotal.Add(sumTax).Add(d.Totals.Tip)
	if !d.Totals.GrandTotal.Equal(expected) {
		errs = append(errs, fmt.Errorf("importeTotal (%s) no coincide con subtotal + impuestos + propina (%s)", d.Totals.GrandTotal, expected))
	}

	return errors.Join(errs...)
}
