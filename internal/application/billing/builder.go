package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// Tarifa IVA por defecto cuando la empresa no tiene una configurada.
var (
	DefaultIVARate     = decimal.NewFromInt(15)
	DefaultIVARateCode = pkgsri.IVARateCode15
)

var hundred = decimal.NewFromInt(100)

// BuildLine detalle de la factura con su producto.
type BuildLine struct {
	Detail  *entity.InvoiceDetail
	Product *entity.Product
}

// BuildInput datos para construir el comprobante. Sequence y AccessKey ya vienen asignados.
type BuildInput struct {
	Company   *entity.Company
	Point     *entity.PointOfEmission
	Customer  *entity.Customer
	Invoice   *entity.Invoice
	Lines     []BuildLine
	Sequence  string
	AccessKey string
}

// DocumentBuilder arma el sri.TaxDocument a partir de las entidades.
// Redondea cada línea a 2 decimales antes de sumar.
type DocumentBuilder struct{}

// NewDocumentBuilder construye el builder.
func NewDocumentBuilder() *DocumentBuilder { return &DocumentBuilder{} }

// Precheck valida lo que no depende del secuencial, para no consumir uno en vano.
func (b *DocumentBuilder) Precheck(in BuildInput) error {
	var errs []error
	if in.Company == nil || in.Point == nil || in.Customer == nil || in.Invoice == nil {
		return fmt.Errorf("%w: empresa, punto de emisión, cliente y factura son obligatorios", domain.ErrInvalidInput)
	}
	if len(in.Company.RUC) != 13 {
		errs = append(errs, errors.New("RUC de la empresa debe tener 13 dígitos"))
	}
	if !pkgsri.ValidEnvironments[in.Company.Environment] {
		errs = append(errs, fmt.Errorf("ambiente %q no soportado", in.Company.Environment))
	}
	if !in.Point.IsActive {
		errs = append(errs, errors.New("punto de emisión inactivo"))
	}
	if in.Customer.TaxID == "" || in.Customer.Name == "" {
		errs = append(errs, errors.New("el cliente debe tener identificación y nombre"))
	}
	if len(in.Lines) == 0 {
		errs = append(errs, errors.New("la factura no tiene detalles"))
	}
	for i, l := range in.Lines {
		if l.Detail == nil || l.Product == nil {
			errs = append(errs, fmt.Errorf("detalle %d: producto no encontrado", i+1))
			continue
		}
		if l.Detail.Quantity.Sign() <= 0 {
			errs = append(errs, fmt.Errorf("detalle %d: cantidad debe ser positiva", i+1))
		}
		if l.Detail.UnitPrice.Sign() < 0 || l.Detail.Discount.Sign() < 0 {
			errs = append(errs, fmt.Errorf("detalle %d: precio y descuento no pueden ser negativos", i+1))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Build calcula montos por línea, agrupa impuestos y valida la forma del comprobante.
func (b *DocumentBuilder) Build(in BuildInput) (*sri.TaxDocument, error) {
	if err := b.Precheck(in); err != nil {
		return nil, err
	}
	company, inv := in.Company, in.Invoice

	rate, rateCode := company.IVARate, company.IVARateCode
	if rate.IsZero() || rateCode == "" {
		rate, rateCode = DefaultIVARate, DefaultIVARateCode
	}

	var (
		items       = make([]sri.LineItem, 0, len(in.Lines))
		groups      []sri.TaxLine
		subtotalSum = decimal.Zero
		discountSum = decimal.Zero
		taxSum      = decimal.Zero
	)
	addToGroup := func(tl sri.TaxLine) {
		for i := range groups {
			if groups[i].Code == tl.Code && groups[i].RateCode == tl.RateCode {
				groups[i].Base = groups[i].Base.Add(tl.Base)
				groups[i].Amount = groups[i].Amount.Add(tl.Amount)
				return
			}
		}
		groups = append(groups, tl)
	}

	for _, l := range in.Lines {
		d, p := l.Detail, l.Product
		// Cantidad y precio con la misma precisión con la que se serializan.
		qty, price := d.Quantity.Round(4), d.UnitPrice.Round(4)
		subtotal := roundMoney(qty.Mul(price).Sub(d.Discount))

		tl := sri.TaxLine{
			Code:     pkgsri.TaxCodeIVA,
			RateCode: pkgsri.IVARateCode0,
			Rate:     decimal.Zero,
			Base:     subtotal,
			Amount:   decimal.Zero,
		}
		if p.Taxable {
			tl.RateCode = rateCode
			tl.Rate = rate
			tl.Amount = roundMoney(subtotal.Mul(rate).Div(hundred))
		}

		description := p.Name
		if description == "" {
			description = p.Description
		}
		code := p.SKU
		if code == "" {
			code = p.ID
		}
		items = append(items, sri.LineItem{
			ProductCode: code,
			Description: description,
			Quantity:    qty,
			UnitPrice:   price,
			Discount:    d.Discount,
			Subtotal:    subtotal,
			Taxes:       []sri.TaxLine{tl},
		})
		addToGroup(tl)
		subtotalSum = subtotalSum.Add(subtotal)
		discountSum = discountSum.Add(d.Discount)
		taxSum = taxSum.Add(tl.Amount)
	}

	tip := inv.Tip.Round(2)
	grand := subtotalSum.Add(taxSum).Add(tip)

	method := inv.PaymentMethodCode
	if method == "" {
		method = pkgsri.PaymentSinSistemaFinanciero
	}

	issueDate := inv.Date
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	cust := in.Customer
	doc := &sri.TaxDocument{
		Environment:   company.Environment,
		EmissionType:  pkgsri.EmissionTypeNormal,
		DocType:       pkgsri.DocTypeFactura,
		Establishment: in.Point.Establishment,
		EmissionPoint: in.Point.EmissionPoint,
		Sequence:      in.Sequence,
		AccessKey:     in.AccessKey,
		IssueDate:     issueDate,
		Currency:      pkgsri.CurrencyDolar,
		Issuer: sri.Issuer{
			RUC:                  company.RUC,
			LegalName:            company.Name,
			TradeName:            company.TradeName,
			MainAddress:          company.Address,
			EstablishmentAddress: in.Point.EstablishmentAddress,
			RequiredAccounting:   company.RequiredAccounting,
		},
		Buyer: sri.Buyer{
			IDType:  pkgsri.BuyerIDType(cust.TaxID),
			ID:      cust.TaxID,
			Name:    cust.Name,
			Address: cust.Address,
			Email:   cust.Email,
			Phone:   cust.Phone,
		},
		Totals: sri.Totals{
			Subtotal:   subtotalSum,
			Discount:   discountSum.Round(2),
			Taxes:      groups,
			TaxTotal:   taxSum,
			Tip:        tip,
			GrandTotal: grand,
		},
		Items:      items,
		Payments:   []sri.Payment{{MethodCode: method, Total: grand}},
		Additional: additionalFields(cust),
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return doc, nil
}

func additionalFields(c *entity.Customer) []sri.AdditionalField {
	var out []sri.AdditionalField
	if c.Email != "" {
		out = append(out, sri.AdditionalField{Name: "Email", Value: c.Email})
	}
	if c.Phone != "" {
		out = append(out, sri.AdditionalField{Name: "Teléfono", Value: c.Phone})
	}
	if c.Address != "" {
		out = append(out, sri.AdditionalField{Name: "Dirección", Value: c.Address})
	}
	return out
}

// roundMoney redondea a centavos con mitad al par, igual que el recálculo del SRI.
func roundMoney(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(2)
}
