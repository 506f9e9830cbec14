// Package pdf implementa el RIDE (Representación Impresa del Documento Electrónico)
// de la factura autorizada por el SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social + RUC  │  FACTURA N° + Autorización    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Dirección matriz / establecimiento / contabilidad           │
//	│  COMPRADOR: Nombre + identificación + fecha de emisión      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Código | Cant | Descripción | P.Unit | Desc | Total  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotales por tarifa / IVA / Propina / TOTAL      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLAVE DE ACCESO: código de barras + dígitos                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ appbilling.RIDEGenerator = (*MarotoRIDEGenerator)(nil)

// MarotoRIDEGenerator implementa billing.RIDEGenerator usando Maroto v2.
type MarotoRIDEGenerator struct{}

// NewMarotoRIDEGenerator construye el generador.
func NewMarotoRIDEGenerator() *MarotoRIDEGenerator { return &MarotoRIDEGenerator{} }

// GenerateRIDE genera el PDF y devuelve sus bytes.
func (g *MarotoRIDEGenerator) GenerateRIDE(_ context.Context, data appbilling.RIDEData) ([]byte, error) {
	if data.Invoice == nil || data.Company == nil || data.Customer == nil || data.Point == nil {
		return nil, fmt.Errorf("pdf: datos incompletos para el RIDE")
	}
	inv, company := data.Invoice, data.Company

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("RIDE Factura "+inv.DocumentNumber(data.Point.Establishment, data.Point.EmissionPoint), true).
		WithAuthor(company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(issuerRow(company, data.Point))
	m.AddRows(buyerRow(inv, data.Customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(data.Lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv, data.Lines))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range accessKeyRows(inv, company) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + RUC (izq) y número de factura + autorización (der).
func headerRow(data appbilling.RIDEData) core.Row {
	inv, company := data.Invoice, data.Company
	authorized := "PENDIENTE DE AUTORIZACIÓN"
	if inv.SRIStatus == sri.StateAuthorized && inv.AuthorizedAt != nil {
		authorized = "Autorización: " + inv.AuthorizedAt.Format("02/01/2006 15:04:05")
	}

	return row.New(22).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(company.TradeName, ""), props.Text{
				Size: 9, Top: 8, Color: colorGray,
			}),
			text.New("R.U.C.: "+company.RUC, props.Text{
				Size: 9, Top: 13, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("No. "+inv.DocumentNumber(data.Point.Establishment, data.Point.EmissionPoint), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New(authorized, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// issuerRow: direcciones y obligación de llevar contabilidad.
func issuerRow(company *entity.Company, point *entity.PointOfEmission) core.Row {
	accounting := "NO"
	if company.RequiredAccounting {
		accounting = "SI"
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Dir. Matriz: %s   |   Dir. Establecimiento: %s",
				nonEmpty(company.Address, "-"),
				nonEmpty(point.EstablishmentAddress, company.Address),
			), props.Text{Size: 8, Top: 6, Color: colorGray}),
			text.New(fmt.Sprintf("Obligado a llevar contabilidad: %s   |   Tel: %s   |   Email: %s",
				accounting,
				nonEmpty(company.Phone, "-"),
				nonEmpty(company.Email, "-"),
			), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

// buyerRow: datos del comprador.
func buyerRow(inv *entity.Invoice, customer *entity.Customer) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("COMPRADOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(customer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Identificación: %s   |   Fecha de emisión: %s   |   Email: %s",
				customer.TaxID,
				inv.Date.Format("02/01/2006"),
				nonEmpty(customer.Email, "-"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cód.", 2, align.Left),
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Desc.", 1, align.Right),
		h("Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea de detalle.
func tableDetailRows(lines []appbilling.RIDELine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(l.ProductCode, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(1).Add(text.New(l.Quantity.StringFixed(2), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(l.ProductName, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money(l.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(money(l.Discount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(money(l.Subtotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalsRow: subtotales por tarifa, IVA, propina y total.
func totalsRow(inv *entity.Invoice, lines []appbilling.RIDELine) core.Row {
	taxed, zero := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.TaxAmount.IsZero() {
			zero = zero.Add(l.Subtotal)
		} else {
			taxed = taxed.Add(l.Subtotal)
		}
	}

	labels := []string{"SUBTOTAL IVA:", "SUBTOTAL 0%:", "DESCUENTO:", "IVA:", "PROPINA:", "VALOR TOTAL:"}
	values := []decimal.Decimal{taxed, zero, inv.DiscountTotal, inv.TaxTotal, inv.Tip, inv.GrandTotal}

	lc, vc := col.New(3), col.New(3)
	for i := range labels {
		top := float64(i * 5)
		l := text.New(labels[i], props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
		v := text.New(money(values[i]), props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
		if i == len(labels)-1 {
			l = text.New(labels[i], props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 2, Top: top, Color: colorPrimary})
			v = text.New(money(values[i]), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 1, Top: top, Color: colorPrimary})
		}
		lc.Add(l)
		vc.Add(v)
	}
	return row.New(32).Add(col.New(6), lc, vc)
}

// accessKeyRows: código de barras de la clave de acceso + ambiente + leyenda.
func accessKeyRows(inv *entity.Invoice, company *entity.Company) []core.Row {
	env := "PRUEBAS"
	if company.Environment == pkgsri.EnvironmentProduction {
		env = "PRODUCCIÓN"
	}

	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("CLAVE DE ACCESO / NÚMERO DE AUTORIZACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	if inv.AccessKey != "" {
		rows = append(rows,
			row.New(14).Add(col.New(12).Add(code.NewBar(inv.AccessKey, props.Barcode{
				Percent: 90,
				Center:  true,
			}))),
			row.New(5).Add(col.New(12).Add(
				text.New(inv.AccessKey, props.Text{Size: 8, Align: align.Center, Top: 1}),
			)),
		)
	}
	rows = append(rows, row.New(8).Add(
		col.New(6).Add(text.New("Ambiente: "+env, props.Text{Size: 8, Top: 2, Color: colorGray})),
		col.New(6).Add(text.New("Emisión: NORMAL", props.Text{Size: 8, Top: 2, Align: align.Right, Color: colorGray})),
	))
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Documento generado electrónicamente y autorizado por el Servicio de Rentas Internas. "+
				"Consulte su validez en www.sri.gob.ec con la clave de acceso.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// money formatea con 2 decimales y separador de miles: 1234.5 → "$1,234.50".
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := false
	if s[0] == '-' {
		neg, s = true, s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	out := "$" + string(buf) + frac
	if neg {
		out = "-" + out
	}
	return out
}
