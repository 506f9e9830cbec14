// Package sri implementa la serialización del comprobante (factura 1.1.0) y los clientes
// SOAP de los web services offline del SRI (Ecuador).
package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// XMLBuilderService construye el XML de la factura (sin firma XAdES).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del comprobante. Sin indentación: el digest de la firma
// se calcula sobre estos bytes canonicalizados.
func (s *XMLBuilderService) Build(doc *sri.TaxDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.BuildTo(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTo escribe el comprobante en w. Se detiene en el primer error de escritura.
func (s *XMLBuilderService) BuildTo(out io.Writer, doc *sri.TaxDocument) error {
	if doc == nil {
		return fmt.Errorf("sri: documento nulo")
	}
	w := &xmlWriter{enc: xml.NewEncoder(out)}

	w.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)})

	// Root <factura>. id="comprobante" es el URI de la referencia al documento en la firma.
	root := xml.StartElement{
		Name: xml.Name{Local: "factura"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: pkgsri.FacturaRootElementID},
			{Name: xml.Name{Local: "version"}, Value: pkgsri.FacturaSchemaVersion},
		},
	}
	w.token(root)
	s.writeInfoTributaria(w, doc)
	s.writeInfoFactura(w, doc)
	s.writeDetalles(w, doc)
	s.writeInfoAdicional(w, doc)
	w.token(root.End())

	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return fmt.Errorf("sri: serializar comprobante: %w", w.err)
	}
	return nil
}

func (s *XMLBuilderService) writeInfoTributaria(w *xmlWriter, doc *sri.TaxDocument) {
	w.start("infoTributaria")
	w.elem("ambiente", doc.Environment)
	w.elem("tipoEmision", doc.EmissionType)
	w.elem("razonSocial", doc.Issuer.LegalName)
	if doc.Issuer.TradeName != "" {
		w.elem("nombreComercial", doc.Issuer.TradeName)
	}
	w.elem("ruc", doc.Issuer.RUC)
	w.elem("claveAcceso", doc.AccessKey)
	w.elem("codDoc", doc.DocType)
	w.elem("estab", doc.Establishment)
	w.elem("ptoEmi", doc.EmissionPoint)
	w.elem("secuencial", doc.Sequence)
	w.elem("dirMatriz", doc.Issuer.MainAddress)
	w.end("infoTributaria")
}

func (s *XMLBuilderService) writeInfoFactura(w *xmlWriter, doc *sri.TaxDocument) {
	w.start("infoFactura")
	w.elem("fechaEmision", doc.IssueDate.Format("02/01/2006"))
	dirEstab := doc.Issuer.EstablishmentAddress
	if dirEstab == "" {
		dirEstab = doc.Issuer.MainAddress
	}
	w.elem("dirEstablecimiento", dirEstab)
	w.elem("obligadoContabilidad", siNo(doc.Issuer.RequiredAccounting))
	w.elem("tipoIdentificacionComprador", doc.Buyer.IDType)
	w.elem("razonSocialComprador", doc.Buyer.Name)
	w.elem("identificacionComprador", doc.Buyer.ID)
	if doc.Buyer.Address != "" {
		w.elem("direccionComprador", doc.Buyer.Address)
	}
	w.elem("totalSinImpuestos", formatDecimal(doc.Totals.Subtotal))
	w.elem("totalDescuento", formatDecimal(doc.Totals.Discount))

	w.start("totalConImpuestos")
	for _, t := range doc.Totals.Taxes {
		w.start("totalImpuesto")
		w.elem("codigo", t.Code)
		w.elem("codigoPorcentaje", t.RateCode)
		w.elem("baseImponible", formatDecimal(t.Base))
		w.elem("valor", formatDecimal(t.Amount))
		w.end("totalImpuesto")
	}
	w.end("totalConImpuestos")

	w.elem("propina", formatDecimal(doc.Totals.Tip))
	w.elem("importeTotal", formatDecimal(doc.Totals.GrandTotal))
	w.elem("moneda", doc.Currency)

	if len(doc.Payments) > 0 {
		w.start("pagos")
		for _, p := range doc.Payments {
			w.start("pago")
			w.elem("formaPago", p.MethodCode)
			w.elem("total", formatDecimal(p.Total))
			w.end("pago")
		}
		w.end("pagos")
	}
	w.end("infoFactura")
}

func (s *XMLBuilderService) writeDetalles(w *xmlWriter, doc *sri.TaxDocument) {
	w.start("detalles")
	for _, it := range doc.Items {
		w.start("detalle")
		w.elem("codigoPrincipal", it.ProductCode)
		w.elem("descripcion", it.Description)
		w.elem("cantidad", it.Quantity.Round(4).StringFixed(4))
		w.elem("precioUnitario", it.UnitPrice.Round(4).StringFixed(4))
		w.elem("descuento", formatDecimal(it.Discount))
		w.elem("precioTotalSinImpuesto", formatDecimal(it.Subtotal))
		w.start("impuestos")
		for _, t := range it.Taxes {
			w.start("impuesto")
			w.elem("codigo", t.Code)
			w.elem("codigoPorcentaje", t.RateCode)
			w.elem("tarifa", t.Rate.String())
			w.elem("baseImponible", formatDecimal(t.Base))
			w.elem("valor", formatDecimal(t.Amount))
			w.end("impuesto")
		}
		w.end("impuestos")
		w.end("detalle")
	}
	w.end("detalles")
}

func (s *XMLBuilderService) writeInfoAdicional(w *xmlWriter, doc *sri.TaxDocument) {
	if len(doc.Additional) == 0 {
		return
	}
	w.start("infoAdicional")
	for _, f := range doc.Additional {
		el := xml.StartElement{
			Name: xml.Name{Local: "campoAdicional"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "nombre"}, Value: norm.NFC.String(f.Name)}},
		}
		w.token(el)
		w.token(xml.CharData(norm.NFC.String(f.Value)))
		w.token(el.End())
	}
	w.end("infoAdicional")
}

// xmlWriter guarda el primer error de EncodeToken; los tokens siguientes se ignoran.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *xmlWriter) start(local string) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}})
}

func (w *xmlWriter) end(local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

// elem escribe <local>value</local> con el texto normalizado a NFC.
func (w *xmlWriter) elem(local, value string) {
	w.start(local)
	w.token(xml.CharData(norm.NFC.String(value)))
	w.end(local)
}

func siNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
