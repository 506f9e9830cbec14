package sri_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleDocument() *sri.TaxDocument {
	iva := sri.TaxLine{Code: "2", RateCode: "4", Rate: d("15"), Base: d("50.00"), Amount: d("7.50")}
	iva0 := sri.TaxLine{Code: "2", RateCode: "0", Rate: d("0"), Base: d("100.00"), Amount: d("0.00")}
	return &sri.TaxDocument{
		Environment:   "1",
		EmissionType:  "1",
		DocType:       "01",
		Establishment: "001",
		EmissionPoint: "001",
		Sequence:      "000000001",
		AccessKey:     "1503202501179000000000110010010000000011234567815",
		IssueDate:     time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		Currency:      "DOLAR",
		Issuer: sri.Issuer{
			RUC:         "1790000000001",
			LegalName:   "Compañía Ejemplo S.A.",
			MainAddress: "Av. Amazonas y Colón",
		},
		Buyer: sri.Buyer{IDType: "05", ID: "1712345678", Name: "José Pérez", Email: "jose@example.com"},
		Totals: sri.Totals{
			Subtotal:   d("150.00"),
			Discount:   d("0.00"),
			Taxes:      []sri.TaxLine{iva0, iva},
			TaxTotal:   d("7.50"),
			Tip:        d("0.00"),
			GrandTotal: d("157.50"),
		},
		Items: []sri.LineItem{
			{ProductCode: "SERV-1", Description: "Asesoría", Quantity: d("1"), UnitPrice: d("100"), Discount: d("0"), Subtotal: d("100.00"), Taxes: []sri.TaxLine{iva0}},
			{ProductCode: "PROD-2", Description: "Cuaderno", Quantity: d("2"), UnitPrice: d("25"), Discount: d("0"), Subtotal: d("50.00"), Taxes: []sri.TaxLine{iva}},
		},
		Payments:   []sri.Payment{{MethodCode: "01", Total: d("157.50")}},
		Additional: []sri.AdditionalField{{Name: "Email", Value: "jose@example.com"}},
	}
}

func childTags(el *etree.Element) []string {
	var out []string
	for _, c := range el.ChildElements() {
		out = append(out, c.Tag)
	}
	return out
}

func TestXMLBuilder_EstructuraYOrden(t *testing.T) {
	out, err := infrasri.NewXMLBuilderService().Build(sampleDocument())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?><factura id="comprobante" version="1.1.0">`))
	assert.NotContains(t, string(out), "\n", "sin indentación")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, []string{"infoTributaria", "infoFactura", "detalles", "infoAdicional"}, childTags(root))

	assert.Equal(t, []string{
		"ambiente", "tipoEmision", "razonSocial", "ruc", "claveAcceso", "codDoc",
		"estab", "ptoEmi", "secuencial", "dirMatriz",
	}, childTags(root.SelectElement("infoTributaria")))

	assert.Equal(t, []string{
		"fechaEmision", "dirEstablecimiento", "obligadoContabilidad", "tipoIdentificacionComprador",
		"razonSocialComprador", "identificacionComprador", "totalSinImpuestos", "totalDescuento",
		"totalConImpuestos", "propina", "importeTotal", "moneda", "pagos",
	}, childTags(root.SelectElement("infoFactura")))

	info := root.SelectElement("infoFactura")
	assert.Equal(t, "15/03/2025", info.SelectElement("fechaEmision").Text())
	assert.Equal(t, "150.00", info.SelectElement("totalSinImpuestos").Text())
	assert.Equal(t, "157.50", info.SelectElement("importeTotal").Text())
	assert.Equal(t, "NO", info.SelectElement("obligadoContabilidad").Text())
	assert.Equal(t, "DOLAR", info.SelectElement("moneda").Text())
}

func TestXMLBuilder_FormatosDeDetalle(t *testing.T) {
	out, err := infrasri.NewXMLBuilderService().Build(sampleDocument())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	detalles := doc.FindElements("//detalles/detalle")
	require.Len(t, detalles, 2)

	second := detalles[1]
	assert.Equal(t, "2.0000", second.SelectElement("cantidad").Text())
	assert.Equal(t, "25.0000", second.SelectElement("precioUnitario").Text())
	assert.Equal(t, "50.00", second.SelectElement("precioTotalSinImpuesto").Text())
	imp := second.FindElement("impuestos/impuesto")
	require.NotNil(t, imp)
	assert.Equal(t, []string{"codigo", "codigoPorcentaje", "tarifa", "baseImponible", "valor"}, childTags(imp))
	assert.Equal(t, "4", imp.SelectElement("codigoPorcentaje").Text())
	assert.Equal(t, "15", imp.SelectElement("tarifa").Text())
	assert.Equal(t, "7.50", imp.SelectElement("valor").Text())

	first := detalles[0]
	assert.Equal(t, "0", first.FindElement("impuestos/impuesto/codigoPorcentaje").Text())
}

func TestXMLBuilder_CantidadFraccionaria(t *testing.T) {
	doc := sampleDocument()
	doc.Items[1].Quantity = d("2.125")
	doc.Items[1].UnitPrice = d("20")
	doc.Items[1].Subtotal = d("42.50")

	out, err := infrasri.NewXMLBuilderService().Build(doc)
	require.NoError(t, err)

	parsed := etree.NewDocument()
	require.NoError(t, parsed.ReadFromBytes(out))
	second := parsed.FindElements("//detalles/detalle")[1]
	assert.Equal(t, "2.1250", second.SelectElement("cantidad").Text())
	assert.Equal(t, "20.0000", second.SelectElement("precioUnitario").Text())
	assert.Equal(t, "42.50", second.SelectElement("precioTotalSinImpuesto").Text())
}

var errDisco = errors.New("disco lleno")

type failingWriter struct{ writes int }

func (w *failingWriter) Write([]byte) (int, error) {
	w.writes++
	return 0, errDisco
}

func TestXMLBuilder_BuildToPropagaErrorDeEscritura(t *testing.T) {
	doc := sampleDocument()
	for i := 0; i < 60; i++ {
		doc.Items = append(doc.Items, doc.Items[0])
	}

	w := &failingWriter{}
	err := infrasri.NewXMLBuilderService().BuildTo(w, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisco)
	assert.Equal(t, 1, w.writes, "no se sigue escribiendo tras el primer error")
}

func TestXMLBuilder_NormalizaNFC(t *testing.T) {
	doc := sampleDocument()
	doc.Buyer.Name = "Jose\u0301 Pe\u0301rez" // forma descompuesta
	out, err := infrasri.NewXMLBuilderService().Build(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<razonSocialComprador>José Pérez</razonSocialComprador>")
}

func TestXMLBuilder_Deterministico(t *testing.T) {
	b := infrasri.NewXMLBuilderService()
	a1, err := b.Build(sampleDocument())
	require.NoError(t, err)
	a2, err := b.Build(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestXMLBuilder_Nulo(t *testing.T) {
	_, err := infrasri.NewXMLBuilderService().Build(nil)
	assert.Error(t, err)
}

func TestTaxDocument_ValidateAceptaMuestra(t *testing.T) {
	assert.NoError(t, sampleDocument().Validate())
}

func TestTaxDocument_ValidateDetectaTotales(t *testing.T) {
	doc := sampleDocument()
	doc.Totals.GrandTotal = d("150.00")
	err := doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importeTotal")
}
