package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// rideLoader reúne factura, emisor, comprador, punto de emisión y detalles.
type rideLoader struct {
	invoices  repository.InvoiceRepository
	companies repository.CompanyRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	points    repository.PointOfEmissionRepository
}

func (l rideLoader) load(ctx context.Context, invoiceID string) (*RIDEData, error) {
	inv, err := l.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	company, err := l.companies.GetByID(ctx, inv.CompanyID)
	if err != nil || company == nil {
		return nil, fmt.Errorf("obtener empresa: %w", orNotFound(err))
	}
	customer, err := l.customers.GetByID(ctx, inv.CustomerID)
	if err != nil || customer == nil {
		return nil, fmt.Errorf("obtener cliente: %w", orNotFound(err))
	}
	point, err := l.points.GetByID(ctx, inv.PointOfEmissionID)
	if err != nil || point == nil {
		return nil, fmt.Errorf("obtener punto de emisión: %w", orNotFound(err))
	}
	lines, err := loadLines(ctx, l.invoices, l.products, inv.ID)
	if err != nil {
		return nil, err
	}

	out := make([]RIDELine, 0, len(lines))
	for _, bl := range lines {
		rl := RIDELine{InvoiceDetail: *bl.Detail, ProductName: "Producto " + bl.Detail.ProductID} // fallback
		if bl.Product != nil {
			rl.ProductCode, rl.ProductName = bl.Product.SKU, bl.Product.Name
		}
		out = append(out, rl)
	}
	return &RIDEData{Invoice: inv, Company: company, Customer: customer, Point: point, Lines: out}, nil
}

// loadLines detalles de la factura con su producto (nil si el producto ya no existe).
func loadLines(ctx context.Context, invoices repository.InvoiceRepository, products repository.ProductRepository, invoiceID string) ([]BuildLine, error) {
	details, err := invoices.GetDetailsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener detalles: %w", err)
	}
	out := make([]BuildLine, 0, len(details))
	for _, d := range details {
		p, err := products.GetByID(ctx, d.ProductID)
		if err != nil {
			return nil, fmt.Errorf("obtener producto %s: %w", d.ProductID, err)
		}
		out = append(out, BuildLine{Detail: d, Product: p})
	}
	return out, nil
}

// PDFUseCase genera el RIDE (representación impresa) de una factura electrónica.
// Solo se permite si la factura ya tiene clave de acceso (no está en DRAFT).
type PDFUseCase struct {
	loader    rideLoader
	generator RIDEGenerator
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	pointRepo repository.PointOfEmissionRepository,
	generator RIDEGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		loader:    rideLoader{invoiceRepo, companyRepo, customerRepo, productRepo, pointRepo},
		generator: generator,
	}
}

// DownloadRIDE recupera los datos de la factura y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe.
//   - domain.ErrForbidden        si la factura no pertenece a la empresa del token.
//   - domain.ErrInvalidInput     si la factura está en DRAFT (aún sin clave de acceso).
func (uc *PDFUseCase) DownloadRIDE(ctx context.Context, companyID, invoiceID string) (pdfBytes []byte, filename string, err error) {
	data, err := uc.loader.load(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	inv := data.Invoice
	if inv.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}
	if inv.SRIStatus == sri.StateDraft || inv.AccessKey == "" {
		return nil, "", fmt.Errorf("%w: la factura está en estado %s, emítala antes de descargar el RIDE",
			domain.ErrInvalidInput, inv.SRIStatus)
	}

	pdfBytes, err = uc.generator.GenerateRIDE(ctx, *data)
	if err != nil {
		return nil, "", fmt.Errorf("ride: generación fallida: %w", err)
	}
	return pdfBytes, RIDEFilename(inv.Sequence), nil
}

// RIDEFilename nombre del adjunto PDF (factura_<secuencial>.pdf).
func RIDEFilename(sequence string) string {
	return fmt.Sprintf("factura_%s.pdf", sequence)
}

// XMLFilename nombre del adjunto XML (factura_<secuencial>.xml).
func XMLFilename(sequence string) string {
	return fmt.Sprintf("factura_%s.xml", sequence)
}
