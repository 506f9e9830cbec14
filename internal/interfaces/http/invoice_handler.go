package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// InvoiceIssuer emite y reenvía facturas. Lo implementa *billing.Orchestrator.
type InvoiceIssuer interface {
	Issue(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error)
	Resend(ctx context.Context, companyID, invoiceID string) error
}

// InvoiceStatusReader estado SRI y documentos XML. Lo implementa *billing.StatusUseCase.
type InvoiceStatusReader interface {
	GetSRIStatus(ctx context.Context, companyID, invoiceID string) (*dto.InvoiceSRIStatusDTO, error)
	GetXML(ctx context.Context, companyID, invoiceID string, kind billing.XMLKind) (string, string, error)
}

// RIDEDownloader PDF de la factura. Lo implementa *billing.PDFUseCase.
type RIDEDownloader interface {
	DownloadRIDE(ctx context.Context, companyID, invoiceID string) ([]byte, string, error)
}

// InvoiceHandler maneja las peticiones HTTP de facturación electrónica (protegido).
type InvoiceHandler struct {
	issuer InvoiceIssuer
	status InvoiceStatusReader
	ride   RIDEDownloader
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(issuer InvoiceIssuer, status InvoiceStatusReader, ride RIDEDownloader) *InvoiceHandler {
	return &InvoiceHandler{issuer: issuer, status: status, ride: ride}
}

// Issue godoc
// @Summary      Emitir factura
// @Description  Asigna secuencial y clave de acceso, genera el XML y encola el envío al SRI.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la factura"
// @Success      202  {object}  dto.IssueInvoiceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/issue [post]
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	companyID, id, ok := scope(c)
	if !ok {
		return nil
	}
	inv, err := h.issuer.Issue(c.UserContext(), companyID, id)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.IssueInvoiceResponse{
		ID:         inv.ID,
		SRIStatus:  inv.SRIStatus.String(),
		AccessKey:  inv.AccessKey,
		Sequence:   inv.Sequence,
		NetTotal:   inv.NetTotal,
		TaxTotal:   inv.TaxTotal,
		GrandTotal: inv.GrandTotal,
	}
	if parts, err := pkgsri.ParseAccessKey(inv.AccessKey); err == nil {
		out.DocumentNumber = parts.DocumentNumber()
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

// GetSRIStatus godoc
// @Summary      Estado SRI de la factura
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceSRIStatusDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/sri [get]
func (h *InvoiceHandler) GetSRIStatus(c *fiber.Ctx) error {
	companyID, id, ok := scope(c)
	if !ok {
		return nil
	}
	out, err := h.status.GetSRIStatus(c.UserContext(), companyID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Resend godoc
// @Summary      Reenviar comprobante por correo
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la factura"
// @Success      202  {object}  dto.MessageResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/resend [post]
func (h *InvoiceHandler) Resend(c *fiber.Ctx) error {
	companyID, id, ok := scope(c)
	if !ok {
		return nil
	}
	if err := h.issuer.Resend(c.UserContext(), companyID, id); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.MessageResponse{Message: "reenvío agendado"})
}

// GetXML godoc
// @Summary      Descargar XML
// @Tags         invoices
// @Produce      application/xml
// @Security     BearerAuth
// @Param        id    path   string  true   "ID de la factura"
// @Param        kind  query  string  false  "generated | signed | authorized (por defecto authorized)"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/xml [get]
func (h *InvoiceHandler) GetXML(c *fiber.Ctx) error {
	companyID, id, ok := scope(c)
	if !ok {
		return nil
	}
	kind := billing.XMLKind(c.Query("kind", string(billing.XMLAuthorized)))
	body, filename, err := h.status.GetXML(c.UserContext(), companyID, id, kind)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.SendString(body)
}

// GetRIDE godoc
// @Summary      Descargar RIDE (PDF)
// @Tags         invoices
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la factura"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/ride [get]
func (h *InvoiceHandler) GetRIDE(c *fiber.Ctx) error {
	companyID, id, ok := scope(c)
	if !ok {
		return nil
	}
	pdf, filename, err := h.ride.DownloadRIDE(c.UserContext(), companyID, id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}

// scope extrae empresa e id; si faltan escribe la respuesta de error y devuelve ok=false.
func scope(c *fiber.Ctx) (companyID, id string, ok bool) {
	companyID = GetCompanyID(c)
	if companyID == "" {
		_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
		return "", "", false
	}
	id = c.Params("id")
	if id == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
		return "", "", false
	}
	return companyID, id, true
}

// writeError traduce errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	case errors.Is(err, domain.ErrNotAuthorized):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_AUTHORIZED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrStaleState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
