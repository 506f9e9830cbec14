package http

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
)

// maxKeystoreSize los .p12 de las AC ecuatorianas pesan pocos KB.
const maxKeystoreSize = 1 << 20

// CertificateUploader rota el certificado de firma. Lo implementa *billing.CertificateUseCase.
type CertificateUploader interface {
	Upload(ctx context.Context, companyID string, p12 []byte, password string) (*dto.CertificateResponse, error)
}

// CertificateHandler carga del keystore de la empresa (solo admin).
type CertificateHandler struct {
	uc CertificateUploader
}

// NewCertificateHandler construye el handler.
func NewCertificateHandler(uc CertificateUploader) *CertificateHandler {
	return &CertificateHandler{uc: uc}
}

// Upload godoc
// @Summary      Subir certificado de firma
// @Description  Reemplaza el keystore PKCS#12 de la empresa. Las firmas siguientes usan el nuevo.
// @Tags         company
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        p12       formData  file    true  "keystore .p12"
// @Param        password  formData  string  true  "contraseña del keystore"
// @Success      200  {object}  dto.CertificateResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/company/certificate [put]
func (h *CertificateHandler) Upload(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	fh, err := c.FormFile("p12")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "archivo p12 requerido"})
	}
	if fh.Size > maxKeystoreSize {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "keystore demasiado grande"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "no se pudo leer el archivo"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxKeystoreSize))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "no se pudo leer el archivo"})
	}

	out, err := h.uc.Upload(c.UserContext(), companyID, data, c.FormValue("password"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
