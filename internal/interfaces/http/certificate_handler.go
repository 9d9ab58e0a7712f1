package http

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// CertificateHandler administra el certificado de firma de cada empresa.
type CertificateHandler struct {
	uc *billing.CertificateUseCase
}

// NewCertificateHandler construye el handler.
func NewCertificateHandler(uc *billing.CertificateUseCase) *CertificateHandler {
	return &CertificateHandler{uc: uc}
}

// Upload carga el certificado de firma (.p12/.pfx o PEM) de la empresa.
// PUT /api/companies/:id/certificate
func (h *CertificateHandler) Upload(c *fiber.Ctx) error {
	companyID := c.Params("id")
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de empresa requerido"})
	}
	var in dto.UploadCertificateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	bundle, err := base64.StdEncoding.DecodeString(in.CertificateBase64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "certificate_base64 no es base64 válido"})
	}

	status, err := h.uc.Upload(c.Context(), billing.UploadInput{
		CompanyID:  companyID,
		Bundle:     bundle,
		Passphrase: in.Passphrase,
		Ambiente:   in.Ambiente,
	}, GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(status)
}

// Status devuelve la metadata del certificado activo (sin material sensible).
// GET /api/companies/:id/certificate
func (h *CertificateHandler) Status(c *fiber.Ctx) error {
	companyID := c.Params("id")
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de empresa requerido"})
	}
	status, err := h.uc.Status(c.Context(), companyID, GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}
