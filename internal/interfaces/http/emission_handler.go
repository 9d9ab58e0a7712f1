package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// EmissionHandler maneja las peticiones HTTP del pipeline de emisión.
type EmissionHandler struct {
	orchestrator *billing.EmissionOrchestrator
	audit        *billing.AuditUseCase
	ride         *billing.RIDEUseCase
}

// NewEmissionHandler construye el handler.
func NewEmissionHandler(orchestrator *billing.EmissionOrchestrator, audit *billing.AuditUseCase, ride *billing.RIDEUseCase) *EmissionHandler {
	return &EmissionHandler{orchestrator: orchestrator, audit: audit, ride: ride}
}

// Emit ejecuta un intento de emisión de la factura contra el SRI.
// POST /api/invoices/:id/emit
//
// La operación es idempotente frente a reintentos: ante SRI_UNAVAILABLE (502)
// el cliente puede repetir la llamada y el SRI verá el mismo comprobante.
func (h *EmissionHandler) Emit(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}

	result, err := h.orchestrator.SubmitInvoice(c.Context(), id, GetActor(c))
	if err != nil {
		// Devuelta / no autorizada: el desenlace quedó persistido, la
		// respuesta lleva los mensajes del SRI.
		if errors.Is(err, domain.ErrProtocolRejection) && result != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
				Code:    "SRI_REJECTED",
				Message: "comprobante " + result.State + " por el SRI",
				Details: result.Messages,
			})
		}
		return writeError(c, err)
	}
	return c.JSON(emissionResponse(result))
}

// Status devuelve el estado de emisión, la autorización vigente y la bitácora.
// GET /api/invoices/:id/emission
func (h *EmissionHandler) Status(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	status, err := h.audit.GetEmissionStatus(c.Context(), id, GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}

// RIDE genera y descarga la representación impresa en PDF.
// GET /api/invoices/:id/ride
func (h *EmissionHandler) RIDE(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	pdfBytes, err := h.ride.Generate(c.Context(), id, GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="ride-`+id+`.pdf"`)
	return c.Send(pdfBytes)
}

func emissionResponse(r *billing.EmissionResult) dto.EmissionResponse {
	return dto.EmissionResponse{
		InvoiceID:           r.InvoiceID,
		AccessKey:           r.AccessKey,
		State:               r.State,
		AuthorizationNumber: r.AuthorizationNumber,
		AuthorizedAt:        r.AuthorizedAt,
		Messages:            r.Messages,
	}
}
