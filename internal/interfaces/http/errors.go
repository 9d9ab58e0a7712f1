package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// writeError traduce un error de dominio a la respuesta HTTP uniforme. Los
// errores del pipeline mantienen códigos estables para que el cliente pueda
// distinguir reintentable (SRI_UNAVAILABLE) de definitivo (SRI_REJECTED).
func writeError(c *fiber.Ctx, err error, details ...string) error {
	status, code, message := classify(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: message, Details: details})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED", "no autorizado"
	case errors.Is(err, domain.ErrAlreadyAuthorized):
		return fiber.StatusConflict, "ALREADY_AUTHORIZED", "la factura ya está autorizada"
	case errors.Is(err, domain.ErrIncompleteInvoice):
		return fiber.StatusUnprocessableEntity, "INCOMPLETE_INVOICE", err.Error()
	case errors.Is(err, domain.ErrInvalidField):
		return fiber.StatusUnprocessableEntity, "VALIDATION", err.Error()
	case errors.Is(err, domain.ErrConfigurationMissing):
		return fiber.StatusPreconditionFailed, "CERTIFICATE_MISSING", "la empresa no tiene certificado de firma configurado"
	case errors.Is(err, domain.ErrCertificateExpired):
		return fiber.StatusUnprocessableEntity, "CERTIFICATE_EXPIRED", err.Error()
	case errors.Is(err, domain.ErrCertificateSubjectMismatch):
		return fiber.StatusUnprocessableEntity, "CERTIFICATE_MISMATCH", err.Error()
	case errors.Is(err, domain.ErrProtocolRejection):
		return fiber.StatusUnprocessableEntity, "SRI_REJECTED", "comprobante devuelto o no autorizado por el SRI"
	case errors.Is(err, domain.ErrConnection):
		return fiber.StatusBadGateway, "SRI_UNAVAILABLE", "no hay conexión con el SRI, reintente más tarde"
	case errors.Is(err, domain.ErrParsing):
		return fiber.StatusBadGateway, "SRI_MALFORMED_RESPONSE", "respuesta del SRI malformada"
	case errors.Is(err, domain.ErrConnectionFailure):
		return fiber.StatusServiceUnavailable, "DB_UNAVAILABLE", "base de datos no disponible"
	default:
		return fiber.StatusInternalServerError, "INTERNAL", err.Error()
	}
}
