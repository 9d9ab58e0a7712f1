package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

// LocalActor key del actor tipado en c.Locals.
const LocalActor = "actor"

// AuthMiddleware valida el Bearer Token JWT y deja en c.Locals el actor tipado
// construido desde los claims: superadmin global o usuario de empresa con sus
// permisos explícitos.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalActor, actorFromClaims(claims))
		return c.Next()
	}
}

// actorFromClaims traduce los claims del token al actor del dominio.
func actorFromClaims(claims *jwt.Claims) entity.Actor {
	if claims.Role == "superadmin" {
		return entity.Superadmin(claims.UserID)
	}
	return entity.CompanyUser(claims.UserID, claims.CompanyID, claims.Permissions)
}

// GetActor devuelve el actor del contexto (después del middleware de auth).
// Un actor zero-value no pasa ninguna verificación de permisos.
func GetActor(c *fiber.Ctx) entity.Actor {
	v := c.Locals(LocalActor)
	if v == nil {
		return entity.Actor{}
	}
	actor, _ := v.(entity.Actor)
	return actor
}
