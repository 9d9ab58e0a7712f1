package http

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

const testSecret = "secreto-de-prueba"

func newAppWithActorEcho(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/whoami", AuthMiddleware(testSecret), func(c *fiber.Ctx) error {
		actor := GetActor(c)
		return c.JSON(fiber.Map{
			"kind":       actor.Kind,
			"user_id":    actor.UserID,
			"company_id": actor.CompanyID,
			"can_emit":   actor.CanEmitFor("co-1"),
		})
	})
	return app
}

func TestAuthMiddleware_SinToken(t *testing.T) {
	app := newAppWithActorEcho(t)

	req := httptest.NewRequest("GET", "/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_TokenMalformado(t *testing.T) {
	app := newAppWithActorEcho(t)

	for _, header := range []string{"Basic abc", "Bearer", "Bearer  ", "Bearer no-es-un-jwt"} {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestAuthMiddleware_FirmaIncorrecta(t *testing.T) {
	app := newAppWithActorEcho(t)

	token, err := jwt.Generate("otro-secreto", "u-1", "co-1", "emisor", "test", nil, 5)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_ActorDeEmpresa(t *testing.T) {
	app := newAppWithActorEcho(t)

	token, err := jwt.Generate(testSecret, "u-1", "co-1", "emisor", "test",
		[]string{entity.PermissionEmitInvoices}, 5)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeJSON(t, resp.Body, &body)
	assert.Equal(t, entity.ActorCompanyUser, body["kind"])
	assert.Equal(t, "u-1", body["user_id"])
	assert.Equal(t, "co-1", body["company_id"])
	assert.Equal(t, true, body["can_emit"])
}

func TestAuthMiddleware_Superadmin(t *testing.T) {
	app := newAppWithActorEcho(t)

	token, err := jwt.Generate(testSecret, "admin", "", "superadmin", "test", nil, 5)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeJSON(t, resp.Body, &body)
	assert.Equal(t, entity.ActorSuperadmin, body["kind"])
	assert.Equal(t, true, body["can_emit"], "el superadmin emite para cualquier empresa")
}

func TestAuthMiddleware_SinPermisoDeEmision(t *testing.T) {
	app := newAppWithActorEcho(t)

	token, err := jwt.Generate(testSecret, "u-2", "co-1", "consulta",
		"test", []string{"billing.read"}, 5)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeJSON(t, resp.Body, &body)
	assert.Equal(t, false, body["can_emit"])
}
