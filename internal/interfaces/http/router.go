package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator  *billing.EmissionOrchestrator
	AuditUC       *billing.AuditUseCase
	RIDEUC        *billing.RIDEUseCase
	CertificateUC *billing.CertificateUseCase
	JWTSecret     string
}

// Router registra las rutas de la API. Todo el pipeline es protegido: el
// middleware construye el actor tipado desde el token y los casos de uso lo
// verifican contra la empresa de cada recurso.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Pipeline de emisión
	invoices := api.Group("/invoices")
	emissionHandler := NewEmissionHandler(deps.Orchestrator, deps.AuditUC, deps.RIDEUC)
	invoices.Post("/:id/emit", emissionHandler.Emit)
	invoices.Get("/:id/emission", emissionHandler.Status)
	invoices.Get("/:id/ride", emissionHandler.RIDE)

	// Certificado de firma por empresa
	companies := api.Group("/companies")
	certificateHandler := NewCertificateHandler(deps.CertificateUC)
	companies.Put("/:id/certificate", certificateHandler.Upload)
	companies.Get("/:id/certificate", certificateHandler.Status)
}
