package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	infrapdf "github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/vault"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sri_ambiente", cfg.SRI.Ambiente).
		Msg("iniciando aplicación")

	if cfg.Vault.MasterKey == "" {
		log.Fatal().Msg("VAULT_MASTER_KEY es obligatoria: los certificados se cifran en reposo")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	pointRepo := postgres.NewEmissionPointRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	certRepo := postgres.NewCertificateConfigRepository(pool)
	auditRepo := postgres.NewAuditTrailRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	certVault, err := vault.New(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar vault de certificados")
	}

	// Cliente SOAP del SRI, con reintentos ante errores de conexión si están
	// configurados. El resto de fallos (DEVUELTA, NO AUTORIZADO) nunca se
	// reintenta aquí: ese desenlace lo decide el orquestador.
	var authority infrasri.AuthorityClient = infrasri.NewSOAPClient(cfg.SRI)
	if cfg.SRI.MaxRetries > 0 {
		authority = infrasri.NewRetryingClient(authority, cfg.SRI.MaxRetries, time.Second)
	}

	orchestrator := billing.NewEmissionOrchestrator(
		invoiceRepo, companyRepo, customerRepo, pointRepo, certRepo, auditRepo,
		txRunner,
		domainsri.NewAccessKeyService(),
		infrasri.NewXMLBuilderService(),
		infrasri.NewSignatureService(certVault),
		authority,
		log,
	)
	certificateUC := billing.NewCertificateUseCase(certRepo, companyRepo, certVault, log)
	auditUC := billing.NewAuditUseCase(invoiceRepo, auditRepo)
	rideUC := billing.NewRIDEUseCase(
		invoiceRepo, companyRepo, customerRepo, certRepo, auditRepo,
		infrapdf.NewRIDEGenerator(),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación Electrónica API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator:  orchestrator,
		AuditUC:       auditUC,
		RIDEUC:        rideUC,
		CertificateUC: certificateUC,
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
