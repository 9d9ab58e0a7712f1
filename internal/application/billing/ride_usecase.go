package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// RIDEUseCase genera la representación impresa (RIDE) de una factura emitida.
type RIDEUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	certRepo     repository.CertificateConfigRepository
	auditRepo    repository.AuditTrailRepository
	generator    InvoicePDFGenerator
}

// NewRIDEUseCase construye el caso de uso.
func NewRIDEUseCase(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	certRepo repository.CertificateConfigRepository,
	auditRepo repository.AuditTrailRepository,
	generator InvoicePDFGenerator,
) *RIDEUseCase {
	return &RIDEUseCase{
		invoiceRepo:  invoiceRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		certRepo:     certRepo,
		auditRepo:    auditRepo,
		generator:    generator,
	}
}

// Generate arma el RIDE en PDF. La factura debe tener clave de acceso; si aún
// no está autorizada el RIDE sale sin número de autorización.
func (uc *RIDEUseCase) Generate(ctx context.Context, invoiceID string, actor entity.Actor) ([]byte, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEmitFor(inv.CompanyID) {
		return nil, fmt.Errorf("%w: el actor no puede consultar facturas de la empresa %s", domain.ErrForbidden, inv.CompanyID)
	}
	if inv.AccessKey == "" {
		return nil, fmt.Errorf("%w: la factura aún no tiene clave de acceso", domain.ErrIncompleteInvoice)
	}

	company, err := uc.companyRepo.GetByID(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	customer, err := uc.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	details, err := uc.invoiceRepo.GetDetailsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	auth, err := uc.auditRepo.GetAuthorizationByInvoiceID(ctx, invoiceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ambiente := ""
	if cfg, cfgErr := uc.certRepo.GetActiveByCompanyID(ctx, inv.CompanyID); cfgErr == nil {
		ambiente = cfg.Ambiente
	}

	return uc.generator.GenerateRIDE(ctx, &RIDEData{
		Invoice:       inv,
		Company:       company,
		Customer:      customer,
		Details:       details,
		Authorization: auth,
		Ambiente:      ambiente,
	})
}
