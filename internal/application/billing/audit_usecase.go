package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// EmissionStatus es la vista de auditoría de una factura: estado, registro de
// autorización vigente y bitácora completa de intentos.
type EmissionStatus struct {
	InvoiceID     string                      `json:"invoice_id"`
	Status        string                      `json:"status"`
	AccessKey     string                      `json:"access_key,omitempty"`
	Authorization *entity.AuthorizationRecord `json:"authorization,omitempty"`
	Logs          []*entity.EmissionLogEntry  `json:"logs"`
}

// AuditUseCase expone el rastro de auditoría del pipeline de emisión.
type AuditUseCase struct {
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditTrailRepository
}

// NewAuditUseCase construye el caso de uso.
func NewAuditUseCase(invoiceRepo repository.InvoiceRepository, auditRepo repository.AuditTrailRepository) *AuditUseCase {
	return &AuditUseCase{invoiceRepo: invoiceRepo, auditRepo: auditRepo}
}

// GetEmissionStatus devuelve estado, autorización y bitácora de la factura.
func (uc *AuditUseCase) GetEmissionStatus(ctx context.Context, invoiceID string, actor entity.Actor) (*EmissionStatus, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEmitFor(inv.CompanyID) {
		return nil, fmt.Errorf("%w: el actor no puede consultar facturas de la empresa %s", domain.ErrForbidden, inv.CompanyID)
	}

	auth, err := uc.auditRepo.GetAuthorizationByInvoiceID(ctx, invoiceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	logs, err := uc.auditRepo.ListLogsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &EmissionStatus{
		InvoiceID:     inv.ID,
		Status:        inv.Status,
		AccessKey:     inv.AccessKey,
		Authorization: auth,
		Logs:          logs,
	}, nil
}
