package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// AuditTrailRepository persiste el rastro de auditoría del pipeline: bitácora
// append-only de intentos y el registro vigente de autorización por factura.
type AuditTrailRepository interface {
	// AppendLog inserta una fila de bitácora. Si entry.Attempt es 0 el
	// repositorio asigna el siguiente número de intento de la factura. Las
	// filas nunca se actualizan ni se borran.
	AppendLog(ctx context.Context, entry *entity.EmissionLogEntry) error
	// UpsertAuthorization crea o reemplaza el registro de autorización de la
	// factura (a lo sumo uno por invoice_id).
	UpsertAuthorization(ctx context.Context, record *entity.AuthorizationRecord) error
	GetAuthorizationByInvoiceID(ctx context.Context, invoiceID string) (*entity.AuthorizationRecord, error)
	ListLogsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.EmissionLogEntry, error)
}
