package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceRepository es la vista del pipeline sobre las facturas: lectura y
// avance de estado/clave de acceso. La creación y edición de facturas vive en
// el módulo administrativo, fuera de este servicio.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)
	// UpdateEmissionIdentity persiste secuencial, código numérico y clave de
	// acceso asignados por el pipeline (una sola vez por factura).
	UpdateEmissionIdentity(ctx context.Context, invoiceID string, sequential int64, numericCode, accessKey string) error
	UpdateStatus(ctx context.Context, invoiceID, status string) error
}
