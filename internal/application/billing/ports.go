package billing

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasri "github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
)

// EmissionTxRunner ejecuta una función dentro de una transacción con los repos
// que persisten el desenlace de un intento de emisión.
type EmissionTxRunner interface {
	RunEmission(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditTrailRepository,
	) error) error
}

// ComprobanteBuilder construye el XML del comprobante a partir del contexto de
// la factura.
type ComprobanteBuilder interface {
	Build(ctx *infrasri.InvoiceBuildContext) ([]byte, error)
}

// InvoiceSigner firma el XML con el certificado cifrado de la empresa,
// validando vigencia y titularidad contra el RUC del emisor.
type InvoiceSigner interface {
	SignInvoice(xmlBytes []byte, cfg *entity.CertificateConfig, emitterRUC string) ([]byte, error)
}

// InvoicePDFGenerator genera la representación impresa (RIDE) de la factura.
type InvoicePDFGenerator interface {
	GenerateRIDE(ctx context.Context, data *RIDEData) ([]byte, error)
}

// RIDEData agrupa los datos que necesita el RIDE.
type RIDEData struct {
	Invoice       *entity.Invoice
	Company       *entity.Company
	Customer      *entity.Customer
	Details       []*entity.InvoiceDetail
	Authorization *entity.AuthorizationRecord
	Ambiente      string
}
