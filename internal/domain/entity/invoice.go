package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de la factura frente al SRI. La factura entra al
// pipeline en PENDING y solo avanza a AUTHORIZED cuando el SRI autoriza el
// comprobante; DEVUELTA/NO AUTORIZADA no cambian el estado de la factura.
const (
	InvoiceStatusDraft      = "DRAFT"
	InvoiceStatusPending    = "PENDING"
	InvoiceStatusAuthorized = "AUTHORIZED"
)

// Estados internos del pipeline de emisión (máquina de estados del orquestador).
const (
	EmissionStateDraft       = "DRAFT"
	EmissionStatePending     = "PENDING"
	EmissionStateSigned      = "SIGNED"
	EmissionStateSubmitted   = "SUBMITTED"
	EmissionStateReceived    = "RECEIVED"
	EmissionStateAuthorizing = "AUTHORIZING"
	EmissionStateAuthorized  = "AUTHORIZED"
	EmissionStateReturned    = "RETURNED"
	EmissionStateRejected    = "REJECTED"
	EmissionStateFailed      = "FAILED"
)

// Invoice representa la cabecera de una factura.
type Invoice struct {
	ID              string
	CompanyID       string
	CustomerID      string
	EmissionPointID string
	Sequential      int64  // Secuencial asignado por el punto de emisión (0 = sin asignar)
	NumericCode     string // Código numérico de 8 dígitos de la clave de acceso (estable entre reintentos)
	AccessKey       string // Clave de acceso de 49 dígitos (vacía hasta que se genera)
	IssueDate       time.Time
	NetTotal        decimal.Decimal // Total sin impuestos
	Discount        decimal.Decimal
	TaxTotal        decimal.Decimal // IVA
	GrandTotal      decimal.Decimal // Importe total
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InvoiceDetail representa una línea de detalle de la factura.
type InvoiceDetail struct {
	ID          string
	InvoiceID   string
	ProductCode string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal // Porcentaje de IVA (0, 12, 15)
	Subtotal    decimal.Decimal // Precio total sin impuesto
}
