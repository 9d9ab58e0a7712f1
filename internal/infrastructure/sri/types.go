// Package sri implementa la generación, firma y envío de comprobantes
// electrónicos al SRI (Ecuador), esquema offline.
package sri

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Estados devueltos por el WS del SRI.
const (
	EstadoRecibida     = "RECIBIDA"
	EstadoDevuelta     = "DEVUELTA"
	EstadoAutorizado   = "AUTORIZADO"
	EstadoNoAutorizado = "NO AUTORIZADO"
	EstadoEnProceso    = "EN PROCESO"
)

// InvoiceBuildContext agrupa todos los datos necesarios para construir el XML
// de la factura (esquema factura v1.1.0).
type InvoiceBuildContext struct {
	Invoice  *entity.Invoice
	Company  *entity.Company // Emisor
	Customer *entity.Customer
	Point    *entity.EmissionPoint
	Details  []*entity.InvoiceDetail
	Ambiente string // "1" pruebas, "2" producción
}

// ReceptionResult resultado de la fase de recepción (validarComprobante).
type ReceptionResult struct {
	Estado   string   // RECIBIDA o DEVUELTA
	Mensajes []string // mensajes legibles concatenados desde la respuesta
	Raw      string   // cuerpo crudo de la respuesta
}

// Accepted indica si el SRI recibió el comprobante.
func (r *ReceptionResult) Accepted() bool {
	return r.Estado == EstadoRecibida
}

// AuthorizationResult resultado de la fase de autorización.
type AuthorizationResult struct {
	Estado              string // AUTORIZADO, NO AUTORIZADO o EN PROCESO
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Mensajes            []string
	Raw                 string
}

// Authorized indica si el comprobante quedó autorizado.
func (r *AuthorizationResult) Authorized() bool {
	return r.Estado == EstadoAutorizado
}

// AuthorityClient es el puerto de salida hacia el WS del SRI. La
// implementación concreta usa SOAP; para tests se inyecta un mock. El cliente
// no reintenta: la política de reintentos es responsabilidad del caller (ver
// RetryingClient).
type AuthorityClient interface {
	// Submit envía el XML firmado a la fase de recepción. ambiente decide el
	// endpoint ("1" pruebas, "2" producción).
	Submit(ctx context.Context, signedXML []byte, ambiente string) (*ReceptionResult, error)
	// CheckAuthorization consulta la fase de autorización por clave de acceso.
	CheckAuthorization(ctx context.Context, accessKey, ambiente string) (*AuthorizationResult, error)
}
