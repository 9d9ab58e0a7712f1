// Package sri contiene catálogos y validaciones alineados a la Ficha Técnica
// de Comprobantes Electrónicos del SRI (Ecuador), esquema offline v2.21.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocTypeFactura              = "01" // Factura
	DocTypeNotaCredito          = "04" // Nota de crédito
	DocTypeNotaDebito           = "05" // Nota de débito
	DocTypeGuiaRemision         = "06" // Guía de remisión
	DocTypeComprobanteRetencion = "07" // Comprobante de retención
)

// ValidDocumentTypeCodes códigos de tipo de comprobante válidos.
var ValidDocumentTypeCodes = map[string]bool{
	DocTypeFactura: true, DocTypeNotaCredito: true, DocTypeNotaDebito: true,
	DocTypeGuiaRemision: true, DocTypeComprobanteRetencion: true,
}

// =============================================================================
// Tabla 4 - Ambiente y Tabla 2 - Tipo de emisión
// =============================================================================

const (
	AmbientePruebas    = "1" // celcer.sri.gob.ec
	AmbienteProduccion = "2" // cel.sri.gob.ec

	EmisionNormal = "1" // Emisión normal (única soportada por el esquema offline)
)

// =============================================================================
// Tabla 6 - Tipos de identificación del comprador
// =============================================================================

const (
	IdentificationTypeRUC             = "04" // RUC (13 dígitos)
	IdentificationTypeCedula          = "05" // Cédula
	IdentificationTypePasaporte       = "06" // Pasaporte
	IdentificationTypeConsumidorFinal = "07" // Venta a consumidor final
)

// =============================================================================
// Tablas 16/17 - Impuestos (código y código de porcentaje IVA)
// =============================================================================

const (
	TaxCodeIVA = "2" // IVA

	IVARate0  = "0" // 0%
	IVARate12 = "2" // 12%
	IVARate15 = "4" // 15%
)

// =============================================================================
// Tabla 24 - Formas de pago (uso frecuente)
// =============================================================================

const (
	PaymentMethodSinSistemaFinanciero = "01" // Sin utilización del sistema financiero
	PaymentMethodDebitoCuenta         = "16" // Débito de cuenta bancaria
	PaymentMethodTarjetaCredito       = "19" // Tarjeta de crédito
	PaymentMethodOtros                = "20" // Otros con utilización del sistema financiero
)
