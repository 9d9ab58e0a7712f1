package domain

import "errors"

// Errores de dominio (sin dependencias externas). El orquestador y los handlers
// los distinguen con errors.Is; los repositorios traducen errores de la DB a
// ErrNotFound / ErrConstraintViolation / ErrConnectionFailure.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrConstraintViolation = errors.New("violación de restricción en la base de datos")
	ErrConnectionFailure   = errors.New("fallo de conexión con la base de datos")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")

	// Pipeline de emisión electrónica.
	ErrConfigurationMissing       = errors.New("configuración de certificado ausente o inactiva")
	ErrCertificateExpired         = errors.New("certificado de firma expirado")
	ErrCertificateSubjectMismatch = errors.New("el certificado no corresponde al RUC del emisor")
	ErrInvalidField               = errors.New("campo de clave de acceso fuera de su ancho fijo")
	ErrIncompleteInvoice          = errors.New("factura incompleta para generar el comprobante")
	ErrConnection                 = errors.New("error de conexión con el SRI")
	ErrProtocolRejection          = errors.New("comprobante devuelto o no autorizado por el SRI")
	ErrParsing                    = errors.New("respuesta del SRI malformada o inesperada")
	ErrAlreadyAuthorized          = errors.New("la factura ya está autorizada")
	ErrCorruptedOrWrongKey        = errors.New("blob cifrado corrupto o llave maestra incorrecta")
)
