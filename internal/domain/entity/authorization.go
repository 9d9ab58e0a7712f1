package entity

import "time"

// Estados del registro de autorización (a lo sumo uno vigente por factura).
const (
	AuthorizationStatusReceived   = "RECEIVED"
	AuthorizationStatusReturned   = "RETURNED"
	AuthorizationStatusAuthorized = "AUTHORIZED"
	AuthorizationStatusRejected   = "REJECTED"
)

// Estados registrados en la bitácora de emisión (una fila por resultado).
const (
	EmissionLogRecibida      = "RECIBIDA"
	EmissionLogDevuelta      = "DEVUELTA"
	EmissionLogAutorizada    = "AUTORIZADA"
	EmissionLogNoAutorizada  = "NO_AUTORIZADA"
	EmissionLogErrorConexion = "ERROR_CONEXION"
	EmissionLogFailed        = "FAILED"
)

// AuthorizationRecord es el registro vigente de autorización de una factura.
// Lo crea y actualiza únicamente el orquestador (upsert por invoice_id) y solo
// tras recibir respuesta del SRI.
type AuthorizationRecord struct {
	ID                  string
	InvoiceID           string
	Status              string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	RawResponse         string // Cuerpo crudo de la última respuesta del SRI
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EmissionLogEntry es una fila append-only de la bitácora de intentos de
// emisión. Nunca se actualiza ni se borra.
type EmissionLogEntry struct {
	ID        string
	InvoiceID string
	Attempt   int
	Status    string
	Message   string
	CreatedAt time.Time
}
