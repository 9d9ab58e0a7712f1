package entity

import "time"

// EmissionPoint es un punto de emisión dentro de un establecimiento: la fuente
// de secuenciales de factura. SequenceCounter es estrictamente creciente y cada
// valor se entrega a exactamente una factura (incremento atómico en la DB).
type EmissionPoint struct {
	ID              string
	CompanyID       string
	Establishment   string // Código de establecimiento, 3 dígitos (ej: "001")
	Code            string // Código del punto de emisión, 3 dígitos (ej: "001")
	SequenceCounter int64  // Próximo secuencial a entregar
	Address         string // Dirección del establecimiento (dirEstablecimiento)
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
