package entity

import "time"

// Company representa una organización/tenant del sistema (emisor de comprobantes).
type Company struct {
	ID                   string
	Name                 string // Razón social
	TradeName            string // Nombre comercial (opcional)
	RUC                  string // RUC ecuatoriano de 13 dígitos
	Address              string // Dirección matriz
	Phone                string
	Email                string
	ObligadoContabilidad bool
	Status               string // active, suspended, inactive
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Customer representa al comprador de la factura.
type Customer struct {
	ID                 string
	CompanyID          string
	Name               string // Razón social del comprador
	IdentificationType string // Tabla 6 SRI: 04 RUC, 05 cédula, 06 pasaporte, 07 consumidor final
	Identification     string
	Address            string
	Email              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
