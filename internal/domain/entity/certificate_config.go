package entity

import "time"

// CertificateConfig guarda el certificado de firma de una empresa cifrado en
// reposo. CertData y Passphrase son blobs del vault (nonce||ciphertext) en
// Base64; el material en claro nunca se persiste ni se registra en logs.
type CertificateConfig struct {
	ID         string
	CompanyID  string
	CertData   string // Bundle .p12 o PEM cifrado (Base64 de nonce||ciphertext)
	Passphrase string // Contraseña del .p12 cifrada (Base64 de nonce||ciphertext)
	Ambiente   string // "1" = Pruebas, "2" = Producción
	IsActive   bool
	ExpiresAt  time.Time // Fin de vigencia del certificado
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
