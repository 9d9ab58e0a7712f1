// Package dto define los contratos JSON de la API HTTP.
package dto

import "time"

// ErrorResponse respuesta de error uniforme de la API.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// EmissionResponse resultado de un intento de emisión.
type EmissionResponse struct {
	InvoiceID           string     `json:"invoice_id"`
	AccessKey           string     `json:"access_key"`
	State               string     `json:"state"`
	AuthorizationNumber string     `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time `json:"authorized_at,omitempty"`
	Messages            []string   `json:"messages,omitempty"`
}

// UploadCertificateRequest carga del certificado de firma de una empresa.
// El bundle (.p12/.pfx o PEM) viaja en base64.
type UploadCertificateRequest struct {
	CertificateBase64 string `json:"certificate_base64"`
	Passphrase        string `json:"passphrase,omitempty"`
	Ambiente          string `json:"ambiente"` // "1" pruebas, "2" producción
}
