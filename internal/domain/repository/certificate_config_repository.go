package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CertificateConfigRepository gestiona la configuración de certificado por
// empresa. Los blobs llegan ya cifrados por el vault; este repositorio nunca
// ve material en claro.
type CertificateConfigRepository interface {
	// GetActiveByCompanyID devuelve la configuración activa de la empresa, o
	// ErrNotFound si no hay ninguna.
	GetActiveByCompanyID(ctx context.Context, companyID string) (*entity.CertificateConfig, error)
	Save(ctx context.Context, cfg *entity.CertificateConfig) error
}
