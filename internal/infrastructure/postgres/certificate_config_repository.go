package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CertificateConfigRepository = (*CertificateConfigRepo)(nil)

// CertificateConfigRepo implementación de CertificateConfigRepository. Las
// columnas cert_data y passphrase guardan blobs del vault en Base64; el
// material en claro nunca toca esta capa.
type CertificateConfigRepo struct {
	q Querier
}

// NewCertificateConfigRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCertificateConfigRepository(q Querier) *CertificateConfigRepo {
	return &CertificateConfigRepo{q: q}
}

// GetActiveByCompanyID devuelve la configuración activa más reciente de la
// empresa, o ErrNotFound si no existe ninguna.
func (r *CertificateConfigRepo) GetActiveByCompanyID(ctx context.Context, companyID string) (*entity.CertificateConfig, error) {
	const query = `
		SELECT id, company_id, cert_data, passphrase, ambiente, is_active,
		       expires_at, created_at, updated_at
		FROM certificate_configs
		WHERE company_id = $1 AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1`
	var cfg entity.CertificateConfig
	err := r.q.QueryRow(ctx, query, companyID).Scan(
		&cfg.ID, &cfg.CompanyID, &cfg.CertData, &cfg.Passphrase, &cfg.Ambiente,
		&cfg.IsActive, &cfg.ExpiresAt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, translateError("get active certificate config", err)
	}
	return &cfg, nil
}

// Save inserta la configuración y desactiva cualquier otra activa de la misma
// empresa (a lo sumo una activa por tenant).
func (r *CertificateConfigRepo) Save(ctx context.Context, cfg *entity.CertificateConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	const deactivate = `
		UPDATE certificate_configs SET is_active = false, updated_at = now()
		WHERE company_id = $1 AND is_active = true`
	if _, err := r.q.Exec(ctx, deactivate, cfg.CompanyID); err != nil {
		return translateError("deactivate certificate configs", err)
	}
	const insert = `
		INSERT INTO certificate_configs
			(id, company_id, cert_data, passphrase, ambiente, is_active, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	_, err := r.q.Exec(ctx, insert,
		cfg.ID, cfg.CompanyID, cfg.CertData, cfg.Passphrase, cfg.Ambiente,
		cfg.IsActive, cfg.ExpiresAt,
	)
	if err != nil {
		return translateError("insert certificate config", err)
	}
	return nil
}
