package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasri "github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/vault"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// CertificateUseCase gestiona el certificado de firma de cada empresa. El
// bundle y su contraseña se cifran con el vault antes de tocar la base de
// datos; las respuestas nunca incluyen material del certificado.
type CertificateUseCase struct {
	certRepo    repository.CertificateConfigRepository
	companyRepo repository.CompanyRepository
	vault       *vault.Vault
	log         *logger.Logger
}

// NewCertificateUseCase construye el caso de uso.
func NewCertificateUseCase(certRepo repository.CertificateConfigRepository, companyRepo repository.CompanyRepository, v *vault.Vault, log *logger.Logger) *CertificateUseCase {
	return &CertificateUseCase{certRepo: certRepo, companyRepo: companyRepo, vault: v, log: log}
}

// UploadInput datos de carga de un certificado.
type UploadInput struct {
	CompanyID  string
	Bundle     []byte // .p12/.pfx o PEM con certificado y llave
	Passphrase string // contraseña del bundle (vacía para PEM sin cifrar)
	Ambiente   string // "1" pruebas, "2" producción
}

// CertificateStatus metadata del certificado activo, sin material sensible.
type CertificateStatus struct {
	CompanyID string    `json:"company_id"`
	Ambiente  string    `json:"ambiente"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

// Upload valida el bundle (que abra con la contraseña dada, que esté vigente y
// que pertenezca al RUC de la empresa), lo cifra y lo guarda como configuración
// activa. El material en claro se borra antes de retornar.
func (uc *CertificateUseCase) Upload(ctx context.Context, in UploadInput, actor entity.Actor) (*CertificateStatus, error) {
	if !actor.CanEmitFor(in.CompanyID) {
		return nil, fmt.Errorf("%w: el actor no puede administrar certificados de la empresa %s", domain.ErrForbidden, in.CompanyID)
	}
	if len(in.Bundle) == 0 {
		return nil, fmt.Errorf("%w: bundle de certificado vacío", domain.ErrInvalidField)
	}
	if in.Ambiente != pkgsri.AmbientePruebas && in.Ambiente != pkgsri.AmbienteProduccion {
		return nil, fmt.Errorf("%w: ambiente %q inválido", domain.ErrInvalidField, in.Ambiente)
	}
	defer vault.Wipe(in.Bundle)

	company, err := uc.companyRepo.GetByID(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}

	cert, err := infrasri.ParseBundle(in.Bundle, in.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidField, err)
	}
	now := time.Now()
	if now.After(cert.Leaf.NotAfter) {
		return nil, fmt.Errorf("%w: venció el %s", domain.ErrCertificateExpired, cert.Leaf.NotAfter.Format("2006-01-02"))
	}
	if !infrasri.SubjectMatchesRUC(cert.Leaf, company.RUC) {
		return nil, fmt.Errorf("%w: subject %q", domain.ErrCertificateSubjectMismatch, cert.Leaf.Subject.String())
	}

	certData, err := uc.vault.EncryptToString(in.Bundle)
	if err != nil {
		return nil, err
	}
	passphrase := ""
	if in.Passphrase != "" {
		passphrase, err = uc.vault.EncryptToString([]byte(in.Passphrase))
		if err != nil {
			return nil, err
		}
	}

	cfg := &entity.CertificateConfig{
		CompanyID:  in.CompanyID,
		CertData:   certData,
		Passphrase: passphrase,
		Ambiente:   in.Ambiente,
		IsActive:   true,
		ExpiresAt:  cert.Leaf.NotAfter,
	}
	if err := uc.certRepo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", in.CompanyID).Str("ambiente", in.Ambiente).
		Time("expires_at", cfg.ExpiresAt).Msg("certificado de firma actualizado")

	return &CertificateStatus{
		CompanyID: in.CompanyID,
		Ambiente:  in.Ambiente,
		ExpiresAt: cfg.ExpiresAt,
	}, nil
}

// Status devuelve la metadata del certificado activo de la empresa.
func (uc *CertificateUseCase) Status(ctx context.Context, companyID string, actor entity.Actor) (*CertificateStatus, error) {
	if !actor.CanEmitFor(companyID) {
		return nil, fmt.Errorf("%w: el actor no puede consultar certificados de la empresa %s", domain.ErrForbidden, companyID)
	}
	cfg, err := uc.certRepo.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &CertificateStatus{
		CompanyID: cfg.CompanyID,
		Ambiente:  cfg.Ambiente,
		ExpiresAt: cfg.ExpiresAt,
		Expired:   time.Now().After(cfg.ExpiresAt),
	}, nil
}
