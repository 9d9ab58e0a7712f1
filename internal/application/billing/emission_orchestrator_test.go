package billing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	infrasri "github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// ── Fakes en memoria ──────────────────────────────────────────────────────────

type memStore struct {
	invoice  *entity.Invoice
	details  []*entity.InvoiceDetail
	company  *entity.Company
	customer *entity.Customer
	point    *entity.EmissionPoint
	certCfg  *entity.CertificateConfig

	authRecord *entity.AuthorizationRecord
	logs       []*entity.EmissionLogEntry

	allocateCalls int
}

func (s *memStore) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	if s.invoice == nil || s.invoice.ID != id {
		return nil, domain.ErrNotFound
	}
	inv := *s.invoice
	return &inv, nil
}

func (s *memStore) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	return s.details, nil
}

func (s *memStore) UpdateEmissionIdentity(ctx context.Context, invoiceID string, sequential int64, numericCode, accessKey string) error {
	if s.invoice.AccessKey == "" {
		s.invoice.Sequential = sequential
		s.invoice.NumericCode = numericCode
		s.invoice.AccessKey = accessKey
	}
	return nil
}

func (s *memStore) UpdateStatus(ctx context.Context, invoiceID, status string) error {
	s.invoice.Status = status
	return nil
}

type companyRepo struct{ s *memStore }

func (r companyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	if r.s.company == nil {
		return nil, domain.ErrNotFound
	}
	return r.s.company, nil
}

type customerRepo struct{ s *memStore }

func (r customerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	if r.s.customer == nil {
		return nil, domain.ErrNotFound
	}
	return r.s.customer, nil
}

type pointRepo struct{ s *memStore }

func (r pointRepo) GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error) {
	if r.s.point == nil {
		return nil, domain.ErrNotFound
	}
	return r.s.point, nil
}

func (r pointRepo) AllocateSequence(ctx context.Context, emissionPointID string) (int64, error) {
	r.s.allocateCalls++
	r.s.point.SequenceCounter++
	return r.s.point.SequenceCounter - 1, nil
}

type certRepo struct{ s *memStore }

func (r certRepo) GetActiveByCompanyID(ctx context.Context, companyID string) (*entity.CertificateConfig, error) {
	if r.s.certCfg == nil {
		return nil, domain.ErrNotFound
	}
	return r.s.certCfg, nil
}

func (r certRepo) Save(ctx context.Context, cfg *entity.CertificateConfig) error {
	r.s.certCfg = cfg
	return nil
}

type auditRepo struct{ s *memStore }

func (r auditRepo) AppendLog(ctx context.Context, entry *entity.EmissionLogEntry) error {
	if entry.Attempt == 0 {
		entry.Attempt = len(r.s.logs) + 1
	}
	r.s.logs = append(r.s.logs, entry)
	return nil
}

func (r auditRepo) UpsertAuthorization(ctx context.Context, record *entity.AuthorizationRecord) error {
	r.s.authRecord = record
	return nil
}

func (r auditRepo) GetAuthorizationByInvoiceID(ctx context.Context, invoiceID string) (*entity.AuthorizationRecord, error) {
	if r.s.authRecord == nil {
		return nil, domain.ErrNotFound
	}
	return r.s.authRecord, nil
}

func (r auditRepo) ListLogsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.EmissionLogEntry, error) {
	return r.s.logs, nil
}

type fakeTxRunner struct{ s *memStore }

func (t fakeTxRunner) RunEmission(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditTrailRepository,
) error) error {
	return fn(t.s, auditRepo{t.s})
}

// fakeSigner no firma de verdad: valida la configuración y marca el XML.
type fakeSigner struct{ err error }

func (f fakeSigner) SignInvoice(xmlBytes []byte, cfg *entity.CertificateConfig, emitterRUC string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append(xmlBytes, []byte("<!--firmado-->")...), nil
}

// countingBuilder delega en el builder real contando cuántas veces se
// construye el comprobante.
type countingBuilder struct {
	inner billing.ComprobanteBuilder
	calls int
}

func (b *countingBuilder) Build(ctx *infrasri.InvoiceBuildContext) ([]byte, error) {
	b.calls++
	return b.inner.Build(ctx)
}

// scriptedAuthority devuelve respuestas predefinidas por llamada.
type scriptedAuthority struct {
	submitResults []submitStep
	authResults   []authStep
	submitCalls   int
	authCalls     int
	lastXML       []byte
}

type submitStep struct {
	result *infrasri.ReceptionResult
	err    error
}

type authStep struct {
	result *infrasri.AuthorizationResult
	err    error
}

func (a *scriptedAuthority) Submit(ctx context.Context, signedXML []byte, ambiente string) (*infrasri.ReceptionResult, error) {
	a.lastXML = signedXML
	step := a.submitResults[a.submitCalls]
	a.submitCalls++
	return step.result, step.err
}

func (a *scriptedAuthority) CheckAuthorization(ctx context.Context, accessKey, ambiente string) (*infrasri.AuthorizationResult, error) {
	step := a.authResults[a.authCalls]
	a.authCalls++
	return step.result, step.err
}

// ── Fixture ───────────────────────────────────────────────────────────────────

func newStore() *memStore {
	return &memStore{
		invoice: &entity.Invoice{
			ID:              "inv-1",
			CompanyID:       "co-1",
			CustomerID:      "cu-1",
			EmissionPointID: "pt-1",
			IssueDate:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			NetTotal:        decimal.RequireFromString("100.00"),
			TaxTotal:        decimal.RequireFromString("12.00"),
			GrandTotal:      decimal.RequireFromString("112.00"),
			Status:          entity.InvoiceStatusPending,
		},
		details: []*entity.InvoiceDetail{{
			InvoiceID:   "inv-1",
			ProductCode: "P-001",
			Description: "Servicio profesional",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			TaxRate:     decimal.RequireFromString("12"),
			Subtotal:    decimal.RequireFromString("100.00"),
		}},
		company: &entity.Company{
			ID:      "co-1",
			Name:    "COMERCIAL EL SOL S.A.",
			RUC:     "1790012345001",
			Address: "Av. Amazonas N21-21",
		},
		customer: &entity.Customer{
			ID:                 "cu-1",
			CompanyID:          "co-1",
			Name:               "Juan Pérez",
			IdentificationType: "05",
			Identification:     "1712345678",
		},
		point: &entity.EmissionPoint{
			ID:              "pt-1",
			CompanyID:       "co-1",
			Establishment:   "001",
			Code:            "002",
			SequenceCounter: 42,
			IsActive:        true,
		},
		certCfg: &entity.CertificateConfig{
			ID:        "cert-1",
			CompanyID: "co-1",
			CertData:  "blob",
			Ambiente:  "1",
			IsActive:  true,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		},
	}
}

func newOrchestrator(s *memStore, signer billing.InvoiceSigner, authority infrasri.AuthorityClient) *billing.EmissionOrchestrator {
	return newOrchestratorWithBuilder(s, infrasri.NewXMLBuilderService(), signer, authority)
}

func newOrchestratorWithBuilder(s *memStore, builder billing.ComprobanteBuilder, signer billing.InvoiceSigner, authority infrasri.AuthorityClient) *billing.EmissionOrchestrator {
	return billing.NewEmissionOrchestrator(
		s, companyRepo{s}, customerRepo{s}, pointRepo{s}, certRepo{s}, auditRepo{s},
		fakeTxRunner{s},
		domainsri.NewAccessKeyService(),
		builder,
		signer,
		authority,
		logger.Nop(),
	)
}

func emisor() entity.Actor {
	return entity.CompanyUser("u-1", "co-1", []string{entity.PermissionEmitInvoices})
}

func logStatuses(s *memStore) []string {
	out := make([]string, 0, len(s.logs))
	for _, l := range s.logs {
		out = append(out, l.Status)
	}
	return out
}

// ── Escenarios ────────────────────────────────────────────────────────────────

func TestSubmitInvoice_Autorizada(t *testing.T) {
	s := newStore()
	authorizedAt := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	authority := &scriptedAuthority{
		submitResults: []submitStep{{result: &infrasri.ReceptionResult{Estado: infrasri.EstadoRecibida}}},
		authResults: []authStep{{result: &infrasri.AuthorizationResult{
			Estado:              infrasri.EstadoAutorizado,
			AuthorizationNumber: "AUT-123",
			AuthorizedAt:        &authorizedAt,
			Raw:                 "<autorizacion/>",
		}}},
	}
	o := newOrchestrator(s, fakeSigner{}, authority)

	result, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	require.NoError(t, err)
	assert.Equal(t, entity.EmissionStateAuthorized, result.State)
	assert.Equal(t, "AUT-123", result.AuthorizationNumber)
	assert.Len(t, result.AccessKey, 49)

	// Identidad de emisión asignada y persistida
	assert.Equal(t, int64(42), s.invoice.Sequential)
	assert.Len(t, s.invoice.NumericCode, 8)
	assert.Equal(t, result.AccessKey, s.invoice.AccessKey)
	assert.NoError(t, domainsri.ValidateAccessKey(s.invoice.AccessKey))

	// Estado final y rastro de auditoría
	assert.Equal(t, entity.InvoiceStatusAuthorized, s.invoice.Status)
	require.NotNil(t, s.authRecord)
	assert.Equal(t, entity.AuthorizationStatusAuthorized, s.authRecord.Status)
	assert.Equal(t, "AUT-123", s.authRecord.AuthorizationNumber)
	assert.Equal(t, []string{entity.EmissionLogRecibida, entity.EmissionLogAutorizada}, logStatuses(s))

	// El XML enviado incluye la clave de acceso y la marca del firmador
	assert.Contains(t, string(authority.lastXML), s.invoice.AccessKey)
	assert.Contains(t, string(authority.lastXML), "<!--firmado-->")
}

func TestSubmitInvoice_Devuelta(t *testing.T) {
	s := newStore()
	authority := &scriptedAuthority{
		submitResults: []submitStep{{result: &infrasri.ReceptionResult{
			Estado:   infrasri.EstadoDevuelta,
			Mensajes: []string{"35: ARCHIVO NO CUMPLE ESTRUCTURA XML"},
			Raw:      "<devuelta/>",
		}}},
	}
	o := newOrchestrator(s, fakeSigner{}, authority)

	result, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrProtocolRejection)
	require.NotNil(t, result)
	assert.Equal(t, entity.EmissionStateReturned, result.State)

	// La factura no avanza; queda registro RETURNED y bitácora DEVUELTA
	assert.Equal(t, entity.InvoiceStatusPending, s.invoice.Status)
	require.NotNil(t, s.authRecord)
	assert.Equal(t, entity.AuthorizationStatusReturned, s.authRecord.Status)
	assert.Equal(t, []string{entity.EmissionLogDevuelta}, logStatuses(s))
}

func TestSubmitInvoice_NoAutorizada(t *testing.T) {
	s := newStore()
	authority := &scriptedAuthority{
		submitResults: []submitStep{{result: &infrasri.ReceptionResult{Estado: infrasri.EstadoRecibida}}},
		authResults: []authStep{{result: &infrasri.AuthorizationResult{
			Estado:   infrasri.EstadoNoAutorizado,
			Mensajes: []string{"60: CLAVE ACCESO REGISTRADA"},
			Raw:      "<noautorizado/>",
		}}},
	}
	o := newOrchestrator(s, fakeSigner{}, authority)

	result, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrProtocolRejection)
	require.NotNil(t, result)
	assert.Equal(t, entity.EmissionStateRejected, result.State)

	assert.Equal(t, entity.InvoiceStatusPending, s.invoice.Status)
	require.NotNil(t, s.authRecord)
	assert.Equal(t, entity.AuthorizationStatusRejected, s.authRecord.Status)
	assert.Equal(t, []string{entity.EmissionLogRecibida, entity.EmissionLogNoAutorizada}, logStatuses(s))
}

// El error de conexión no cambia estado y el reintento reutiliza la misma
// clave de acceso: el SRI ve siempre el mismo comprobante.
func TestSubmitInvoice_ErrorConexionYReintento(t *testing.T) {
	s := newStore()
	authority := &scriptedAuthority{
		submitResults: []submitStep{
			{err: fmt.Errorf("%w: connection refused", domain.ErrConnection)},
			{result: &infrasri.ReceptionResult{Estado: infrasri.EstadoRecibida}},
		},
		authResults: []authStep{{result: &infrasri.AuthorizationResult{
			Estado:              infrasri.EstadoAutorizado,
			AuthorizationNumber: "AUT-9",
		}}},
	}
	o := newOrchestrator(s, fakeSigner{}, authority)

	// Primer intento: fallo de red
	_, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Equal(t, entity.InvoiceStatusPending, s.invoice.Status)
	assert.Nil(t, s.authRecord)
	assert.Equal(t, []string{entity.EmissionLogErrorConexion}, logStatuses(s))
	firstKey := s.invoice.AccessKey
	require.Len(t, firstKey, 49)

	// Segundo intento: misma clave, autorizada
	result, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	require.NoError(t, err)
	assert.Equal(t, firstKey, result.AccessKey, "el reintento reutiliza la clave de acceso")
	assert.Equal(t, 1, s.allocateCalls, "el secuencial se reserva una sola vez")
	assert.Equal(t, entity.InvoiceStatusAuthorized, s.invoice.Status)
}

func TestSubmitInvoice_EnProceso(t *testing.T) {
	s := newStore()
	authority := &scriptedAuthority{
		submitResults: []submitStep{{result: &infrasri.ReceptionResult{Estado: infrasri.EstadoRecibida}}},
		authResults:   []authStep{{result: &infrasri.AuthorizationResult{Estado: infrasri.EstadoEnProceso}}},
	}
	o := newOrchestrator(s, fakeSigner{}, authority)

	result, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	require.NoError(t, err)
	assert.Equal(t, entity.EmissionStateAuthorizing, result.State)
	assert.Equal(t, entity.InvoiceStatusPending, s.invoice.Status)
	require.NotNil(t, s.authRecord)
	assert.Equal(t, entity.AuthorizationStatusReceived, s.authRecord.Status)
}

func TestSubmitInvoice_SinCertificado(t *testing.T) {
	s := newStore()
	s.certCfg = nil
	o := newOrchestrator(s, fakeSigner{}, &scriptedAuthority{})

	_, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	assert.Equal(t, []string{entity.EmissionLogFailed}, logStatuses(s))
}

// El certificado vencido se detecta con el ExpiresAt de la configuración,
// antes de reservar secuencial y antes de construir comprobante alguno.
func TestSubmitInvoice_CertificadoExpirado(t *testing.T) {
	s := newStore()
	s.certCfg.ExpiresAt = time.Now().AddDate(-1, 0, 0)
	builder := &countingBuilder{inner: infrasri.NewXMLBuilderService()}
	o := newOrchestratorWithBuilder(s, builder, fakeSigner{}, &scriptedAuthority{})

	_, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrCertificateExpired)
	assert.Equal(t, 0, builder.calls, "no se construye comprobante con certificado vencido")
	assert.Equal(t, 0, s.allocateCalls, "no se reserva secuencial con certificado vencido")
	assert.Empty(t, s.invoice.AccessKey)
	assert.Equal(t, entity.InvoiceStatusPending, s.invoice.Status)
	assert.Equal(t, []string{entity.EmissionLogFailed}, logStatuses(s))
}

func TestSubmitInvoice_FalloDeFirma(t *testing.T) {
	s := newStore()
	signer := fakeSigner{err: fmt.Errorf("%w: subject CN=OTRA EMPRESA", domain.ErrCertificateSubjectMismatch)}
	o := newOrchestrator(s, signer, &scriptedAuthority{})

	_, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrCertificateSubjectMismatch)
	assert.Equal(t, entity.InvoiceStatusPending, s.invoice.Status)
	assert.Equal(t, []string{entity.EmissionLogFailed}, logStatuses(s))
}

func TestSubmitInvoice_YaAutorizada(t *testing.T) {
	s := newStore()
	s.invoice.Status = entity.InvoiceStatusAuthorized
	o := newOrchestrator(s, fakeSigner{}, &scriptedAuthority{})

	_, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrAlreadyAuthorized)
	assert.Equal(t, []string{entity.EmissionLogFailed}, logStatuses(s))
}

func TestSubmitInvoice_ActorSinPermiso(t *testing.T) {
	s := newStore()
	o := newOrchestrator(s, fakeSigner{}, &scriptedAuthority{})

	cases := []entity.Actor{
		entity.CompanyUser("u-2", "otra-empresa", []string{entity.PermissionEmitInvoices}),
		entity.CompanyUser("u-3", "co-1", []string{"billing.read"}),
	}
	for _, actor := range cases {
		_, err := o.SubmitInvoice(context.Background(), "inv-1", actor)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}
	assert.Empty(t, s.logs, "los rechazos de autorización no tocan la bitácora")
}

func TestSubmitInvoice_SuperadminPuedeEmitir(t *testing.T) {
	s := newStore()
	authority := &scriptedAuthority{
		submitResults: []submitStep{{result: &infrasri.ReceptionResult{Estado: infrasri.EstadoRecibida}}},
		authResults:   []authStep{{result: &infrasri.AuthorizationResult{Estado: infrasri.EstadoAutorizado}}},
	}
	o := newOrchestrator(s, fakeSigner{}, authority)

	result, err := o.SubmitInvoice(context.Background(), "inv-1", entity.Superadmin("admin"))
	require.NoError(t, err)
	assert.Equal(t, entity.EmissionStateAuthorized, result.State)
}

func TestSubmitInvoice_FacturaIncompleta(t *testing.T) {
	s := newStore()
	s.details = nil
	o := newOrchestrator(s, fakeSigner{}, &scriptedAuthority{})

	_, err := o.SubmitInvoice(context.Background(), "inv-1", emisor())
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)
	assert.Empty(t, s.invoice.AccessKey, "no se reserva secuencial para facturas inválidas")
	assert.Equal(t, 0, s.allocateCalls)
	assert.Equal(t, []string{entity.EmissionLogFailed}, logStatuses(s))
}

func TestSubmitInvoice_NoExiste(t *testing.T) {
	s := newStore()
	o := newOrchestrator(s, fakeSigner{}, &scriptedAuthority{})

	_, err := o.SubmitInvoice(context.Background(), "inv-404", emisor())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
