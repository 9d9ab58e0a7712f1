package billing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	infrasri "github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// EmissionResult es el desenlace de un intento de emisión.
type EmissionResult struct {
	InvoiceID string
	AccessKey string
	// State es el estado del pipeline al terminar el intento: AUTHORIZED,
	// RETURNED, REJECTED o AUTHORIZING (recibida, autorización pendiente).
	State               string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Messages            []string
}

// EmissionOrchestrator orquesta el ciclo completo de emisión de una factura:
//
//	secuencial → clave de acceso → XML factura 1.1.0 → firma XAdES-BES →
//	recepción SOAP → autorización SOAP → persistencia transaccional + bitácora
//
// La operación es idempotente frente a reintentos: la identidad de emisión
// (secuencial, código numérico, clave de acceso) se asigna una sola vez y los
// reintentos la reutilizan, por lo que el SRI siempre ve el mismo comprobante.
// Semántica al menos una vez: ante error de conexión no se cambia el estado de
// la factura y el caller puede reintentar.
type EmissionOrchestrator struct {
	invoiceRepo repository.InvoiceRepository
	companyRepo repository.CompanyRepository
	customerRepo repository.CustomerRepository
	pointRepo   repository.EmissionPointRepository
	certRepo    repository.CertificateConfigRepository
	auditRepo   repository.AuditTrailRepository
	txRunner    EmissionTxRunner

	accessKeys *domainsri.AccessKeyService
	xmlBuilder ComprobanteBuilder
	signer     InvoiceSigner
	authority  infrasri.AuthorityClient

	log *logger.Logger
}

// NewEmissionOrchestrator construye el orquestador con todas sus dependencias.
func NewEmissionOrchestrator(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	pointRepo repository.EmissionPointRepository,
	certRepo repository.CertificateConfigRepository,
	auditRepo repository.AuditTrailRepository,
	txRunner EmissionTxRunner,
	accessKeys *domainsri.AccessKeyService,
	xmlBuilder ComprobanteBuilder,
	signer InvoiceSigner,
	authority infrasri.AuthorityClient,
	log *logger.Logger,
) *EmissionOrchestrator {
	return &EmissionOrchestrator{
		invoiceRepo:  invoiceRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		pointRepo:    pointRepo,
		certRepo:     certRepo,
		auditRepo:    auditRepo,
		txRunner:     txRunner,
		accessKeys:   accessKeys,
		xmlBuilder:   xmlBuilder,
		signer:       signer,
		authority:    authority,
		log:          log,
	}
}

// SubmitInvoice ejecuta un intento de emisión completo para la factura.
// Cada intento deja exactamente una fila en la bitácora con su desenlace.
func (o *EmissionOrchestrator) SubmitInvoice(ctx context.Context, invoiceID string, actor entity.Actor) (*EmissionResult, error) {
	log := o.log.With().Str("invoice_id", invoiceID).Str("actor", actor.UserID).Logger()

	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEmitFor(inv.CompanyID) {
		return nil, fmt.Errorf("%w: el actor no puede emitir para la empresa %s", domain.ErrForbidden, inv.CompanyID)
	}
	if inv.Status == entity.InvoiceStatusAuthorized {
		o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, "la factura ya está autorizada")
		return nil, domain.ErrAlreadyAuthorized
	}

	company, err := o.companyRepo.GetByID(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	customer, err := o.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	point, err := o.pointRepo.GetByID(ctx, inv.EmissionPointID)
	if err != nil {
		return nil, err
	}
	details, err := o.invoiceRepo.GetDetailsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := domainsri.ValidateInvoiceForEmission(inv, details, customer); err != nil {
		o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		return nil, err
	}

	certCfg, err := o.certRepo.GetActiveByCompanyID(ctx, inv.CompanyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%w: empresa %s", domain.ErrConfigurationMissing, inv.CompanyID)
		}
		o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		return nil, err
	}
	// El certificado vencido corta el pipeline antes de reservar secuencial o
	// construir el comprobante: ExpiresAt se guarda en claro para esto.
	if !certCfg.ExpiresAt.IsZero() && time.Now().After(certCfg.ExpiresAt) {
		err := fmt.Errorf("%w: venció el %s", domain.ErrCertificateExpired,
			certCfg.ExpiresAt.Format("2006-01-02"))
		o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		return nil, err
	}
	ambiente := certCfg.Ambiente
	if ambiente == "" {
		ambiente = pkgsri.AmbientePruebas
	}

	// Identidad de emisión: se asigna una sola vez; los reintentos reutilizan
	// la clave de acceso existente para que el SRI vea siempre el mismo
	// comprobante.
	if inv.AccessKey == "" {
		if err := o.assignEmissionIdentity(ctx, inv, company, point, ambiente); err != nil {
			o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
			return nil, err
		}
		log.Info().Str("access_key", inv.AccessKey).Int64("sequential", inv.Sequential).
			Msg("identidad de emisión asignada")
	}

	// Construcción y firma. El certificado se descifra dentro del firmador y
	// se borra al salir.
	xmlBytes, err := o.xmlBuilder.Build(&infrasri.InvoiceBuildContext{
		Invoice:  inv,
		Company:  company,
		Customer: customer,
		Point:    point,
		Details:  details,
		Ambiente: ambiente,
	})
	if err != nil {
		o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		return nil, err
	}
	signedXML, err := o.signer.SignInvoice(xmlBytes, certCfg, company.RUC)
	if err != nil {
		o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		return nil, err
	}

	// Fase 1: recepción.
	reception, err := o.authority.Submit(ctx, signedXML, ambiente)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			// Al menos una vez: sin cambio de estado, el caller reintenta.
			o.appendLog(ctx, invoiceID, entity.EmissionLogErrorConexion, err.Error())
		} else {
			o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		}
		return nil, err
	}
	if !reception.Accepted() {
		msg := joinMessages(reception.Mensajes)
		log.Warn().Str("estado", reception.Estado).Str("mensajes", msg).Msg("comprobante devuelto en recepción")
		if err := o.persistOutcome(ctx, inv, "", &entity.AuthorizationRecord{
			InvoiceID:   invoiceID,
			Status:      entity.AuthorizationStatusReturned,
			RawResponse: reception.Raw,
		}, entity.EmissionLogDevuelta, msg); err != nil {
			return nil, err
		}
		return &EmissionResult{
			InvoiceID: invoiceID,
			AccessKey: inv.AccessKey,
			State:     entity.EmissionStateReturned,
			Messages:  reception.Mensajes,
		}, fmt.Errorf("%w: %s", domain.ErrProtocolRejection, msg)
	}
	o.appendLog(ctx, invoiceID, entity.EmissionLogRecibida, "comprobante recibido por el SRI")

	// Fase 2: autorización.
	auth, err := o.authority.CheckAuthorization(ctx, inv.AccessKey, ambiente)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			o.appendLog(ctx, invoiceID, entity.EmissionLogErrorConexion, err.Error())
		} else {
			o.appendLog(ctx, invoiceID, entity.EmissionLogFailed, err.Error())
		}
		return nil, err
	}

	switch auth.Estado {
	case infrasri.EstadoAutorizado:
		record := &entity.AuthorizationRecord{
			InvoiceID:           invoiceID,
			Status:              entity.AuthorizationStatusAuthorized,
			AuthorizationNumber: auth.AuthorizationNumber,
			AuthorizedAt:        auth.AuthorizedAt,
			RawResponse:         auth.Raw,
		}
		if err := o.persistOutcome(ctx, inv, entity.InvoiceStatusAuthorized, record,
			entity.EmissionLogAutorizada, "comprobante autorizado"); err != nil {
			return nil, err
		}
		log.Info().Str("numero_autorizacion", auth.AuthorizationNumber).Msg("factura autorizada")
		return &EmissionResult{
			InvoiceID:           invoiceID,
			AccessKey:           inv.AccessKey,
			State:               entity.EmissionStateAuthorized,
			AuthorizationNumber: auth.AuthorizationNumber,
			AuthorizedAt:        auth.AuthorizedAt,
		}, nil

	case infrasri.EstadoNoAutorizado:
		msg := joinMessages(auth.Mensajes)
		log.Warn().Str("mensajes", msg).Msg("comprobante no autorizado")
		if err := o.persistOutcome(ctx, inv, "", &entity.AuthorizationRecord{
			InvoiceID:   invoiceID,
			Status:      entity.AuthorizationStatusRejected,
			RawResponse: auth.Raw,
		}, entity.EmissionLogNoAutorizada, msg); err != nil {
			return nil, err
		}
		return &EmissionResult{
			InvoiceID: invoiceID,
			AccessKey: inv.AccessKey,
			State:     entity.EmissionStateRejected,
			Messages:  auth.Mensajes,
		}, fmt.Errorf("%w: %s", domain.ErrProtocolRejection, msg)

	default:
		// EN PROCESO u otro estado intermedio: quedó recibida, la
		// autorización se consulta después.
		if err := o.persistOutcome(ctx, inv, "", &entity.AuthorizationRecord{
			InvoiceID:   invoiceID,
			Status:      entity.AuthorizationStatusReceived,
			RawResponse: auth.Raw,
		}, entity.EmissionLogRecibida, "autorización en proceso: "+auth.Estado); err != nil {
			return nil, err
		}
		return &EmissionResult{
			InvoiceID: invoiceID,
			AccessKey: inv.AccessKey,
			State:     entity.EmissionStateAuthorizing,
			Messages:  auth.Mensajes,
		}, nil
	}
}

// assignEmissionIdentity reserva el secuencial, genera el código numérico y la
// clave de acceso, y los persiste sobre la factura.
func (o *EmissionOrchestrator) assignEmissionIdentity(ctx context.Context, inv *entity.Invoice, company *entity.Company, point *entity.EmissionPoint, ambiente string) error {
	seq, err := o.pointRepo.AllocateSequence(ctx, inv.EmissionPointID)
	if err != nil {
		return err
	}
	numericCode, err := newNumericCode()
	if err != nil {
		return err
	}
	key, err := o.accessKeys.Generate(&domainsri.AccessKeyParams{
		IssueDate:     inv.IssueDate,
		DocType:       pkgsri.DocTypeFactura,
		RUC:           company.RUC,
		Ambiente:      ambiente,
		Establishment: point.Establishment,
		EmissionPoint: point.Code,
		Sequential:    seq,
		NumericCode:   numericCode,
		EmissionType:  pkgsri.EmisionNormal,
	})
	if err != nil {
		return err
	}
	if err := o.invoiceRepo.UpdateEmissionIdentity(ctx, inv.ID, seq, numericCode, key); err != nil {
		return err
	}
	inv.Sequential = seq
	inv.NumericCode = numericCode
	inv.AccessKey = key
	return nil
}

// persistOutcome graba el desenlace del intento de forma atómica: estado de la
// factura (si cambia), registro de autorización y fila de bitácora.
func (o *EmissionOrchestrator) persistOutcome(ctx context.Context, inv *entity.Invoice, newStatus string, record *entity.AuthorizationRecord, logStatus, logMessage string) error {
	return o.txRunner.RunEmission(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditTrailRepository,
	) error {
		if newStatus != "" && newStatus != inv.Status {
			if err := invoiceRepo.UpdateStatus(ctx, inv.ID, newStatus); err != nil {
				return err
			}
			inv.Status = newStatus
		}
		if record != nil {
			if err := auditRepo.UpsertAuthorization(ctx, record); err != nil {
				return err
			}
		}
		return auditRepo.AppendLog(ctx, &entity.EmissionLogEntry{
			InvoiceID: inv.ID,
			Status:    logStatus,
			Message:   logMessage,
		})
	})
}

// appendLog registra una fila de bitácora fuera de transacción. El fallo de la
// bitácora no oculta el error original: solo se deja constancia en el log.
func (o *EmissionOrchestrator) appendLog(ctx context.Context, invoiceID, status, message string) {
	err := o.auditRepo.AppendLog(ctx, &entity.EmissionLogEntry{
		InvoiceID: invoiceID,
		Status:    status,
		Message:   message,
	})
	if err != nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Str("status", status).
			Msg("no se pudo escribir la bitácora de emisión")
	}
}

// newNumericCode genera el código numérico de 8 dígitos de la clave de acceso
// con aleatoriedad criptográfica.
func newNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generar código numérico: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

func joinMessages(msgs []string) string {
	if len(msgs) == 0 {
		return "sin mensajes del SRI"
	}
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}
	return out
}
