package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.AuditTrailRepository = (*AuditTrailRepo)(nil)

// AuditTrailRepo implementación de AuditTrailRepository (usable con pool o tx).
// La bitácora es append-only: este repositorio no expone UPDATE ni DELETE
// sobre emission_logs.
type AuditTrailRepo struct {
	q Querier
}

// NewAuditTrailRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditTrailRepository(q Querier) *AuditTrailRepo {
	return &AuditTrailRepo{q: q}
}

// maxAttemptCollisions reintentos de numeración ante escritores concurrentes.
const maxAttemptCollisions = 3

// AppendLog inserta una fila de bitácora. Con entry.Attempt en 0, el número de
// intento se calcula en la misma sentencia (MAX + 1 por factura); la
// restricción UNIQUE (invoice_id, attempt) detecta la carrera entre escritores
// concurrentes y la numeración se reintenta sobre el nuevo máximo.
func (r *AuditTrailRepo) AppendLog(ctx context.Context, entry *entity.EmissionLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	const query = `
		INSERT INTO emission_logs (id, invoice_id, attempt, status, message, created_at)
		VALUES ($1, $2,
			CASE WHEN $3 > 0 THEN $3
			     ELSE COALESCE((SELECT MAX(attempt) FROM emission_logs WHERE invoice_id = $2), 0) + 1
			END,
			$4, $5, $6)
		RETURNING attempt`
	requested := entry.Attempt
	var err error
	for i := 0; i <= maxAttemptCollisions; i++ {
		err = r.q.QueryRow(ctx, query,
			entry.ID, entry.InvoiceID, requested, entry.Status, entry.Message, entry.CreatedAt,
		).Scan(&entry.Attempt)
		if err == nil {
			return nil
		}
		// Solo la numeración automática puede colisionar; un attempt explícito
		// duplicado es un error del caller.
		if requested != 0 || !isUniqueViolation(err) {
			break
		}
	}
	return translateError("append emission log", err)
}

// UpsertAuthorization crea o reemplaza el registro de autorización de la
// factura. La restricción UNIQUE sobre invoice_id garantiza a lo sumo un
// registro vigente por factura.
func (r *AuditTrailRepo) UpsertAuthorization(ctx context.Context, record *entity.AuthorizationRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO authorizations
			(id, invoice_id, status, authorization_number, authorized_at, raw_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (invoice_id) DO UPDATE SET
			status               = EXCLUDED.status,
			authorization_number = EXCLUDED.authorization_number,
			authorized_at        = EXCLUDED.authorized_at,
			raw_response         = EXCLUDED.raw_response,
			updated_at           = now()`
	_, err := r.q.Exec(ctx, query,
		record.ID, record.InvoiceID, record.Status,
		record.AuthorizationNumber, record.AuthorizedAt, record.RawResponse,
	)
	if err != nil {
		return translateError("upsert authorization", err)
	}
	return nil
}

func (r *AuditTrailRepo) GetAuthorizationByInvoiceID(ctx context.Context, invoiceID string) (*entity.AuthorizationRecord, error) {
	const query = `
		SELECT id, invoice_id, status, COALESCE(authorization_number, ''),
		       authorized_at, COALESCE(raw_response, ''), created_at, updated_at
		FROM authorizations WHERE invoice_id = $1`
	var rec entity.AuthorizationRecord
	err := r.q.QueryRow(ctx, query, invoiceID).Scan(
		&rec.ID, &rec.InvoiceID, &rec.Status, &rec.AuthorizationNumber,
		&rec.AuthorizedAt, &rec.RawResponse, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, translateError("get authorization", err)
	}
	return &rec, nil
}

func (r *AuditTrailRepo) ListLogsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.EmissionLogEntry, error) {
	const query = `
		SELECT id, invoice_id, attempt, status, COALESCE(message, ''), created_at
		FROM emission_logs WHERE invoice_id = $1 ORDER BY attempt, created_at`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, translateError("list emission logs", err)
	}
	defer rows.Close()
	var list []*entity.EmissionLogEntry
	for rows.Next() {
		var e entity.EmissionLogEntry
		if err := rows.Scan(&e.ID, &e.InvoiceID, &e.Attempt, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, translateError("scan emission log", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
