package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// GetByID obtiene la cabecera de una factura por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	const query = `
		SELECT id, company_id, customer_id, emission_point_id,
		       COALESCE(sequential, 0), COALESCE(numeric_code, ''), COALESCE(access_key, ''),
		       issue_date, net_total, discount, tax_total, grand_total, status,
		       created_at, updated_at
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.EmissionPointID,
		&inv.Sequential, &inv.NumericCode, &inv.AccessKey,
		&inv.IssueDate, &inv.NetTotal, &inv.Discount, &inv.TaxTotal, &inv.GrandTotal, &inv.Status,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, translateError("get invoice", err)
	}
	return &inv, nil
}

// GetDetailsByInvoiceID obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	const query = `
		SELECT id, invoice_id, product_code, description, quantity, unit_price, discount, tax_rate, subtotal
		FROM invoice_details WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, translateError("list invoice details", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceDetail
	for rows.Next() {
		var d entity.InvoiceDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.ProductCode, &d.Description,
			&d.Quantity, &d.UnitPrice, &d.Discount, &d.TaxRate, &d.Subtotal); err != nil {
			return nil, translateError("scan invoice detail", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// UpdateEmissionIdentity persiste secuencial, código numérico y clave de acceso.
// Solo escribe si la factura aún no tiene clave: la identidad de emisión se
// asigna una sola vez y los reintentos reutilizan la existente.
func (r *InvoiceRepo) UpdateEmissionIdentity(ctx context.Context, invoiceID string, sequential int64, numericCode, accessKey string) error {
	const query = `
		UPDATE invoices
		SET sequential = $2, numeric_code = $3, access_key = $4, updated_at = now()
		WHERE id = $1 AND (access_key IS NULL OR access_key = '')`
	if _, err := r.q.Exec(ctx, query, invoiceID, sequential, numericCode, accessKey); err != nil {
		return translateError("update invoice emission identity", err)
	}
	return nil
}

// UpdateStatus actualiza el estado de la factura.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, invoiceID, status string) error {
	const query = `UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, invoiceID, status)
	if err != nil {
		return translateError("update invoice status", err)
	}
	if tag.RowsAffected() == 0 {
		return translateError("update invoice status", pgx.ErrNoRows)
	}
	return nil
}
