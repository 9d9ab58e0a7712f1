package sri

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// ValidateInvoiceForEmission valida la factura antes de construir el
// comprobante: debe tener detalles, totales coherentes con la suma de las
// líneas e identificación de comprador válida según su tipo.
func ValidateInvoiceForEmission(invoice *entity.Invoice, details []*entity.InvoiceDetail, customer *entity.Customer) error {
	if invoice == nil {
		return fmt.Errorf("%w: factura nula", domain.ErrIncompleteInvoice)
	}
	if len(details) == 0 {
		return fmt.Errorf("%w: la factura no tiene detalles", domain.ErrIncompleteInvoice)
	}
	if customer == nil {
		return fmt.Errorf("%w: comprador requerido", domain.ErrIncompleteInvoice)
	}

	if customer.IdentificationType == pkgsri.IdentificationTypeRUC {
		if err := pkgsri.ValidateRUC(customer.Identification); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrIncompleteInvoice, err)
		}
	}
	if customer.Identification == "" && customer.IdentificationType != pkgsri.IdentificationTypeConsumidorFinal {
		return fmt.Errorf("%w: identificación del comprador requerida", domain.ErrIncompleteInvoice)
	}

	sum := decimal.Zero
	for _, d := range details {
		sum = sum.Add(d.Subtotal)
	}
	if !sum.Round(2).Equal(invoice.NetTotal.Round(2)) {
		return fmt.Errorf("%w: total sin impuestos %s no coincide con la suma de líneas %s",
			domain.ErrIncompleteInvoice, invoice.NetTotal.StringFixed(2), sum.StringFixed(2))
	}
	expectedTotal := invoice.NetTotal.Add(invoice.TaxTotal)
	if !expectedTotal.Round(2).Equal(invoice.GrandTotal.Round(2)) {
		return fmt.Errorf("%w: importe total %s no coincide con neto+IVA %s",
			domain.ErrIncompleteInvoice, invoice.GrandTotal.StringFixed(2), expectedTotal.StringFixed(2))
	}
	return nil
}
