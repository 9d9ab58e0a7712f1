package sri_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/sri"
)

func validInvoice() (*entity.Invoice, []*entity.InvoiceDetail, *entity.Customer) {
	inv := &entity.Invoice{
		ID:         "inv-1",
		IssueDate:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		NetTotal:   decimal.RequireFromString("100.00"),
		TaxTotal:   decimal.RequireFromString("15.00"),
		GrandTotal: decimal.RequireFromString("115.00"),
	}
	details := []*entity.InvoiceDetail{
		{Subtotal: decimal.RequireFromString("60.00")},
		{Subtotal: decimal.RequireFromString("40.00")},
	}
	customer := &entity.Customer{
		Name:               "Juan Pérez",
		IdentificationType: "05",
		Identification:     "1712345678",
	}
	return inv, details, customer
}

func TestValidateInvoiceForEmission_OK(t *testing.T) {
	inv, details, customer := validInvoice()
	assert.NoError(t, sri.ValidateInvoiceForEmission(inv, details, customer))
}

func TestValidateInvoiceForEmission_SinDetalles(t *testing.T) {
	inv, _, customer := validInvoice()
	err := sri.ValidateInvoiceForEmission(inv, nil, customer)
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)
}

func TestValidateInvoiceForEmission_TotalesInconsistentes(t *testing.T) {
	inv, details, customer := validInvoice()
	inv.NetTotal = decimal.RequireFromString("99.00")
	err := sri.ValidateInvoiceForEmission(inv, details, customer)
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)

	inv, details, customer = validInvoice()
	inv.GrandTotal = decimal.RequireFromString("120.00")
	err = sri.ValidateInvoiceForEmission(inv, details, customer)
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)
}

func TestValidateInvoiceForEmission_RUCDeCompradorInvalido(t *testing.T) {
	inv, details, customer := validInvoice()
	customer.IdentificationType = "04"
	customer.Identification = "1790012345000" // sufijo 000
	err := sri.ValidateInvoiceForEmission(inv, details, customer)
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)
}

func TestValidateInvoiceForEmission_SinIdentificacion(t *testing.T) {
	inv, details, customer := validInvoice()
	customer.Identification = ""
	err := sri.ValidateInvoiceForEmission(inv, details, customer)
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)

	// Consumidor final sí puede ir sin identificación.
	customer.IdentificationType = "07"
	assert.NoError(t, sri.ValidateInvoiceForEmission(inv, details, customer))
}
