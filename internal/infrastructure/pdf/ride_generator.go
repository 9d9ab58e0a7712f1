// Package pdf implementa la generación del RIDE (Representación Impresa del
// Documento Electrónico) de la factura, según la Ficha Técnica de Comprobantes
// Electrónicos del SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC  │  FACTURA 001-002-000000123    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  AUTORIZACIÓN: número, fecha, ambiente                       │
//	│  CLAVE DE ACCESO: 49 dígitos + código de barras              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ADQUIRIENTE: Nombre + identificación                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Código | Descripción | P.Unit | Subtotal      │
//	│  TOTALES: Subtotal / IVA por tarifa / VALOR TOTAL (USD)      │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/barcode"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// RIDEGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type RIDEGenerator struct{}

var _ billing.InvoicePDFGenerator = (*RIDEGenerator)(nil)

// NewRIDEGenerator construye el generador.
func NewRIDEGenerator() *RIDEGenerator { return &RIDEGenerator{} }

// GenerateRIDE genera el RIDE en PDF y devuelve sus bytes.
func (g *RIDEGenerator) GenerateRIDE(_ context.Context, data *billing.RIDEData) ([]byte, error) {
	if data == nil || data.Invoice == nil || data.Company == nil || data.Customer == nil {
		return nil, fmt.Errorf("pdf: datos del RIDE incompletos")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+invoiceNumber(data.Invoice), true).
		WithAuthor(data.Company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(data.Invoice, data.Company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(authorizationRows(data)...)
	m.AddRows(accessKeyRows(data.Invoice)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(buyerRow(data.Customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(data.Details) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(data.Invoice, data.Details))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar RIDE: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: Razón social + RUC (izq) y número de factura + fecha (der).
func headerRow(invoice *entity.Invoice, company *entity.Company) core.Row {
	fecha := invoice.IssueDate.Format("02/01/2006")
	name := company.Name
	if company.TradeName != "" {
		name = company.TradeName
	}

	return row.New(22).Add(
		col.New(7).Add(
			text.New(name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("R.U.C.: "+company.RUC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
			text.New("Matriz: "+company.Address, props.Text{
				Size: 8, Top: 14, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("No. "+invoiceNumber(invoice), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 8,
			}),
			text.New("Fecha de emisión: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 15, Color: colorGray,
			}),
		),
	)
}

// authorizationRows: número y fecha de autorización más el ambiente. Si la
// factura aún no está autorizada el RIDE lo dice explícitamente.
func authorizationRows(data *billing.RIDEData) []core.Row {
	auth := data.Authorization

	numero := "PENDIENTE DE AUTORIZACIÓN"
	fecha := "—"
	if auth != nil && auth.Status == entity.AuthorizationStatusAuthorized {
		numero = auth.AuthorizationNumber
		if auth.AuthorizedAt != nil {
			fecha = auth.AuthorizedAt.Format("02/01/2006 15:04:05")
		}
	}

	return []core.Row{
		row.New(12).Add(
			col.New(8).Add(
				text.New("NÚMERO DE AUTORIZACIÓN", props.Text{
					Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
				}),
				text.New(numero, props.Text{Size: 8, Top: 6}),
			),
			col.New(4).Add(
				text.New("AMBIENTE", props.Text{
					Style: fontstyle.Bold, Size: 8, Align: align.Right,
					Color: colorPrimary, Top: 1,
				}),
				text.New(ambienteLabel(data.Ambiente), props.Text{
					Size: 8, Align: align.Right, Top: 6,
				}),
			),
		),
		row.New(8).Add(
			col.New(12).Add(
				text.New("Fecha y hora de autorización: "+fecha, props.Text{
					Size: 8, Top: 1, Color: colorGray,
				}),
			),
		),
	}
}

// accessKeyRows: la clave de acceso en texto y como código de barras Code128,
// como exige la ficha técnica para el RIDE.
func accessKeyRows(invoice *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(8).Add(col.New(12).Add(
			text.New("CLAVE DE ACCESO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.AccessKey, props.Text{Size: 8, Top: 5}),
		)),
	}
	if invoice.AccessKey != "" {
		rows = append(rows, row.New(14).Add(
			col.New(12).Add(code.NewBar(invoice.AccessKey, props.Barcode{
				Type:    barcode.Code128,
				Percent: 95,
				Center:  true,
			})),
		))
	}
	return rows
}

// buyerRow: datos del adquiriente.
func buyerRow(customer *entity.Customer) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("ADQUIRIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(customer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Identificación: %s   |   Dirección: %s   |   Email: %s",
				buyerIdentification(customer),
				nonEmpty(customer.Address, "—"),
				nonEmpty(customer.Email, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Código", 2, align.Left),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

// tableDetailRows: una fila por línea de detalle.
func tableDetailRows(details []*entity.InvoiceDetail) []core.Row {
	result := make([]core.Row, 0, len(details))
	for _, d := range details {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				d.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				d.ProductCode,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(4).Add(text.New(
				d.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"$"+d.UnitPrice.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				"$"+d.Subtotal.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales en dólares, con el IVA desglosado por tarifa.
func totalsRow(invoice *entity.Invoice, details []*entity.InvoiceDetail) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(30).Add(
		col.New(3),
		col.New(4).Add(
			label("Subtotal sin impuestos:"),
			label("Descuento:"),
			label("IVA:"),
			grandLabel("VALOR TOTAL (USD):"),
		),
		col.New(3).Add(
			value("$"+invoice.NetTotal.StringFixed(2)),
			value("$"+invoice.Discount.StringFixed(2)),
			value("$"+invoice.TaxTotal.StringFixed(2)),
			grandValue("$"+invoice.GrandTotal.StringFixed(2)),
		),
		col.New(2),
	)
}

// footerRow: leyenda de validez del documento.
func footerRow() core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(
			"Documento generado a partir de un comprobante electrónico autorizado por el SRI. "+
				"Verifique su validez con la clave de acceso en el portal de comprobantes electrónicos.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

// invoiceNumber arma el número impreso estab-ptoEmi-secuencial a partir de la
// clave de acceso (posiciones 24-29 y 30-38).
func invoiceNumber(invoice *entity.Invoice) string {
	key := invoice.AccessKey
	if len(key) != 49 {
		return fmt.Sprintf("%09d", invoice.Sequential)
	}
	return fmt.Sprintf("%s-%s-%s", key[24:27], key[27:30], key[30:39])
}

func ambienteLabel(ambiente string) string {
	if ambiente == pkgsri.AmbienteProduccion {
		return "PRODUCCIÓN"
	}
	return "PRUEBAS"
}

func buyerIdentification(customer *entity.Customer) string {
	if customer.IdentificationType == pkgsri.IdentificationTypeConsumidorFinal || customer.Identification == "" {
		return "CONSUMIDOR FINAL"
	}
	return customer.Identification
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
