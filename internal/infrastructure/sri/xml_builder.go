package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// ComprobanteElementID es el id del elemento raíz al que apunta la Reference
// de la firma XAdES (exigido por el esquema del SRI).
const ComprobanteElementID = "comprobante"

// Versión del esquema factura soportada.
const facturaVersion = "1.1.0"

// XMLBuilderService construye el XML de la factura según el esquema
// factura v1.1.0 del SRI (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del documento <factura>. La factura debe llegar con
// clave de acceso y secuencial ya asignados; los campos obligatorios ausentes
// producen ErrIncompleteInvoice.
func (s *XMLBuilderService) Build(ctx *InvoiceBuildContext) ([]byte, error) {
	if ctx == nil || ctx.Invoice == nil || ctx.Company == nil || ctx.Customer == nil || ctx.Point == nil {
		return nil, fmt.Errorf("%w: faltan invoice, company, customer o punto de emisión en el contexto", domain.ErrIncompleteInvoice)
	}
	if len(ctx.Details) == 0 {
		return nil, fmt.Errorf("%w: la factura no tiene detalles", domain.ErrIncompleteInvoice)
	}
	if ctx.Invoice.AccessKey == "" {
		return nil, fmt.Errorf("%w: clave de acceso sin asignar", domain.ErrIncompleteInvoice)
	}
	if ctx.Company.Name == "" || ctx.Company.RUC == "" || ctx.Company.Address == "" {
		return nil, fmt.Errorf("%w: razón social, RUC y dirección matriz del emisor son obligatorios", domain.ErrIncompleteInvoice)
	}
	if ctx.Customer.Name == "" || ctx.Customer.IdentificationType == "" {
		return nil, fmt.Errorf("%w: razón social y tipo de identificación del comprador son obligatorios", domain.ErrIncompleteInvoice)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	// Root <factura id="comprobante" version="1.1.0">. El id lo referencia la firma.
	root := xml.StartElement{
		Name: xml.Name{Local: "factura"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: ComprobanteElementID},
			{Name: xml.Name{Local: "version"}, Value: facturaVersion},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	s.writeInfoTributaria(enc, ctx)
	if err := s.writeInfoFactura(enc, ctx); err != nil {
		return nil, err
	}

	// <detalles>: una entrada por línea de la factura
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "detalles"}})
	for _, d := range ctx.Details {
		s.writeDetalle(enc, d)
	}
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "detalles"}})

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeInfoTributaria escribe el bloque <infoTributaria> (datos del emisor y
// la identidad del comprobante, ficha técnica tabla del esquema factura).
func (s *XMLBuilderService) writeInfoTributaria(enc *xml.Encoder, ctx *InvoiceBuildContext) {
	writeEl(enc, "infoTributaria", func() {
		writeText(enc, "ambiente", ctx.Ambiente)
		writeText(enc, "tipoEmision", pkgsri.EmisionNormal)
		writeText(enc, "razonSocial", ctx.Company.Name)
		if ctx.Company.TradeName != "" {
			writeText(enc, "nombreComercial", ctx.Company.TradeName)
		}
		writeText(enc, "ruc", ctx.Company.RUC)
		writeText(enc, "claveAcceso", ctx.Invoice.AccessKey)
		writeText(enc, "codDoc", pkgsri.DocTypeFactura)
		writeText(enc, "estab", ctx.Point.Establishment)
		writeText(enc, "ptoEmi", ctx.Point.Code)
		writeText(enc, "secuencial", fmt.Sprintf("%09d", ctx.Invoice.Sequential))
		writeText(enc, "dirMatriz", ctx.Company.Address)
	})
}

// writeInfoFactura escribe el bloque <infoFactura>: fechas, comprador, totales
// por tarifa de IVA y pagos.
func (s *XMLBuilderService) writeInfoFactura(enc *xml.Encoder, ctx *InvoiceBuildContext) error {
	inv := ctx.Invoice
	taxGroups := groupTaxesByRate(ctx.Details)

	writeEl(enc, "infoFactura", func() {
		writeText(enc, "fechaEmision", inv.IssueDate.Format("02/01/2006"))
		if ctx.Point.Address != "" {
			writeText(enc, "dirEstablecimiento", ctx.Point.Address)
		}
		writeText(enc, "obligadoContabilidad", siNo(ctx.Company.ObligadoContabilidad))
		writeText(enc, "tipoIdentificacionComprador", ctx.Customer.IdentificationType)
		writeText(enc, "razonSocialComprador", ctx.Customer.Name)
		writeText(enc, "identificacionComprador", buyerIdentification(ctx.Customer))
		if ctx.Customer.Address != "" {
			writeText(enc, "direccionComprador", ctx.Customer.Address)
		}
		writeText(enc, "totalSinImpuestos", inv.NetTotal.StringFixed(2))
		writeText(enc, "totalDescuento", inv.Discount.StringFixed(2))

		writeEl(enc, "totalConImpuestos", func() {
			for _, g := range taxGroups {
				writeEl(enc, "totalImpuesto", func() {
					writeText(enc, "codigo", pkgsri.TaxCodeIVA)
					writeText(enc, "codigoPorcentaje", g.codigoPorcentaje)
					writeText(enc, "baseImponible", g.base.StringFixed(2))
					writeText(enc, "valor", g.valor.StringFixed(2))
				})
			}
		})

		writeText(enc, "propina", "0.00")
		writeText(enc, "importeTotal", inv.GrandTotal.StringFixed(2))
		writeText(enc, "moneda", "DOLAR")

		writeEl(enc, "pagos", func() {
			writeEl(enc, "pago", func() {
				writeText(enc, "formaPago", pkgsri.PaymentMethodSinSistemaFinanciero)
				writeText(enc, "total", inv.GrandTotal.StringFixed(2))
			})
		})
	})
	return nil
}

// writeDetalle escribe una línea <detalle> con su bloque de impuestos.
func (s *XMLBuilderService) writeDetalle(enc *xml.Encoder, d *entity.InvoiceDetail) {
	writeEl(enc, "detalle", func() {
		writeText(enc, "codigoPrincipal", d.ProductCode)
		writeText(enc, "descripcion", d.Description)
		writeText(enc, "cantidad", d.Quantity.StringFixed(6))
		writeText(enc, "precioUnitario", d.UnitPrice.StringFixed(6))
		writeText(enc, "descuento", d.Discount.StringFixed(2))
		writeText(enc, "precioTotalSinImpuesto", d.Subtotal.StringFixed(2))
		writeEl(enc, "impuestos", func() {
			writeEl(enc, "impuesto", func() {
				writeText(enc, "codigo", pkgsri.TaxCodeIVA)
				writeText(enc, "codigoPorcentaje", ivaCodigoPorcentaje(d.TaxRate))
				writeText(enc, "tarifa", d.TaxRate.StringFixed(2))
				writeText(enc, "baseImponible", d.Subtotal.StringFixed(2))
				writeText(enc, "valor", lineTax(d).StringFixed(2))
			})
		})
	})
}

// ── helpers ───────────────────────────────────────────────────────────────────

type taxGroup struct {
	codigoPorcentaje string
	base             decimal.Decimal
	valor            decimal.Decimal
}

// groupTaxesByRate agrupa las líneas por tarifa de IVA: un <totalImpuesto> por
// tarifa presente en la factura, en orden de primera aparición.
func groupTaxesByRate(details []*entity.InvoiceDetail) []taxGroup {
	index := map[string]int{}
	var groups []taxGroup
	for _, d := range details {
		code := ivaCodigoPorcentaje(d.TaxRate)
		i, ok := index[code]
		if !ok {
			i = len(groups)
			index[code] = i
			groups = append(groups, taxGroup{codigoPorcentaje: code})
		}
		groups[i].base = groups[i].base.Add(d.Subtotal)
		groups[i].valor = groups[i].valor.Add(lineTax(d))
	}
	return groups
}

// lineTax calcula el IVA de una línea: subtotal * tarifa / 100, redondeado a 2.
func lineTax(d *entity.InvoiceDetail) decimal.Decimal {
	return d.Subtotal.Mul(d.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
}

// ivaCodigoPorcentaje mapea la tarifa de IVA a su código (tabla 17): 0% -> 0,
// 12% -> 2, 15% -> 4. Tarifas no catalogadas usan el código de tarifa vigente.
func ivaCodigoPorcentaje(rate decimal.Decimal) string {
	switch {
	case rate.IsZero():
		return pkgsri.IVARate0
	case rate.Equal(decimal.NewFromInt(12)):
		return pkgsri.IVARate12
	case rate.Equal(decimal.NewFromInt(15)):
		return pkgsri.IVARate15
	default:
		return pkgsri.IVARate15
	}
}

func buyerIdentification(c *entity.Customer) string {
	if c.IdentificationType == pkgsri.IdentificationTypeConsumidorFinal && c.Identification == "" {
		return "9999999999999"
	}
	return c.Identification
}

func siNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

func writeText(enc *xml.Encoder, local, value string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local string, body func()) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
	body()
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}
