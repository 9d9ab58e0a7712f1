// Package sri: generación de la clave de acceso de comprobantes electrónicos
// según la Ficha Técnica del SRI (Ecuador). 48 dígitos de ancho fijo más un
// dígito verificador módulo 11.
package sri

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// AccessKeyParams contiene los campos de la clave de acceso en el orden y
// ancho exigidos por el SRI: fecha de emisión (8, ddmmaaaa), tipo de
// comprobante (2), RUC (13), ambiente (1), establecimiento+punto de emisión
// (6), secuencial (9), código numérico (8) y tipo de emisión (1).
type AccessKeyParams struct {
	IssueDate     time.Time
	DocType       string // "01" factura
	RUC           string // 13 dígitos
	Ambiente      string // "1" pruebas, "2" producción
	Establishment string // 3 dígitos
	EmissionPoint string // 3 dígitos
	Sequential    int64  // se rellena con ceros a 9 dígitos
	NumericCode   string // 8 dígitos (aleatorio, estable por factura)
	EmissionType  string // "1" emisión normal
}

// AccessKeyService genera y valida claves de acceso.
type AccessKeyService struct{}

// NewAccessKeyService crea el servicio.
func NewAccessKeyService() *AccessKeyService {
	return &AccessKeyService{}
}

// Generate construye la clave de acceso de 49 dígitos: los 48 dígitos de ancho
// fijo seguidos del dígito verificador módulo 11. Los anchos no son
// negociables: cualquier campo que no quepa produce ErrInvalidField.
func (s *AccessKeyService) Generate(p *AccessKeyParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: parámetros nulos", domain.ErrInvalidField)
	}
	if p.IssueDate.IsZero() {
		return "", fmt.Errorf("%w: fecha de emisión requerida", domain.ErrInvalidField)
	}

	fields := []struct {
		name  string
		value string
		width int
	}{
		{"tipo de comprobante", p.DocType, 2},
		{"RUC", p.RUC, 13},
		{"ambiente", p.Ambiente, 1},
		{"establecimiento", p.Establishment, 3},
		{"punto de emisión", p.EmissionPoint, 3},
		{"código numérico", p.NumericCode, 8},
		{"tipo de emisión", p.EmissionType, 1},
	}
	for _, f := range fields {
		if len(f.value) != f.width || !isDigits(f.value) {
			return "", fmt.Errorf("%w: %s debe tener %d dígitos, recibido %q",
				domain.ErrInvalidField, f.name, f.width, f.value)
		}
	}
	if p.Sequential < 1 || p.Sequential > 999_999_999 {
		return "", fmt.Errorf("%w: secuencial fuera de rango: %d", domain.ErrInvalidField, p.Sequential)
	}

	var b strings.Builder
	b.Grow(49)
	b.WriteString(p.IssueDate.Format("02012006"))
	b.WriteString(p.DocType)
	b.WriteString(p.RUC)
	b.WriteString(p.Ambiente)
	b.WriteString(p.Establishment)
	b.WriteString(p.EmissionPoint)
	fmt.Fprintf(&b, "%09d", p.Sequential)
	b.WriteString(p.NumericCode)
	b.WriteString(p.EmissionType)

	base := b.String()
	return base + string('0'+byte(CheckDigit(base))), nil
}

// CheckDigit calcula el dígito verificador módulo 11 de una cadena de dígitos:
// pesos 2,3,4,5,6,7 cíclicos aplicados de derecha a izquierda, suma, y
// 11 - (suma mod 11), con 11 -> 0 y 10 -> 1.
func CheckDigit(digits string) int {
	weights := [6]int{2, 3, 4, 5, 6, 7}
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		sum += d * weights[i%6]
	}
	check := 11 - (sum % 11)
	switch check {
	case 11:
		return 0
	case 10:
		return 1
	}
	return check
}

// ValidateAccessKey verifica que la clave tenga 49 dígitos ASCII y que el
// dígito 49 coincida con el módulo 11 de los 48 primeros.
func ValidateAccessKey(key string) error {
	if len(key) != 49 || !isDigits(key) {
		return fmt.Errorf("%w: la clave de acceso debe tener 49 dígitos", domain.ErrInvalidField)
	}
	if int(key[48]-'0') != CheckDigit(key[:48]) {
		return fmt.Errorf("%w: dígito verificador de la clave de acceso inválido", domain.ErrInvalidField)
	}
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
