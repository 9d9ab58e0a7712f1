package sri

import (
	"fmt"
	"unicode"
)

// ValidateRUC valida la estructura de un RUC ecuatoriano: 13 dígitos, código de
// provincia entre 01 y 24 (o 30 para ecuatorianos en el exterior) y sufijo de
// establecimiento distinto de "000".
func ValidateRUC(ruc string) error {
	digits := extractDigits(ruc)
	if len(digits) != 13 {
		return fmt.Errorf("sri: RUC debe tener 13 dígitos, se encontraron %d", len(digits))
	}
	province := int(digits[0]-'0')*10 + int(digits[1]-'0')
	if (province < 1 || province > 24) && province != 30 {
		return fmt.Errorf("sri: código de provincia del RUC inválido: %02d", province)
	}
	if string(digits[10:]) == "000" {
		return fmt.Errorf("sri: el sufijo de establecimiento del RUC no puede ser 000")
	}
	return nil
}

// NormalizeRUC deja solo los dígitos del RUC (quita puntos, guiones y espacios).
func NormalizeRUC(ruc string) string {
	return string(extractDigits(ruc))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
