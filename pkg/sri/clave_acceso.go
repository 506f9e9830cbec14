package sri

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AccessKeyLength longitud fija de la clave de acceso (48 dígitos + verificador).
const AccessKeyLength = 49

// ErrInvalidInput error base para entradas de la clave de acceso con formato inválido.
var ErrInvalidInput = errors.New("sri: entrada inválida")

// InvalidInputError describe el campo que no cumple ancho o formato numérico.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("sri: campo %s inválido: %s", e.Field, e.Reason)
}

// Unwrap permite errors.Is(err, ErrInvalidInput).
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// AccessKeyInput campos de la clave de acceso (Ficha Técnica, sección 4).
type AccessKeyInput struct {
	Date          time.Time // fecha de emisión (ddMMyyyy)
	DocType       string    // codDoc, 2 dígitos
	RUC           string    // RUC del emisor, 13 dígitos
	Environment   string    // ambiente, 1 dígito
	Establishment string    // estab, 3 dígitos
	EmissionPoint string    // ptoEmi, 3 dígitos
	Sequence      string    // secuencial, 9 dígitos
	NumericCode   string    // código numérico, 8 dígitos
	EmissionType  string    // tipoEmision, 1 dígito
}

// GenerateAccessKey concatena los 48 dígitos y agrega el dígito verificador módulo 11.
// Es determinística: mismas entradas producen la misma clave.
func GenerateAccessKey(in AccessKeyInput) (string, error) {
	if in.Date.IsZero() {
		return "", &InvalidInputError{Field: "fecha", Reason: "fecha de emisión vacía"}
	}
	fields := []struct {
		name  string
		value string
		width int
	}{
		{"codDoc", in.DocType, 2},
		{"ruc", in.RUC, 13},
		{"ambiente", in.Environment, 1},
		{"estab", in.Establishment, 3},
		{"ptoEmi", in.EmissionPoint, 3},
		{"secuencial", in.Sequence, 9},
		{"codigoNumerico", in.NumericCode, 8},
		{"tipoEmision", in.EmissionType, 1},
	}

	var sb strings.Builder
	sb.Grow(AccessKeyLength)
	sb.WriteString(in.Date.Format("02012006"))
	for _, f := range fields {
		if len(f.value) != f.width {
			return "", &InvalidInputError{Field: f.name, Reason: fmt.Sprintf("se esperaban %d dígitos, se recibieron %d", f.width, len(f.value))}
		}
		if !isDigits(f.value) {
			return "", &InvalidInputError{Field: f.name, Reason: "debe ser numérico"}
		}
		sb.WriteString(f.value)
	}

	base := sb.String()
	dv, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + strconv.Itoa(dv), nil
}

// CheckDigit calcula el dígito verificador módulo 11 con pesos 2..7 cíclicos
// aplicados desde el dígito menos significativo. 11 se mapea a 0 y 10 a 1.
func CheckDigit(digits string) (int, error) {
	if !isDigits(digits) {
		return 0, &InvalidInputError{Field: "clave", Reason: "debe ser numérico"}
	}
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	default:
		return r, nil
	}
}

// ValidateAccessKey verifica longitud, formato y dígito verificador.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength {
		return &InvalidInputError{Field: "claveAcceso", Reason: fmt.Sprintf("longitud %d, se esperaban %d", len(key), AccessKeyLength)}
	}
	if !isDigits(key) {
		return &InvalidInputError{Field: "claveAcceso", Reason: "debe ser numérico"}
	}
	dv, err := CheckDigit(key[:AccessKeyLength-1])
	if err != nil {
		return err
	}
	if int(key[AccessKeyLength-1]-'0') != dv {
		return &InvalidInputError{Field: "claveAcceso", Reason: fmt.Sprintf("dígito verificador %c, esperado %d", key[AccessKeyLength-1], dv)}
	}
	return nil
}

// ParseAccessKey descompone una clave válida en sus campos.
func ParseAccessKey(key string) (AccessKeyInput, error) {
	if err := ValidateAccessKey(key); err != nil {
		return AccessKeyInput{}, err
	}
	date, err := time.Parse("02012006", key[0:8])
	if err != nil {
		return AccessKeyInput{}, &InvalidInputError{Field: "fecha", Reason: err.Error()}
	}
	return AccessKeyInput{
		Date:          date,
		DocType:       key[8:10],
		RUC:           key[10:23],
		Environment:   key[23:24],
		Establishment: key[24:27],
		EmissionPoint: key[27:30],
		Sequence:      key[30:39],
		NumericCode:   key[39:47],
		EmissionType:  key[47:48],
	}, nil
}

// DocumentNumber número visible estab-ptoEmi-secuencial (001-001-000000123).
func (in AccessKeyInput) DocumentNumber() string {
	return in.Establishment + "-" + in.EmissionPoint + "-" + in.Sequence
}

// FormatSequence rellena el secuencial con ceros a la izquierda (9 dígitos).
func FormatSequence(n uint64) string {
	return fmt.Sprintf("%09d", n)
}

// FormatCode rellena códigos de establecimiento/punto de emisión a 3 dígitos.
func FormatCode(n int) string {
	return fmt.Sprintf("%03d", n)
}
