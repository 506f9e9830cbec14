package sri

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind clasifica el resultado de un paso del pipeline.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindSigning
	KindAuthorityRejection
	KindNetwork
	KindStillProcessing
	KindRetryBudgetExhausted
)

var kindNames = map[ErrorKind]string{
	KindNone:                 "none",
	KindValidation:           "validation",
	KindSigning:              "signing",
	KindAuthorityRejection:   "authority_rejection",
	KindNetwork:              "network",
	KindStillProcessing:      "still_processing",
	KindRetryBudgetExhausted: "retry_budget_exhausted",
}

func (k ErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Retryable true solo para errores de red y comprobantes aún en procesamiento.
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindStillProcessing
}

// ErrStillProcessing el SRI aún no decide sobre la autorización. No es un error de negocio.
var ErrStillProcessing = errors.New("sri: comprobante en procesamiento")

// ValidationError el XML firmado no cumple el XSD. Message es el texto del validador, tal cual.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "sri: XML no válido contra XSD: " + e.Message }

// SigningError keystore ilegible, contraseña incorrecta o par llave/certificado incompleto.
type SigningError struct {
	Reason string
	Cause  error
}

func (e *SigningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sri: firma: %s: %v", e.Reason, e.Cause)
	}
	return "sri: firma: " + e.Reason
}

func (e *SigningError) Unwrap() error { return e.Cause }

// AuthorityRejection respuesta negativa explícita del SRI (DEVUELTA o NO AUTORIZADO).
type AuthorityRejection struct {
	Status  string
	Message string
}

func (e *AuthorityRejection) Error() string {
	return fmt.Sprintf("sri: %s: %s", e.Status, e.Message)
}

// NetworkError fallo de transporte (timeout, conexión rechazada, 5xx, SOAP Fault).
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("sri: %s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// RetryBudgetExhausted convierte un error reintentable en terminal.
type RetryBudgetExhausted struct {
	Stage    string
	Attempts int
	Last     error
}

func (e *RetryBudgetExhausted) Error() string {
	return fmt.Sprintf("sri: %s: reintentos agotados (%d): %v", e.Stage, e.Attempts, e.Last)
}

func (e *RetryBudgetExhausted) Unwrap() error { return e.Last }

// KindOf clasifica un error del pipeline.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		ve *ValidationError
		se *SigningError
		ar *AuthorityRejection
		ne *NetworkError
		rb *RetryBudgetExhausted
	)
	switch {
	case errors.As(err, &rb):
		return KindRetryBudgetExhausted
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &se):
		return KindSigning
	case errors.As(err, &ar):
		return KindAuthorityRejection
	case errors.Is(err, ErrStillProcessing):
		return KindStillProcessing
	case errors.As(err, &ne):
		return KindNetwork
	default:
		return KindNetwork
	}
}

// Outcome resultado explícito de un paso. Delay solo aplica a resultados reintentables
// y a la siguiente tarea encadenada (p. ej. primera consulta tras RECIBIDA).
type Outcome struct {
	Kind  ErrorKind
	Err   error
	Delay time.Duration
	Next  State
}

// Ok outcome exitoso que deja el comprobante en next.
func Ok(next State) Outcome { return Outcome{Kind: KindNone, Next: next} }

// Fail outcome a partir de un error clasificado con KindOf.
func Fail(err error) Outcome { return Outcome{Kind: KindOf(err), Err: err} }

// Message texto para sri_error. Los mensajes del validador y del SRI se guardan sin prefijos.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(o.Err, &ve) {
		return ve.Message
	}
	var ar *AuthorityRejection
	if errors.As(o.Err, &ar) {
		return ar.Message
	}
	return o.Err.Error()
}
