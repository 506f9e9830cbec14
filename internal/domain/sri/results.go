package sri

import (
	"strings"
	"time"
)

// Message mensaje devuelto por los web services del SRI.
type Message struct {
	ID             string // identificador
	Text           string // mensaje
	AdditionalInfo string // informacionAdicional
	Type           string // tipo (ERROR, ADVERTENCIA)
}

func (m Message) String() string {
	s := m.ID + " - " + m.Text
	if m.AdditionalInfo != "" {
		s += ": " + m.AdditionalInfo
	}
	return s
}

// JoinMessages une los mensajes con "; " para guardarlos en sri_error.
func JoinMessages(msgs []Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "; ")
}

// ReceptionResult respuesta de validarComprobante.
type ReceptionResult struct {
	Received bool   // estado == RECIBIDA
	Status   string // RECIBIDA / DEVUELTA
	Messages []Message
}

// AuthorizationStatus resultado de la consulta de autorización.
type AuthorizationStatus string

const (
	AuthorizationAuthorized    AuthorizationStatus = "AUTORIZADO"
	AuthorizationNotAuthorized AuthorizationStatus = "NO AUTORIZADO"
	AuthorizationProcessing    AuthorizationStatus = "EN PROCESO"
)

// AuthorizationResult respuesta de autorizacionComprobante.
type AuthorizationResult struct {
	Status              AuthorizationStatus
	AuthorizationNumber string
	AuthorizedAt        time.Time
	AuthorizedXML       string
	Messages            []Message
}

// Message texto de rechazo listo para sri_error.
func (r *AuthorizationResult) Message() string {
	if r == nil {
		return ""
	}
	return JoinMessages(r.Messages)
}
