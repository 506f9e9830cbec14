package sri

// State estado del comprobante dentro del pipeline de emisión SRI.
type State string

const (
	StateDraft       State = "DRAFT"        // factura finalizada, aún sin secuencial ni clave
	StateBuilt       State = "BUILT"        // XML generado (xml_generado)
	StateSigned      State = "SIGNED"       // XAdES-BES aplicado (xml_firmado)
	StateSchemaValid State = "SCHEMA_VALID" // validado contra el XSD
	StateSubmitted   State = "SUBMITTED"    // RECIBIDA por el WS de recepción
	StatePending     State = "PENDING"      // consulta de autorización agendada
	StateAuthorized  State = "AUTHORIZED"   // terminal: AUTORIZADO
	StateRejected    State = "REJECTED"     // terminal: XSD, DEVUELTA o NO AUTORIZADO
	StateFailed      State = "FAILED"       // terminal: reintentos agotados
)

// transitions grafo permitido. Ningún estado se salta y los terminales no tienen salida.
var transitions = map[State][]State{
	StateDraft:       {StateBuilt},
	StateBuilt:       {StateSigned, StateFailed},
	StateSigned:      {StateSchemaValid, StateRejected, StateFailed},
	StateSchemaValid: {StateSubmitted, StateRejected, StateFailed},
	StateSubmitted:   {StatePending},
	StatePending:     {StatePending, StateAuthorized, StateRejected, StateFailed},
}

// CanTransition indica si from → to es una arista válida del grafo.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal true para Authorized, Rejected y Failed.
func (s State) IsTerminal() bool {
	return s == StateAuthorized || s == StateRejected || s == StateFailed
}

// forwardOrder posición de cada estado en el camino feliz.
var forwardOrder = map[State]int{
	StateDraft:       0,
	StateBuilt:       1,
	StateSigned:      2,
	StateSchemaValid: 3,
	StateSubmitted:   4,
	StatePending:     5,
	StateAuthorized:  6,
}

// Reached indica si s ya alcanzó (o pasó) target en el camino feliz.
func (s State) Reached(target State) bool {
	a, okA := forwardOrder[s]
	b, okB := forwardOrder[target]
	return okA && okB && a >= b
}

func (s State) String() string { return string(s) }
