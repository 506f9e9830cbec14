package entity

import "time"

// PointOfEmission representa un punto de emisión (estab + ptoEmi) con su contador de secuenciales.
// Único por (company_id, establishment, emission_point).
type PointOfEmission struct {
	ID                   string
	CompanyID            string
	Establishment        string // estab, 3 dígitos
	EmissionPoint        string // ptoEmi, 3 dígitos
	EstablishmentAddress string // dirEstablecimiento
	InvoiceSequence      uint64 // próximo secuencial a asignar
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
