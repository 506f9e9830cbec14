package entity

import "time"

// Customer representa un cliente de la empresa (comprador).
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	TaxID     string // RUC, cédula, pasaporte o 9999999999999 (consumidor final)
	Address   string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
