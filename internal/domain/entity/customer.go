package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un cliente.
const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)

// Customer representa un cliente de la empresa (facturación).
type Customer struct {
	ID           string
	CompanyID    string
	Name         string
	Email        string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	TaxID        string
	Notes        string
	Status       string
	// TotalReceivable suma de facturas enviadas o vencidas; se calcula en lectura.
	TotalReceivable decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
