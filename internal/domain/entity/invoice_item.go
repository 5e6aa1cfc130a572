package entity

import "github.com/shopspring/decimal"

// InvoiceItem representa una línea de una factura.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal // Quantity × UnitPrice
}
