package dto

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// InvoiceItemRequest línea de factura.
type InvoiceItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest body para POST /api/invoices (factura estándar en borrador).
type CreateInvoiceRequest struct {
	CustomerID    string               `json:"customer_id" validate:"required"`
	InvoiceDate   civil.Date           `json:"invoice_date"`
	DueDate       civil.Date           `json:"due_date"`
	Items         []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxRate       decimal.Decimal      `json:"tax_rate"`
	Currency      string               `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Notes         string               `json:"notes,omitempty"`
	InternalNotes string               `json:"internal_notes,omitempty"`
}

// UpdateInvoiceRequest body para PUT /api/invoices/:id (solo borradores).
type UpdateInvoiceRequest struct {
	CustomerID    *string              `json:"customer_id,omitempty"`
	InvoiceDate   *civil.Date          `json:"invoice_date,omitempty"`
	DueDate       *civil.Date          `json:"due_date,omitempty"`
	Items         []InvoiceItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	TaxRate       *decimal.Decimal     `json:"tax_rate,omitempty"`
	Currency      *string              `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Notes         *string              `json:"notes,omitempty"`
	InternalNotes *string              `json:"internal_notes,omitempty"`
}

// SendInvoiceRequest body para POST /api/invoices/:id/send. El envío del correo es externo.
type SendInvoiceRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
	Subject   string `json:"subject,omitempty" validate:"max=200"`
	Message   string `json:"message,omitempty"`
}

// MarkPaidRequest body para POST /api/invoices/:id/mark-as-paid.
type MarkPaidRequest struct {
	PaymentDate   *civil.Date `json:"payment_date,omitempty"` // por defecto hoy
	PaymentMethod string      `json:"payment_method" validate:"required,oneof=cash bank_transfer credit_card other"`
	Reference     string      `json:"reference,omitempty" validate:"max=100"`
}

// CancelInvoiceRequest body para POST /api/invoices/:id/cancel.
type CancelInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// InvoiceListRequest filtros de GET /api/invoices.
type InvoiceListRequest struct {
	PageRequest
	Search      string `query:"search"`
	Status      string `query:"status" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	Type        string `query:"type" validate:"omitempty,oneof=standard recurring"`
	CustomerID  string `query:"customer_id"`
	DateFrom    string `query:"date_from"`
	DateTo      string `query:"date_to"`
	DueDateFrom string `query:"due_date_from"`
	DueDateTo   string `query:"due_date_to"`
}

// InvoiceItemResponse línea de factura en respuestas.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceResponse factura con sus ítems. Status es el estado efectivo (incluye overdue).
type InvoiceResponse struct {
	ID                 string                `json:"id"`
	CompanyID          string                `json:"company_id"`
	CustomerID         string                `json:"customer_id"`
	CustomerName       string                `json:"customer_name,omitempty"`
	Number             string                `json:"number"`
	InvoiceDate        civil.Date            `json:"invoice_date"`
	DueDate            civil.Date            `json:"due_date"`
	Items              []InvoiceItemResponse `json:"items"`
	Subtotal           decimal.Decimal       `json:"subtotal"`
	TaxRate            decimal.Decimal       `json:"tax_rate"`
	TaxAmount          decimal.Decimal       `json:"tax_amount"`
	Total              decimal.Decimal       `json:"total"`
	Currency           string                `json:"currency"`
	Status             string                `json:"status"`
	Type               string                `json:"type"`
	RecurringInvoiceID string                `json:"recurring_invoice_id,omitempty"`
	RecurringSequence  int                   `json:"recurring_sequence,omitempty"`
	Notes              string                `json:"notes,omitempty"`
	InternalNotes      string                `json:"internal_notes,omitempty"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	PaymentDate        *civil.Date           `json:"payment_date,omitempty"`
	PaymentMethod      string                `json:"payment_method,omitempty"`
	PaymentReference   string                `json:"payment_reference,omitempty"`
	SentTo             string                `json:"sent_to,omitempty"`
	SentAt             *time.Time            `json:"sent_at,omitempty"`
	AvailableActions   []string              `json:"available_actions"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// InvoiceListResponse página de facturas.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
