package dto

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RecurrenceRuleDTO regla de recurrencia. interval/unit solo aplican a "counted".
type RecurrenceRuleDTO struct {
	Type     string `json:"type" validate:"required,oneof=monthly weekly bi-weekly tri-weekly manual counted"`
	Interval int    `json:"interval,omitempty" validate:"min=0"`
	Unit     string `json:"unit,omitempty" validate:"omitempty,oneof=day week month year"`
}

// LineItemDTO línea de la plantilla de la serie.
type LineItemDTO struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// NullableInt distingue un campo ausente de un null explícito en el JSON.
type NullableInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON solo se invoca si la clave está presente (también con null).
func (n *NullableInt) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// CreateRecurringInvoiceRequest body para POST /api/recurring-invoices.
// total_count nulo o ausente crea una serie sin límite.
type CreateRecurringInvoiceRequest struct {
	CustomerID    string            `json:"customer_id" validate:"required"`
	Title         string            `json:"title" validate:"required,max=200"`
	Rule          RecurrenceRuleDTO `json:"rule"`
	TotalCount    *int              `json:"total_count,omitempty" validate:"omitempty,min=1"`
	StartDate     civil.Date        `json:"start_date"`
	DueDateOffset int               `json:"due_date_offset" validate:"min=0,max=365"`
	LineItems     []LineItemDTO     `json:"line_items" validate:"required,min=1,dive"`
	TaxRate       decimal.Decimal   `json:"tax_rate"`
	Currency      string            `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Notes         string            `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateRecurringInvoiceRequest body para PUT /api/recurring-invoices/:id.
// Solo se modifican los campos presentes; "total_count": null quita el límite.
type UpdateRecurringInvoiceRequest struct {
	Title         *string            `json:"title,omitempty" validate:"omitempty,max=200"`
	Rule          *RecurrenceRuleDTO `json:"rule,omitempty"`
	TotalCount    NullableInt        `json:"total_count"`
	StartDate     *civil.Date        `json:"start_date,omitempty"`
	DueDateOffset *int               `json:"due_date_offset,omitempty" validate:"omitempty,min=0,max=365"`
	LineItems     []LineItemDTO      `json:"line_items,omitempty" validate:"omitempty,min=1,dive"`
	TaxRate       *decimal.Decimal   `json:"tax_rate,omitempty"`
	Currency      *string            `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Notes         *string            `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// RecurringInvoiceResponse serie recurrente con su progreso.
type RecurringInvoiceResponse struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id"`
	CustomerName    string            `json:"customer_name,omitempty"`
	Title           string            `json:"title"`
	Rule            RecurrenceRuleDTO `json:"rule"`
	TotalCount      *int              `json:"total_count"`
	GeneratedCount  int               `json:"generated_count"`
	RemainingCount  *int              `json:"remaining_count"`
	StartDate       civil.Date        `json:"start_date"`
	NextInvoiceDate *civil.Date       `json:"next_invoice_date"`
	LastInvoiceDate *civil.Date       `json:"last_invoice_date,omitempty"`
	DueDateOffset   int               `json:"due_date_offset"`
	LineItems       []LineItemDTO     `json:"line_items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	TaxRate         decimal.Decimal   `json:"tax_rate"`
	TaxAmount       decimal.Decimal   `json:"tax_amount"`
	Total           decimal.Decimal   `json:"total"`
	Currency        string            `json:"currency"`
	Notes           string            `json:"notes,omitempty"`
	Status          string            `json:"status"`
	LastGeneratedAt *time.Time        `json:"last_generated_at"`
	TerminatedAt    *time.Time        `json:"terminated_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// GenerateInvoiceResponse respuesta de POST /api/recurring-invoices/:id/generate.
type GenerateInvoiceResponse struct {
	Invoice InvoiceResponse          `json:"invoice"`
	Series  RecurringInvoiceResponse `json:"series"`
}

// NextDatesResponse respuesta de GET /api/recurring-invoices/:id/preview.
type NextDatesResponse struct {
	SeriesID string       `json:"series_id"`
	Dates    []civil.Date `json:"dates"`
}

// SweepRequest body opcional de POST /api/recurring-invoices/sweep.
type SweepRequest struct {
	AsOf *civil.Date `json:"as_of,omitempty"` // por defecto hoy
}

// SweepFailureDTO serie que no pudo generarse en el barrido.
type SweepFailureDTO struct {
	SeriesID string `json:"series_id"`
	Error    string `json:"error"`
}

// SweepResponse resultado de una pasada del barrido.
type SweepResponse struct {
	AsOf      civil.Date        `json:"as_of"`
	Activated int               `json:"activated"`
	Due       int               `json:"due"`
	Generated int               `json:"generated"`
	Skipped   int               `json:"skipped"`
	Failed    []SweepFailureDTO `json:"failed"`
}
