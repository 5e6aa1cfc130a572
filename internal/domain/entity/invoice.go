package entity

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una factura.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue" // derivado en lectura: enviada y con vencimiento pasado
	InvoiceStatusCancelled = "cancelled"
)

// Tipos de factura.
const (
	InvoiceTypeStandard  = "standard"
	InvoiceTypeRecurring = "recurring"
)

// Acciones disponibles sobre una factura según su estado.
const (
	InvoiceActionEdit     = "edit"
	InvoiceActionDelete   = "delete"
	InvoiceActionSend     = "send"
	InvoiceActionMarkPaid = "mark_as_paid"
	InvoiceActionCancel   = "cancel"
)

// Métodos de pago aceptados.
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodOther        = "other"
)

// Invoice representa la cabecera de una factura.
type Invoice struct {
	ID          string
	CompanyID   string
	CustomerID  string
	Number      string
	InvoiceDate civil.Date
	DueDate     civil.Date
	Items       []InvoiceItem
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal // porcentaje, ej. 19 = 19%
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
	Currency    string
	Status      string
	Type        string

	// Solo para facturas generadas por una serie recurrente.
	RecurringSeriesID string
	RecurringSequence int // 1..N dentro de la serie; único por serie

	Notes              string
	InternalNotes      string
	CancellationReason string
	PaymentDate        *civil.Date
	PaymentMethod      string
	PaymentReference   string
	SentTo             string
	SentAt             *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EffectiveStatus aplica el estado derivado "overdue" a la fecha dada.
func (inv *Invoice) EffectiveStatus(today civil.Date) string {
	if inv.Status == InvoiceStatusSent && inv.DueDate.Before(today) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}

// AvailableActions acciones permitidas en el estado efectivo.
func (inv *Invoice) AvailableActions(today civil.Date) []string {
	switch inv.EffectiveStatus(today) {
	case InvoiceStatusDraft:
		return []string{InvoiceActionEdit, InvoiceActionDelete, InvoiceActionSend, InvoiceActionCancel}
	case InvoiceStatusSent, InvoiceStatusOverdue:
		return []string{InvoiceActionSend, InvoiceActionMarkPaid, InvoiceActionCancel}
	default:
		return []string{}
	}
}

// Allows indica si la acción está permitida en el estado efectivo.
func (inv *Invoice) Allows(action string, today civil.Date) bool {
	for _, a := range inv.AvailableActions(today) {
		if a == action {
			return true
		}
	}
	return false
}

// Recalculate recalcula subtotal, impuesto y total a partir de los ítems.
func (inv *Invoice) Recalculate() {
	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Amount = inv.Items[i].Quantity.Mul(inv.Items[i].UnitPrice).Round(2)
		subtotal = subtotal.Add(inv.Items[i].Amount)
	}
	inv.Subtotal = subtotal.Round(2)
	inv.TaxAmount = inv.Subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	inv.Total = inv.Subtotal.Add(inv.TaxAmount)
}

// NewInvoiceNumber número legible: PREFIJO-AAAAMMDD-XXXXXXXX (8 primeros caracteres del ID).
func NewInvoiceNumber(prefix string, date civil.Date, id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%04d%02d%02d-%s", prefix, date.Year, int(date.Month), date.Day, strings.ToUpper(short))
}
