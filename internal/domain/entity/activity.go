package entity

import "time"

// Acciones registradas en la bitácora de actividad.
const (
	ActivityCustomerCreated  = "customer.created"
	ActivityInvoiceCreated   = "invoice.created"
	ActivityInvoiceSent      = "invoice.sent"
	ActivityInvoicePaid      = "invoice.paid"
	ActivityInvoiceCancelled = "invoice.cancelled"
	ActivitySeriesCreated    = "recurring.created"
	ActivitySeriesUpdated    = "recurring.updated"
	ActivitySeriesTerminated = "recurring.terminated"
	ActivitySeriesGenerated  = "recurring.generated"
	ActivitySeriesCompleted  = "recurring.completed"
)

// Activity entrada de la bitácora mostrada en el dashboard.
type Activity struct {
	ID          string
	CompanyID   string
	Action      string
	Description string
	SubjectType string // customer | invoice | recurring_series
	SubjectID   string
	CreatedAt   time.Time
}

// Tipos de sujeto de la bitácora.
const (
	SubjectCustomer = "customer"
	SubjectInvoice  = "invoice"
	SubjectSeries   = "recurring_series"
)
