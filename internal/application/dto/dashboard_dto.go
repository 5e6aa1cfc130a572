package dto

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
type DashboardSummaryDTO struct {
	TotalReceivables     decimal.Decimal        `json:"total_receivables"` // enviadas + vencidas
	TotalCustomers       int                    `json:"total_customers"`
	InvoicesDueThisMonth DueSummaryDTO          `json:"invoices_due_this_month"`
	UpcomingRecurring    []UpcomingRecurringDTO `json:"upcoming_recurring"`
	RecentActivity       []ActivityDTO          `json:"recent_activity"`
	AsOf                 civil.Date             `json:"as_of"`
}

// DueSummaryDTO facturas por cobrar que vencen en el mes en curso.
type DueSummaryDTO struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// UpcomingRecurringDTO serie con generación próxima.
type UpcomingRecurringDTO struct {
	SeriesID        string          `json:"series_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	Title           string          `json:"title"`
	NextInvoiceDate civil.Date      `json:"next_invoice_date"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
}

// ActivityDTO entrada de la bitácora.
type ActivityDTO struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	SubjectType string    `json:"subject_type"`
	SubjectID   string    `json:"subject_id"`
	CreatedAt   time.Time `json:"created_at"`
}
