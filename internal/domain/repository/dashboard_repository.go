package repository

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DashboardRepository consultas de solo lectura para el resumen del dashboard.
type DashboardRepository interface {
	// TotalReceivables suma de totales de facturas enviadas (incluidas las vencidas).
	TotalReceivables(ctx context.Context, companyID string) (decimal.Decimal, error)
	CountCustomers(ctx context.Context, companyID string) (int, error)
	// DueBetween facturas por cobrar con vencimiento en [from, to].
	DueBetween(ctx context.Context, companyID string, from, to civil.Date) (count int, amount decimal.Decimal, err error)
}
