package postgres

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

// DashboardRepo agregados de solo lectura para el resumen.
type DashboardRepo struct {
	q Querier
}

func NewDashboardRepository(q Querier) *DashboardRepo {
	return &DashboardRepo{q: q}
}

func (r *DashboardRepo) TotalReceivables(ctx context.Context, companyID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0) FROM invoices
		WHERE company_id = $1 AND status = 'sent'`, companyID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total receivables: %w", err)
	}
	return total, nil
}

func (r *DashboardRepo) CountCustomers(ctx context.Context, companyID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE company_id = $1`, companyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (r *DashboardRepo) DueBetween(ctx context.Context, companyID string, from, to civil.Date) (int, decimal.Decimal, error) {
	var n int
	var amount decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0) FROM invoices
		WHERE company_id = $1 AND status = 'sent' AND due_date BETWEEN $2 AND $3`,
		companyID, dateArg(from), dateArg(to)).Scan(&n, &amount)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("invoices due: %w", err)
	}
	return n, amount, nil
}
