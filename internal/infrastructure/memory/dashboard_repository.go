package memory

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepository)(nil)

// DashboardRepository consultas del dashboard en memoria.
type DashboardRepository struct {
	store *Store
}

func (r *DashboardRepository) TotalReceivables(_ context.Context, companyID string) (decimal.Decimal, error) {
	defer r.store.lock(false)()
	total := decimal.Zero
	for _, inv := range r.store.invoices {
		if inv.CompanyID == companyID && inv.Status == entity.InvoiceStatusSent {
			total = total.Add(inv.Total)
		}
	}
	return total, nil
}

func (r *DashboardRepository) CountCustomers(_ context.Context, companyID string) (int, error) {
	defer r.store.lock(false)()
	n := 0
	for _, c := range r.store.customers {
		if c.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

func (r *DashboardRepository) DueBetween(_ context.Context, companyID string, from, to civil.Date) (int, decimal.Decimal, error) {
	defer r.store.lock(false)()
	n, amount := 0, decimal.Zero
	for _, inv := range r.store.invoices {
		if inv.CompanyID != companyID || inv.Status != entity.InvoiceStatusSent {
			continue
		}
		if inv.DueDate.Before(from) || inv.DueDate.After(to) {
			continue
		}
		n++
		amount = amount.Add(inv.Total)
	}
	return n, amount, nil
}
