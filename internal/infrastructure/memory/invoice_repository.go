package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepository)(nil)

// InvoiceRepository facturas en memoria.
type InvoiceRepository struct {
	store *Store
	inTx  bool
}

func (r *InvoiceRepository) Create(_ context.Context, inv *entity.Invoice) error {
	defer r.store.lock(r.inTx)()
	if hook := r.store.beforeInvoiceCreate; hook != nil {
		if err := hook(inv); err != nil {
			return err
		}
	}
	if err := r.checkUnique(inv); err != nil {
		return err
	}
	r.store.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepository) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	defer r.store.lock(r.inTx)()
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepository) List(_ context.Context, companyID string, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	defer r.store.lock(r.inTx)()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*entity.Invoice
	for _, inv := range r.store.invoices {
		if inv.CompanyID != companyID {
			continue
		}
		if f.Status != "" && inv.EffectiveStatus(f.Today) != f.Status {
			continue
		}
		if f.Type != "" && inv.Type != f.Type {
			continue
		}
		if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
			continue
		}
		if f.SeriesID != "" && inv.RecurringSeriesID != f.SeriesID {
			continue
		}
		if f.DateFrom != nil && inv.InvoiceDate.Before(*f.DateFrom) ||
			f.DateTo != nil && inv.InvoiceDate.After(*f.DateTo) ||
			f.DueDateFrom != nil && inv.DueDate.Before(*f.DueDateFrom) ||
			f.DueDateTo != nil && inv.DueDate.After(*f.DueDateTo) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(inv.Number), search) && !r.customerMatches(inv.CustomerID, search) {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	// Más recientes primero.
	slices.SortFunc(out, func(a, b *entity.Invoice) int {
		if c := b.InvoiceDate.Compare(a.InvoiceDate); c != 0 {
			return c
		}
		return strings.Compare(b.Number, a.Number)
	})
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *InvoiceRepository) Update(_ context.Context, inv *entity.Invoice) error {
	defer r.store.lock(r.inTx)()
	if _, ok := r.store.invoices[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	if err := r.checkUnique(inv); err != nil {
		return err
	}
	r.store.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepository) Delete(_ context.Context, id string) error {
	defer r.store.lock(r.inTx)()
	if _, ok := r.store.invoices[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.invoices, id)
	return nil
}

// checkUnique replica los índices únicos (empresa, número) y (serie, secuencia).
func (r *InvoiceRepository) checkUnique(inv *entity.Invoice) error {
	for _, other := range r.store.invoices {
		if other.ID == inv.ID {
			continue
		}
		if other.CompanyID == inv.CompanyID && other.Number == inv.Number {
			return domain.ErrDuplicate
		}
		if inv.RecurringSeriesID != "" && other.RecurringSeriesID == inv.RecurringSeriesID &&
			other.RecurringSequence == inv.RecurringSequence {
			return domain.ErrDuplicate
		}
	}
	return nil
}

func (r *InvoiceRepository) customerMatches(customerID, search string) bool {
	c, ok := r.store.customers[customerID]
	return ok && strings.Contains(strings.ToLower(c.Name), search)
}
