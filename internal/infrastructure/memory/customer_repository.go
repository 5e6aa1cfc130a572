package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository clientes en memoria.
type CustomerRepository struct {
	store *Store
}

func (r *CustomerRepository) Create(_ context.Context, c *entity.Customer) error {
	defer r.store.lock(false)()
	if _, ok := r.store.customers[c.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.store.customers {
		if other.CompanyID == c.CompanyID && strings.EqualFold(other.Email, c.Email) {
			return domain.ErrDuplicate
		}
	}
	r.store.customers[c.ID] = cloneCustomer(c)
	return nil
}

func (r *CustomerRepository) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	defer r.store.lock(false)()
	c, ok := r.store.customers[id]
	if !ok {
		return nil, nil
	}
	return r.withReceivable(c), nil
}

func (r *CustomerRepository) List(_ context.Context, companyID string, f repository.CustomerFilter) ([]*entity.Customer, int, error) {
	defer r.store.lock(false)()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*entity.Customer
	for _, c := range r.store.customers {
		if c.CompanyID != companyID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(strings.ToLower(c.TaxID), search) {
			continue
		}
		out = append(out, r.withReceivable(c))
	}
	slices.SortFunc(out, func(a, b *entity.Customer) int {
		var cmp int
		switch f.SortBy {
		case "email":
			cmp = strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		default:
			cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if cmp == 0 {
			cmp = strings.Compare(a.ID, b.ID)
		}
		if f.Desc {
			return -cmp
		}
		return cmp
	})
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *CustomerRepository) Update(_ context.Context, c *entity.Customer) error {
	defer r.store.lock(false)()
	if _, ok := r.store.customers[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, other := range r.store.customers {
		if other.ID != c.ID && other.CompanyID == c.CompanyID && strings.EqualFold(other.Email, c.Email) {
			return domain.ErrDuplicate
		}
	}
	r.store.customers[c.ID] = cloneCustomer(c)
	return nil
}

func (r *CustomerRepository) Delete(_ context.Context, id string) error {
	defer r.store.lock(false)()
	if _, ok := r.store.customers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.customers, id)
	return nil
}

func (r *CustomerRepository) HasReferences(_ context.Context, id string) (bool, error) {
	defer r.store.lock(false)()
	for _, inv := range r.store.invoices {
		if inv.CustomerID == id {
			return true, nil
		}
	}
	for _, s := range r.store.series {
		if s.CustomerID == id {
			return true, nil
		}
	}
	return false, nil
}

// withReceivable copia el cliente con el saldo por cobrar calculado.
func (r *CustomerRepository) withReceivable(c *entity.Customer) *entity.Customer {
	out := cloneCustomer(c)
	total := decimal.Zero
	for _, inv := range r.store.invoices {
		if inv.CustomerID == c.ID && inv.Status == entity.InvoiceStatusSent {
			total = total.Add(inv.Total)
		}
	}
	out.TotalReceivable = total
	return out
}
