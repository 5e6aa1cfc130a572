package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.RecurringSeriesRepository = (*SeriesRepository)(nil)

// SeriesRepository series recurrentes en memoria.
type SeriesRepository struct {
	store *Store
	inTx  bool
}

func (r *SeriesRepository) Create(_ context.Context, s *entity.RecurringSeries) error {
	defer r.store.lock(r.inTx)()
	if _, ok := r.store.series[s.ID]; ok {
		return domain.ErrDuplicate
	}
	r.store.series[s.ID] = s.Clone()
	return nil
}

func (r *SeriesRepository) GetByID(_ context.Context, id string) (*entity.RecurringSeries, error) {
	defer r.store.lock(r.inTx)()
	s, ok := r.store.series[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (r *SeriesRepository) ListByCustomer(_ context.Context, customerID string) ([]*entity.RecurringSeries, error) {
	defer r.store.lock(r.inTx)()
	out := r.filter(func(s *entity.RecurringSeries) bool { return s.CustomerID == customerID })
	slices.SortFunc(out, func(a, b *entity.RecurringSeries) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *SeriesRepository) ListUpcoming(_ context.Context, companyID string, from, to civil.Date) ([]*entity.RecurringSeries, error) {
	defer r.store.lock(r.inTx)()
	out := r.filter(func(s *entity.RecurringSeries) bool {
		return s.CompanyID == companyID && s.Status == entity.SeriesStatusActive && s.NextInvoiceDate != nil &&
			!s.NextInvoiceDate.Before(from) && !s.NextInvoiceDate.After(to)
	})
	sortByNextDate(out)
	return out, nil
}

// Update guarda la plantilla si nadie escribió la serie desde expected.
func (r *SeriesRepository) Update(_ context.Context, s *entity.RecurringSeries, expected entity.SeriesVersion) (bool, error) {
	defer r.store.lock(r.inTx)()
	cur, ok := r.store.series[s.ID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !cur.Editable() || !cur.Version().Matches(expected) {
		return false, nil
	}
	next := s.Clone()
	next.Revision = cur.Revision + 1
	next.GeneratedCount = cur.GeneratedCount
	next.LastGeneratedAt = cur.LastGeneratedAt
	next.LastInvoiceDate = cur.LastInvoiceDate
	next.CreatedAt = cur.CreatedAt
	r.store.series[s.ID] = next
	return true, nil
}

func (r *SeriesRepository) Terminate(_ context.Context, id string, at time.Time) (bool, error) {
	defer r.store.lock(r.inTx)()
	cur, ok := r.store.series[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !cur.Editable() {
		return false, nil
	}
	next := cur.Clone()
	next.Status = entity.SeriesStatusTerminated
	next.NextInvoiceDate = nil
	next.TerminatedAt = &at
	next.UpdatedAt = at
	next.Revision = cur.Revision + 1
	r.store.series[id] = next
	return true, nil
}

func (r *SeriesRepository) ActivatePending(_ context.Context, asOf civil.Date) (int, error) {
	defer r.store.lock(r.inTx)()
	n := 0
	for id, cur := range r.store.series {
		next := cur.Clone()
		if next.ActivateIfDue(asOf) {
			r.store.series[id] = next
			n++
		}
	}
	return n, nil
}

func (r *SeriesRepository) LoadActiveDue(_ context.Context, asOf civil.Date) ([]*entity.RecurringSeries, error) {
	defer r.store.lock(r.inTx)()
	out := r.filter(func(s *entity.RecurringSeries) bool {
		return s.Status == entity.SeriesStatusActive && s.NextInvoiceDate != nil && !s.NextInvoiceDate.After(asOf)
	})
	sortByNextDate(out)
	return out, nil
}

// CompareAndSwapAdvance escribe los campos de progreso si la serie no cambió
// desde que se leyó expected; cualquier escritura intermedia hace perder el CAS.
func (r *SeriesRepository) CompareAndSwapAdvance(_ context.Context, seriesID string, expected entity.SeriesVersion, next *entity.RecurringSeries) (bool, error) {
	defer r.store.lock(r.inTx)()
	cur, ok := r.store.series[seriesID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !cur.Editable() || !cur.Version().Matches(expected) {
		return false, nil
	}
	upd := cur.Clone()
	progress := next.Clone()
	upd.GeneratedCount = progress.GeneratedCount
	upd.NextInvoiceDate = progress.NextInvoiceDate
	upd.LastInvoiceDate = progress.LastInvoiceDate
	upd.LastGeneratedAt = progress.LastGeneratedAt
	upd.Status = progress.Status
	upd.UpdatedAt = progress.UpdatedAt
	upd.Revision = cur.Revision + 1
	r.store.series[seriesID] = upd
	return true, nil
}

func (r *SeriesRepository) filter(keep func(*entity.RecurringSeries) bool) []*entity.RecurringSeries {
	out := []*entity.RecurringSeries{}
	for _, s := range r.store.series {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}

func sortByNextDate(list []*entity.RecurringSeries) {
	slices.SortFunc(list, func(a, b *entity.RecurringSeries) int {
		if c := a.NextInvoiceDate.Compare(*b.NextInvoiceDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
