// Package memory implementa los repositorios en memoria (DB_DRIVER=memory y tests).
//
// Un único mutex protege todos los datos. RunGeneration lo mantiene tomado
// durante toda la transacción y restaura el estado previo si fn falla.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Store datos en memoria compartidos por los repositorios.
type Store struct {
	mu         sync.Mutex
	customers  map[string]*entity.Customer
	invoices   map[string]*entity.Invoice
	series     map[string]*entity.RecurringSeries
	activities []*entity.Activity

	// beforeInvoiceCreate permite simular fallos de persistencia en tests.
	beforeInvoiceCreate func(*entity.Invoice) error
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]*entity.Customer),
		invoices:  make(map[string]*entity.Invoice),
		series:    make(map[string]*entity.RecurringSeries),
	}
}

// SetInvoiceCreateHook registra una función que se ejecuta antes de crear cada factura;
// si retorna error la creación falla con ese error.
func (s *Store) SetInvoiceCreateHook(fn func(*entity.Invoice) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeInvoiceCreate = fn
}

// Customers repositorio de clientes.
func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{store: s} }

// Invoices repositorio de facturas.
func (s *Store) Invoices() *InvoiceRepository { return &InvoiceRepository{store: s} }

// Series repositorio de series recurrentes.
func (s *Store) Series() *SeriesRepository { return &SeriesRepository{store: s} }

// Activities repositorio de la bitácora.
func (s *Store) Activities() *ActivityRepository { return &ActivityRepository{store: s} }

// Dashboard consultas del dashboard.
func (s *Store) Dashboard() *DashboardRepository { return &DashboardRepository{store: s} }

// RunGeneration ejecuta fn de forma atómica respecto al resto de operaciones.
func (s *Store) RunGeneration(ctx context.Context, fn func(
	seriesRepo repository.RecurringSeriesRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seriesBackup := maps.Clone(s.series)
	invoicesBackup := maps.Clone(s.invoices)

	err := fn(&SeriesRepository{store: s, inTx: true}, &InvoiceRepository{store: s, inTx: true})
	if err != nil {
		s.series = seriesBackup
		s.invoices = invoicesBackup
	}
	return err
}

// lock toma el mutex salvo que el repositorio ya esté dentro de RunGeneration.
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Los valores guardados nunca se mutan: cada escritura reemplaza el puntero,
// por eso basta una copia superficial de los mapas como respaldo.

func cloneCustomer(c *entity.Customer) *entity.Customer {
	out := *c
	return &out
}

func cloneInvoice(inv *entity.Invoice) *entity.Invoice {
	out := *inv
	out.Items = append([]entity.InvoiceItem(nil), inv.Items...)
	if inv.PaymentDate != nil {
		d := *inv.PaymentDate
		out.PaymentDate = &d
	}
	if inv.SentAt != nil {
		t := *inv.SentAt
		out.SentAt = &t
	}
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
