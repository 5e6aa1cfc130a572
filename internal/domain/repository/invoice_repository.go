package repository

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceFilter filtros del listado de facturas. Status "overdue" se resuelve con Today.
type InvoiceFilter struct {
	Search      string // número de factura o nombre del cliente
	Status      string
	Type        string
	CustomerID  string
	SeriesID    string
	DateFrom    *civil.Date
	DateTo      *civil.Date
	DueDateFrom *civil.Date
	DueDateTo   *civil.Date
	Today       civil.Date
	Limit       int
	Offset      int
}

// InvoiceRepository define el puerto de persistencia para Invoice y sus ítems.
//
// Create es atómico (cabecera + ítems) y reporta domain.ErrDuplicate cuando ya
// existe una factura con el mismo número o la misma secuencia de serie; cualquier
// otro error se considera transitorio.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	List(ctx context.Context, companyID string, f InvoiceFilter) ([]*entity.Invoice, int, error)
	// Update reemplaza cabecera e ítems.
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, id string) error
}
