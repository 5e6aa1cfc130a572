package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CustomerFilter filtros del listado de clientes.
type CustomerFilter struct {
	Search string // nombre, email o NIT (contiene, sin distinguir mayúsculas)
	Status string
	SortBy string // name | email | created_at
	Desc   bool
	Limit  int
	Offset int
}

// CustomerRepository define el puerto de persistencia para Customer (facturación).
// GetByID devuelve (nil, nil) si el cliente no existe.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	List(ctx context.Context, companyID string, f CustomerFilter) ([]*entity.Customer, int, error)
	Update(ctx context.Context, customer *entity.Customer) error
	Delete(ctx context.Context, id string) error
	// HasReferences indica si hay facturas o series que apunten al cliente.
	HasReferences(ctx context.Context, id string) (bool, error)
}
