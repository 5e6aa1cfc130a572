package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

const customerColumns = `
	c.id, c.company_id, c.name, c.email, c.phone, c.address_line1, c.address_line2,
	c.city, c.state, c.postal_code, c.country, c.tax_id, c.notes, c.status,
	COALESCE((SELECT SUM(i.total) FROM invoices i WHERE i.customer_id = c.id AND i.status = 'sent'), 0),
	c.created_at, c.updated_at`

var customerSortColumns = map[string]string{
	"name":       "lower(c.name)",
	"email":      "lower(c.email)",
	"created_at": "c.created_at",
}

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// Create persiste un nuevo cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	query := `
		INSERT INTO customers (id, company_id, name, email, phone, address_line1, address_line2,
			city, state, postal_code, country, tax_id, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.Name, c.Email, c.Phone, c.AddressLine1, c.AddressLine2,
		c.City, c.State, c.PostalCode, c.Country, c.TaxID, c.Notes, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID con su saldo por cobrar.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers c WHERE c.id = $1`
	c, err := scanCustomer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// List lista clientes de la empresa con filtros y paginación; devuelve además el total.
func (r *CustomerRepo) List(ctx context.Context, companyID string, f repository.CustomerFilter) ([]*entity.Customer, int, error) {
	var w whereBuilder
	w.add("c.company_id = ?", companyID)
	if f.Status != "" {
		w.add("c.status = ?", f.Status)
	}
	if f.Search != "" {
		w.add("(c.name ILIKE ? OR c.email ILIKE ? OR c.tax_id ILIKE ?)", like(f.Search), like(f.Search), like(f.Search))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM customers c`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	order, ok := customerSortColumns[f.SortBy]
	if !ok {
		order = customerSortColumns["name"]
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	query := `SELECT ` + customerColumns + ` FROM customers c` + w.sql() +
		fmt.Sprintf(" ORDER BY %s %s, c.id LIMIT %s OFFSET %s", order, dir, w.next(f.Limit), w.next(f.Offset))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var out []*entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update actualiza los datos del cliente.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	query := `
		UPDATE customers SET name = $2, email = $3, phone = $4, address_line1 = $5, address_line2 = $6,
			city = $7, state = $8, postal_code = $9, country = $10, tax_id = $11, notes = $12,
			status = $13, updated_at = $14
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.AddressLine1, c.AddressLine2,
		c.City, c.State, c.PostalCode, c.Country, c.TaxID, c.Notes, c.Status, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el cliente.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HasReferences indica si hay facturas o series del cliente.
func (r *CustomerRepo) HasReferences(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM invoices WHERE customer_id = $1)
		    OR EXISTS (SELECT 1 FROM recurring_series WHERE customer_id = $1)`
	var referenced bool
	if err := r.q.QueryRow(ctx, query, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("customer references: %w", err)
	}
	return referenced, nil
}

func scanCustomer(row pgx.Row) (*entity.Customer, error) {
	var c entity.Customer
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.AddressLine1, &c.AddressLine2,
		&c.City, &c.State, &c.PostalCode, &c.Country, &c.TaxID, &c.Notes, &c.Status,
		&c.TotalReceivable, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// like patrón ILIKE "contiene" con los comodines escapados.
func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
