package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `
	i.id, i.company_id, i.customer_id, i.number, i.invoice_date, i.due_date,
	i.subtotal, i.tax_rate, i.tax_amount, i.total, i.currency, i.status, i.type,
	COALESCE(i.recurring_series_id, ''), COALESCE(i.recurring_sequence, 0),
	i.notes, i.internal_notes, i.cancellation_reason, i.payment_date, i.payment_method,
	i.payment_reference, i.sent_to, i.sent_at, i.created_at, i.updated_at`

// InvoiceRepo implementación de InvoiceRepository (cabecera + ítems).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create inserta cabecera e ítems en una misma transacción.
// Número o (serie, secuencia) repetidos devuelven domain.ErrDuplicate.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	return inTx(ctx, r.q, func(q Querier) error {
		query := `
			INSERT INTO invoices (id, company_id, customer_id, number, invoice_date, due_date,
				subtotal, tax_rate, tax_amount, total, currency, status, type,
				recurring_series_id, recurring_sequence, notes, internal_notes, cancellation_reason,
				payment_date, payment_method, payment_reference, sent_to, sent_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), NULLIF($15, 0),
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
		_, err := q.Exec(ctx, query,
			inv.ID, inv.CompanyID, inv.CustomerID, inv.Number, dateArg(inv.InvoiceDate), dateArg(inv.DueDate),
			inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total, inv.Currency, inv.Status, inv.Type,
			inv.RecurringSeriesID, inv.RecurringSequence, inv.Notes, inv.InternalNotes, inv.CancellationReason,
			nullDateArg(inv.PaymentDate), inv.PaymentMethod, inv.PaymentReference, inv.SentTo, inv.SentAt,
			inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert invoice: %w", err)
		}
		return insertItems(ctx, q, inv)
	})
}

// GetByID obtiene una factura con sus ítems.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices i WHERE i.id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// List lista facturas con filtros; las más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context, companyID string, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	var w whereBuilder
	w.add("i.company_id = ?", companyID)
	switch f.Status {
	case "":
	case entity.InvoiceStatusOverdue:
		w.add("i.status = 'sent' AND i.due_date < ?", dateArg(f.Today))
	case entity.InvoiceStatusSent:
		w.add("i.status = 'sent' AND i.due_date >= ?", dateArg(f.Today))
	default:
		w.add("i.status = ?", f.Status)
	}
	if f.Type != "" {
		w.add("i.type = ?", f.Type)
	}
	if f.CustomerID != "" {
		w.add("i.customer_id = ?", f.CustomerID)
	}
	if f.SeriesID != "" {
		w.add("i.recurring_series_id = ?", f.SeriesID)
	}
	if f.DateFrom != nil {
		w.add("i.invoice_date >= ?", dateArg(*f.DateFrom))
	}
	if f.DateTo != nil {
		w.add("i.invoice_date <= ?", dateArg(*f.DateTo))
	}
	if f.DueDateFrom != nil {
		w.add("i.due_date >= ?", dateArg(*f.DueDateFrom))
	}
	if f.DueDateTo != nil {
		w.add("i.due_date <= ?", dateArg(*f.DueDateTo))
	}
	if f.Search != "" {
		w.add("(i.number ILIKE ? OR EXISTS (SELECT 1 FROM customers c WHERE c.id = i.customer_id AND c.name ILIKE ?))",
			like(f.Search), like(f.Search))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	limit := "ALL"
	if f.Limit > 0 {
		limit = w.next(f.Limit)
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices i` + w.sql() +
		fmt.Sprintf(" ORDER BY i.invoice_date DESC, i.number DESC LIMIT %s OFFSET %s", limit, w.next(f.Offset))

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update reemplaza cabecera e ítems.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	return inTx(ctx, r.q, func(q Querier) error {
		query := `
			UPDATE invoices SET customer_id = $2, number = $3, invoice_date = $4, due_date = $5,
				subtotal = $6, tax_rate = $7, tax_amount = $8, total = $9, currency = $10, status = $11,
				notes = $12, internal_notes = $13, cancellation_reason = $14, payment_date = $15,
				payment_method = $16, payment_reference = $17, sent_to = $18, sent_at = $19, updated_at = $20
			WHERE id = $1`
		tag, err := q.Exec(ctx, query,
			inv.ID, inv.CustomerID, inv.Number, dateArg(inv.InvoiceDate), dateArg(inv.DueDate),
			inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total, inv.Currency, inv.Status,
			inv.Notes, inv.InternalNotes, inv.CancellationReason, nullDateArg(inv.PaymentDate),
			inv.PaymentMethod, inv.PaymentReference, inv.SentTo, inv.SentAt, inv.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("update invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return fmt.Errorf("delete invoice items: %w", err)
		}
		return insertItems(ctx, q, inv)
	})
}

// Delete elimina la factura (los ítems caen en cascada).
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func insertItems(ctx context.Context, q Querier, inv *entity.Invoice) error {
	if len(inv.Items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range inv.Items {
		batch.Queue(`
			INSERT INTO invoice_items (id, invoice_id, position, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, inv.ID, it.Position, it.Description, it.Quantity, it.UnitPrice, it.Amount)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range inv.Items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

// loadItems carga los ítems de todas las facturas en una sola consulta.
func (r *InvoiceRepo) loadItems(ctx context.Context, invoices []*entity.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Invoice, len(invoices))
	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		inv.Items = []entity.InvoiceItem{}
		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, position, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return err
		}
		inv := byID[it.InvoiceID]
		inv.Items = append(inv.Items, it)
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var invoiceDate, dueDate, paymentDate pgtype.Date
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Number, &invoiceDate, &dueDate,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &inv.Currency, &inv.Status, &inv.Type,
		&inv.RecurringSeriesID, &inv.RecurringSequence,
		&inv.Notes, &inv.InternalNotes, &inv.CancellationReason, &paymentDate, &inv.PaymentMethod,
		&inv.PaymentReference, &inv.SentTo, &inv.SentAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.InvoiceDate = fromDate(invoiceDate)
	inv.DueDate = fromDate(dueDate)
	inv.PaymentDate = fromNullDate(paymentDate)
	return &inv, nil
}
