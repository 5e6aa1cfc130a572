package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/recurrence"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.RecurringSeriesRepository = (*SeriesRepo)(nil)

const seriesColumns = `
	id, company_id, customer_id, title, rule_type, rule_interval, rule_unit,
	total_count, generated_count, start_date, next_invoice_date, last_invoice_date,
	due_date_offset, line_items, tax_rate, currency, notes, status, revision,
	last_generated_at, terminated_at, created_at, updated_at`

// lineItemJSON forma de cada línea dentro de la columna JSONB line_items.
type lineItemJSON struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// SeriesRepo implementación de RecurringSeriesRepository.
type SeriesRepo struct {
	q Querier
}

// NewSeriesRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSeriesRepository(q Querier) *SeriesRepo {
	return &SeriesRepo{q: q}
}

func (r *SeriesRepo) Create(ctx context.Context, s *entity.RecurringSeries) error {
	items, err := encodeLineItems(s.LineItems)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO recurring_series (` + seriesColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	_, err = r.q.Exec(ctx, query,
		s.ID, s.CompanyID, s.CustomerID, s.Title, string(s.Rule.Type), s.Rule.Interval, string(s.Rule.Unit),
		s.TotalCount, s.GeneratedCount, dateArg(s.StartDate), nullDateArg(s.NextInvoiceDate), nullDateArg(s.LastInvoiceDate),
		s.DueDateOffset, items, s.TaxRate, s.Currency, s.Notes, s.Status, s.Revision,
		s.LastGeneratedAt, s.TerminatedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert recurring series: %w", err)
	}
	return nil
}

func (r *SeriesRepo) GetByID(ctx context.Context, id string) (*entity.RecurringSeries, error) {
	s, err := scanSeries(r.q.QueryRow(ctx, `SELECT `+seriesColumns+` FROM recurring_series WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recurring series: %w", err)
	}
	return s, nil
}

func (r *SeriesRepo) ListByCustomer(ctx context.Context, customerID string) ([]*entity.RecurringSeries, error) {
	return r.list(ctx, `SELECT `+seriesColumns+` FROM recurring_series
		WHERE customer_id = $1 ORDER BY created_at DESC, id`, customerID)
}

func (r *SeriesRepo) ListUpcoming(ctx context.Context, companyID string, from, to civil.Date) ([]*entity.RecurringSeries, error) {
	return r.list(ctx, `SELECT `+seriesColumns+` FROM recurring_series
		WHERE company_id = $1 AND status = 'active' AND next_invoice_date BETWEEN $2 AND $3
		ORDER BY next_invoice_date, id`, companyID, dateArg(from), dateArg(to))
}

// Update guarda la plantilla si nadie escribió la serie desde expected;
// los campos de progreso no se tocan.
func (r *SeriesRepo) Update(ctx context.Context, s *entity.RecurringSeries, expected entity.SeriesVersion) (bool, error) {
	items, err := encodeLineItems(s.LineItems)
	if err != nil {
		return false, err
	}
	query := `
		UPDATE recurring_series SET title = $2, rule_type = $3, rule_interval = $4, rule_unit = $5,
			total_count = $6, start_date = $7, next_invoice_date = $8, due_date_offset = $9,
			line_items = $10, tax_rate = $11, currency = $12, notes = $13, status = $14, updated_at = $15,
			revision = revision + 1
		WHERE id = $1 AND status IN ('pending', 'active') AND revision = $18
			AND generated_count = $16 AND next_invoice_date IS NOT DISTINCT FROM $17::date`
	tag, err := r.q.Exec(ctx, query,
		s.ID, s.Title, string(s.Rule.Type), s.Rule.Interval, string(s.Rule.Unit),
		s.TotalCount, dateArg(s.StartDate), nullDateArg(s.NextInvoiceDate), s.DueDateOffset,
		items, s.TaxRate, s.Currency, s.Notes, s.Status, s.UpdatedAt,
		expected.GeneratedCount, nullDateArg(expected.NextInvoiceDate), expected.Revision,
	)
	if err != nil {
		return false, fmt.Errorf("update recurring series: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, s.ID)
}

func (r *SeriesRepo) Terminate(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE recurring_series SET status = 'terminated', next_invoice_date = NULL, terminated_at = $2, updated_at = $2,
			revision = revision + 1
		WHERE id = $1 AND status IN ('pending', 'active')`, id, at)
	if err != nil {
		return false, fmt.Errorf("terminate recurring series: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, id)
}

func (r *SeriesRepo) ActivatePending(ctx context.Context, asOf civil.Date) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE recurring_series SET status = 'active', updated_at = now(), revision = revision + 1
		WHERE status = 'pending' AND start_date <= $1`, dateArg(asOf))
	if err != nil {
		return 0, fmt.Errorf("activate pending series: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SeriesRepo) LoadActiveDue(ctx context.Context, asOf civil.Date) ([]*entity.RecurringSeries, error) {
	return r.list(ctx, `SELECT `+seriesColumns+` FROM recurring_series
		WHERE status = 'active' AND next_invoice_date <= $1
		ORDER BY next_invoice_date, id`, dateArg(asOf))
}

// CompareAndSwapAdvance escribe solo el progreso y solo si la fila sigue en expected:
// una edición, activación o terminación intermedia cambia revision y el CAS se pierde.
func (r *SeriesRepo) CompareAndSwapAdvance(ctx context.Context, seriesID string, expected entity.SeriesVersion, next *entity.RecurringSeries) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE recurring_series SET generated_count = $2, next_invoice_date = $3, last_invoice_date = $4,
			last_generated_at = $5, status = $6, updated_at = $7, revision = revision + 1
		WHERE id = $1 AND status IN ('pending', 'active') AND revision = $10
			AND generated_count = $8 AND next_invoice_date IS NOT DISTINCT FROM $9::date`,
		seriesID, next.GeneratedCount, nullDateArg(next.NextInvoiceDate), nullDateArg(next.LastInvoiceDate),
		next.LastGeneratedAt, next.Status, next.UpdatedAt,
		expected.GeneratedCount, nullDateArg(expected.NextInvoiceDate), expected.Revision,
	)
	if err != nil {
		return false, fmt.Errorf("advance recurring series: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, seriesID)
}

// mustExist distingue "CAS perdido" (nil) de "serie inexistente" (ErrNotFound).
func (r *SeriesRepo) mustExist(ctx context.Context, id string) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recurring_series WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check recurring series: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SeriesRepo) list(ctx context.Context, query string, args ...any) ([]*entity.RecurringSeries, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring series: %w", err)
	}
	defer rows.Close()
	out := []*entity.RecurringSeries{}
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSeries(row pgx.Row) (*entity.RecurringSeries, error) {
	var s entity.RecurringSeries
	var ruleType, ruleUnit string
	var start, next, last pgtype.Date
	var items []byte
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.CustomerID, &s.Title, &ruleType, &s.Rule.Interval, &ruleUnit,
		&s.TotalCount, &s.GeneratedCount, &start, &next, &last,
		&s.DueDateOffset, &items, &s.TaxRate, &s.Currency, &s.Notes, &s.Status, &s.Revision,
		&s.LastGeneratedAt, &s.TerminatedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Rule.Type = recurrence.Type(ruleType)
	s.Rule.Unit = recurrence.Unit(ruleUnit)
	s.StartDate = fromDate(start)
	s.NextInvoiceDate = fromNullDate(next)
	s.LastInvoiceDate = fromNullDate(last)
	if s.LineItems, err = decodeLineItems(items); err != nil {
		return nil, err
	}
	return &s, nil
}

func encodeLineItems(items []entity.LineItem) ([]byte, error) {
	out := make([]lineItemJSON, len(items))
	for i, li := range items {
		out[i] = lineItemJSON{Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	return b, nil
}

func decodeLineItems(b []byte) ([]entity.LineItem, error) {
	var raw []lineItemJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	out := make([]entity.LineItem, len(raw))
	for i, li := range raw {
		out[i] = entity.LineItem{Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	}
	return out, nil
}
