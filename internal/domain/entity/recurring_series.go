package entity

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/recurrence"
)

// Estados de una serie recurrente.
//
//	pending ──(hoy >= start_date)──▶ active ──(generated == total)──▶ completed
//	   │                               │
//	   └────────────(usuario)──────────┴──────────▶ terminated
//
// completed y terminated son terminales.
const (
	SeriesStatusPending    = "pending"
	SeriesStatusActive     = "active"
	SeriesStatusCompleted  = "completed"
	SeriesStatusTerminated = "terminated"
)

// LineItem línea de la plantilla de la serie.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// RecurringSeries plantilla de facturación recurrente de un cliente y su progreso.
type RecurringSeries struct {
	ID         string
	CompanyID  string
	CustomerID string
	Title      string
	Rule       recurrence.Rule

	TotalCount     *int // nil = serie sin límite
	GeneratedCount int

	StartDate       civil.Date
	NextInvoiceDate *civil.Date // nil si no hay generación automática pendiente
	LastInvoiceDate *civil.Date // fecha de la última factura generada
	DueDateOffset   int         // días sumados a la fecha de la factura para el vencimiento

	LineItems []LineItem
	TaxRate   decimal.Decimal
	Currency  string
	Notes     string

	Status          string
	Revision        int // se incrementa en cada escritura; guarda de los CAS
	LastGeneratedAt *time.Time
	TerminatedAt    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SeriesVersion estado esperado de la serie para el compare-and-swap.
// Revision detecta cualquier escritura intermedia (edición, activación,
// terminación); NextInvoiceDate y GeneratedCount identifican el periodo.
type SeriesVersion struct {
	Revision        int
	NextInvoiceDate *civil.Date
	GeneratedCount  int
}

// Matches compara dos versiones (fechas nulas incluidas).
func (v SeriesVersion) Matches(other SeriesVersion) bool {
	if v.Revision != other.Revision || v.GeneratedCount != other.GeneratedCount {
		return false
	}
	if v.NextInvoiceDate == nil || other.NextInvoiceDate == nil {
		return v.NextInvoiceDate == nil && other.NextInvoiceDate == nil
	}
	return *v.NextInvoiceDate == *other.NextInvoiceDate
}

// Version estado actual usado como expectativa en el CAS.
func (s *RecurringSeries) Version() SeriesVersion {
	return SeriesVersion{Revision: s.Revision, NextInvoiceDate: copyDate(s.NextInvoiceDate), GeneratedCount: s.GeneratedCount}
}

// Bounded indica si la serie tiene número total de facturas.
func (s *RecurringSeries) Bounded() bool { return s.TotalCount != nil }

// Exhausted indica si una serie acotada ya generó todas sus facturas.
func (s *RecurringSeries) Exhausted() bool {
	return s.Bounded() && s.GeneratedCount >= *s.TotalCount
}

// Editable estados en los que se permite modificar la plantilla o generar.
func (s *RecurringSeries) Editable() bool {
	return s.Status == SeriesStatusPending || s.Status == SeriesStatusActive
}

// Terminal indica si la serie ya no admite cambios de estado.
func (s *RecurringSeries) Terminal() bool {
	return s.Status == SeriesStatusCompleted || s.Status == SeriesStatusTerminated
}

// Schedule fija estado y próxima fecha al crear la serie.
// La primera factura programada cae un periodo después de StartDate.
func (s *RecurringSeries) Schedule(today civil.Date) {
	if s.StartDate.After(today) {
		s.Status = SeriesStatusPending
	} else {
		s.Status = SeriesStatusActive
	}
	s.NextInvoiceDate = recurrence.NextDate(s.Rule, s.StartDate)
}

// ActivateIfDue pasa de pending a active cuando hoy >= StartDate.
func (s *RecurringSeries) ActivateIfDue(today civil.Date) bool {
	if s.Status != SeriesStatusPending || s.StartDate.After(today) {
		return false
	}
	s.Status = SeriesStatusActive
	s.Revision++
	return true
}

// CheckGenerable valida que la serie pueda producir otra factura.
// Una serie completada reporta ErrSeriesExhausted; una terminada, ErrInvalidState.
func (s *RecurringSeries) CheckGenerable() error {
	if s.Exhausted() {
		return fmt.Errorf("%w: %d de %d facturas generadas", domain.ErrSeriesExhausted, s.GeneratedCount, *s.TotalCount)
	}
	if !s.Editable() {
		return fmt.Errorf("%w: la serie está %s", domain.ErrInvalidState, s.Status)
	}
	return nil
}

// Snapshot materializa la factura de la serie con fecha invoiceDate.
// Los ítems son copias: editar la plantilla después no afecta la factura.
func (s *RecurringSeries) Snapshot(invoiceDate civil.Date) *Invoice {
	items := make([]InvoiceItem, len(s.LineItems))
	for i, li := range s.LineItems {
		items[i] = InvoiceItem{
			Position:    i + 1,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		}
	}
	inv := &Invoice{
		CompanyID:         s.CompanyID,
		CustomerID:        s.CustomerID,
		InvoiceDate:       invoiceDate,
		DueDate:           invoiceDate.AddDays(s.DueDateOffset),
		Items:             items,
		TaxRate:           s.TaxRate,
		Currency:          s.Currency,
		Status:            InvoiceStatusDraft,
		Type:              InvoiceTypeRecurring,
		RecurringSeriesID: s.ID,
		RecurringSequence: s.GeneratedCount + 1,
		Notes:             s.Notes,
	}
	inv.Recalculate()
	return inv
}

// Advance devuelve una copia de la serie con el progreso de una generación aplicado.
// La serie receptora no se modifica; el llamador la reemplaza solo tras el commit.
func (s *RecurringSeries) Advance(invoiceDate, asOf civil.Date, now time.Time) *RecurringSeries {
	next := s.Clone()
	next.Revision++
	next.GeneratedCount++
	next.LastGeneratedAt = &now
	next.LastInvoiceDate = &invoiceDate
	next.UpdatedAt = now
	if next.Status == SeriesStatusPending {
		next.Status = SeriesStatusActive
	}

	if next.Exhausted() {
		next.Status = SeriesStatusCompleted
		next.NextInvoiceDate = nil
		return next
	}
	anchor := asOf
	if s.NextInvoiceDate != nil {
		anchor = *s.NextInvoiceDate
	}
	next.NextInvoiceDate = recurrence.NextDate(next.Rule, anchor)
	return next
}

// Terminate cancela la serie. Terminar una serie ya terminada no hace nada.
func (s *RecurringSeries) Terminate(now time.Time) (changed bool, err error) {
	switch s.Status {
	case SeriesStatusTerminated:
		return false, nil
	case SeriesStatusCompleted:
		return false, fmt.Errorf("%w: la serie ya está completada", domain.ErrInvalidState)
	}
	s.Status = SeriesStatusTerminated
	s.NextInvoiceDate = nil
	s.TerminatedAt = &now
	s.UpdatedAt = now
	s.Revision++
	return true, nil
}

// SeriesChanges cambios de plantilla; los campos nil no se modifican.
type SeriesChanges struct {
	Title         *string
	Rule          *recurrence.Rule
	TotalCount    **int // puntero a nil = quitar el límite
	StartDate     *civil.Date
	DueDateOffset *int
	LineItems     []LineItem
	TaxRate       *decimal.Decimal
	Currency      *string
	Notes         *string
}

// ApplyChanges aplica cambios de plantilla. Nunca toca GeneratedCount ni Status
// (salvo recalcular pending/active si cambia StartDate antes de generar).
func (s *RecurringSeries) ApplyChanges(c SeriesChanges, today civil.Date, now time.Time) error {
	if !s.Editable() {
		return fmt.Errorf("%w: no se puede editar una serie %s", domain.ErrInvalidState, s.Status)
	}
	if c.TotalCount != nil && *c.TotalCount != nil && **c.TotalCount <= s.GeneratedCount {
		return fmt.Errorf("%w: total_count (%d) debe ser mayor que las facturas ya generadas (%d)",
			domain.ErrValidation, **c.TotalCount, s.GeneratedCount)
	}
	if c.StartDate != nil && *c.StartDate != s.StartDate && s.GeneratedCount > 0 {
		return fmt.Errorf("%w: start_date no se puede cambiar después de generar facturas", domain.ErrValidation)
	}
	if c.DueDateOffset != nil && *c.DueDateOffset < 0 {
		return fmt.Errorf("%w: due_date_offset no puede ser negativo", domain.ErrValidation)
	}

	reschedule := false
	if c.Title != nil {
		s.Title = *c.Title
	}
	if c.Rule != nil && *c.Rule != s.Rule {
		s.Rule = c.Rule.Normalize()
		reschedule = true
	}
	if c.TotalCount != nil {
		s.TotalCount = copyInt(*c.TotalCount)
	}
	if c.StartDate != nil && *c.StartDate != s.StartDate {
		s.StartDate = *c.StartDate
		reschedule = true
	}
	if c.DueDateOffset != nil {
		s.DueDateOffset = *c.DueDateOffset
	}
	if c.LineItems != nil {
		s.LineItems = append([]LineItem(nil), c.LineItems...)
	}
	if c.TaxRate != nil {
		s.TaxRate = *c.TaxRate
	}
	if c.Currency != nil {
		s.Currency = *c.Currency
	}
	if c.Notes != nil {
		s.Notes = *c.Notes
	}

	if reschedule {
		anchor := s.StartDate
		if s.LastInvoiceDate != nil {
			anchor = *s.LastInvoiceDate
		}
		s.NextInvoiceDate = recurrence.NextDate(s.Rule, anchor)
		if s.GeneratedCount == 0 {
			if s.StartDate.After(today) {
				s.Status = SeriesStatusPending
			} else {
				s.Status = SeriesStatusActive
			}
		}
	}
	s.UpdatedAt = now
	s.Revision++
	return nil
}

// Clone copia profunda de la serie.
func (s *RecurringSeries) Clone() *RecurringSeries {
	c := *s
	c.TotalCount = copyInt(s.TotalCount)
	c.NextInvoiceDate = copyDate(s.NextInvoiceDate)
	c.LastInvoiceDate = copyDate(s.LastInvoiceDate)
	c.LastGeneratedAt = copyTime(s.LastGeneratedAt)
	c.TerminatedAt = copyTime(s.TerminatedAt)
	c.LineItems = append([]LineItem(nil), s.LineItems...)
	return &c
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyDate(p *civil.Date) *civil.Date {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
