package dto

import (
	"cloud.google.com/go/civil"
	"github.com/samber/lo"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/recurrence"
)

// FromCustomer arma la respuesta de un cliente.
func FromCustomer(c *entity.Customer) CustomerResponse {
	return CustomerResponse{
		ID:              c.ID,
		CompanyID:       c.CompanyID,
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		AddressLine1:    c.AddressLine1,
		AddressLine2:    c.AddressLine2,
		City:            c.City,
		State:           c.State,
		PostalCode:      c.PostalCode,
		Country:         c.Country,
		TaxID:           c.TaxID,
		Notes:           c.Notes,
		Status:          c.Status,
		TotalReceivable: c.TotalReceivable,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// FromInvoice arma la respuesta de una factura con el estado efectivo a la fecha today.
func FromInvoice(inv *entity.Invoice, customerName string, today civil.Date) InvoiceResponse {
	return InvoiceResponse{
		ID:           inv.ID,
		CompanyID:    inv.CompanyID,
		CustomerID:   inv.CustomerID,
		CustomerName: customerName,
		Number:       inv.Number,
		InvoiceDate:  inv.InvoiceDate,
		DueDate:      inv.DueDate,
		Items: lo.Map(inv.Items, func(it entity.InvoiceItem, _ int) InvoiceItemResponse {
			return InvoiceItemResponse{
				ID:          it.ID,
				Position:    it.Position,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Amount:      it.Amount,
			}
		}),
		Subtotal:           inv.Subtotal,
		TaxRate:            inv.TaxRate,
		TaxAmount:          inv.TaxAmount,
		Total:              inv.Total,
		Currency:           inv.Currency,
		Status:             inv.EffectiveStatus(today),
		Type:               inv.Type,
		RecurringInvoiceID: inv.RecurringSeriesID,
		RecurringSequence:  inv.RecurringSequence,
		Notes:              inv.Notes,
		InternalNotes:      inv.InternalNotes,
		CancellationReason: inv.CancellationReason,
		PaymentDate:        inv.PaymentDate,
		PaymentMethod:      inv.PaymentMethod,
		PaymentReference:   inv.PaymentReference,
		SentTo:             inv.SentTo,
		SentAt:             inv.SentAt,
		AvailableActions:   inv.AvailableActions(today),
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}

// FromSeries arma la respuesta de una serie; los totales salen de la plantilla actual.
func FromSeries(s *entity.RecurringSeries, customerName string) RecurringInvoiceResponse {
	template := s.Snapshot(s.StartDate)
	var remaining *int
	if s.Bounded() {
		remaining = lo.ToPtr(max(*s.TotalCount-s.GeneratedCount, 0))
	}
	return RecurringInvoiceResponse{
		ID:              s.ID,
		CustomerID:      s.CustomerID,
		CustomerName:    customerName,
		Title:           s.Title,
		Rule:            FromRule(s.Rule),
		TotalCount:      s.TotalCount,
		GeneratedCount:  s.GeneratedCount,
		RemainingCount:  remaining,
		StartDate:       s.StartDate,
		NextInvoiceDate: s.NextInvoiceDate,
		LastInvoiceDate: s.LastInvoiceDate,
		DueDateOffset:   s.DueDateOffset,
		LineItems: lo.Map(s.LineItems, func(li entity.LineItem, _ int) LineItemDTO {
			return LineItemDTO{Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
		}),
		Subtotal:        template.Subtotal,
		TaxRate:         s.TaxRate,
		TaxAmount:       template.TaxAmount,
		Total:           template.Total,
		Currency:        s.Currency,
		Notes:           s.Notes,
		Status:          s.Status,
		LastGeneratedAt: s.LastGeneratedAt,
		TerminatedAt:    s.TerminatedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// FromRule convierte la regla de dominio.
func FromRule(r recurrence.Rule) RecurrenceRuleDTO {
	return RecurrenceRuleDTO{Type: string(r.Type), Interval: r.Interval, Unit: string(r.Unit)}
}

// ToRule convierte la regla recibida, descartando interval/unit si no aplican.
func (r RecurrenceRuleDTO) ToRule() recurrence.Rule {
	return recurrence.Rule{Type: recurrence.Type(r.Type), Interval: r.Interval, Unit: recurrence.Unit(r.Unit)}.Normalize()
}

// ToLineItems convierte las líneas de la plantilla.
func ToLineItems(items []LineItemDTO) []entity.LineItem {
	return lo.Map(items, func(li LineItemDTO, _ int) entity.LineItem {
		return entity.LineItem{Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	})
}

// FromActivity convierte una entrada de bitácora.
func FromActivity(a *entity.Activity) ActivityDTO {
	return ActivityDTO{
		ID:          a.ID,
		Action:      a.Action,
		Description: a.Description,
		SubjectType: a.SubjectType,
		SubjectID:   a.SubjectID,
		CreatedAt:   a.CreatedAt,
	}
}
