package billing

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/validation"
)

// Plazo de pago por defecto cuando la factura no trae due_date.
const defaultPaymentTermDays = 30

// InvoiceConfig valores por defecto de las facturas manuales.
type InvoiceConfig struct {
	Prefix          string
	DefaultCurrency string
}

// InvoiceUseCase casos de uso de facturas estándar y su ciclo de vida
// (borrador → enviada → pagada, con cancelación).
type InvoiceUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	clock        clock.Clock
	activity     *activity.Recorder
	cfg          InvoiceConfig
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	clk clock.Clock,
	recorder *activity.Recorder,
	cfg InvoiceConfig,
) *InvoiceUseCase {
	if cfg.Prefix == "" {
		cfg.Prefix = "INV"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &InvoiceUseCase{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		clock:        clk,
		activity:     recorder,
		cfg:          cfg,
	}
}

// Create crea una factura estándar en borrador.
func (uc *InvoiceUseCase) Create(ctx context.Context, companyID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	customer, err := uc.customerOf(ctx, companyID, in.CustomerID)
	if err != nil {
		return nil, err
	}
	items, err := toItems(in.Items)
	if err != nil {
		return nil, err
	}
	if err := checkTaxRate(in.TaxRate); err != nil {
		return nil, err
	}

	today := uc.clock.Today()
	invoiceDate := lo.Ternary(in.InvoiceDate.IsZero(), today, in.InvoiceDate)
	dueDate := lo.Ternary(in.DueDate.IsZero(), invoiceDate.AddDays(defaultPaymentTermDays), in.DueDate)
	if dueDate.Before(invoiceDate) {
		return nil, fmt.Errorf("%w: due_date no puede ser anterior a invoice_date", domain.ErrInvalidInput)
	}

	now := uc.clock.Now()
	inv := &entity.Invoice{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		CustomerID:    customer.ID,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Items:         items,
		TaxRate:       in.TaxRate,
		Currency:      lo.Ternary(in.Currency == "", uc.cfg.DefaultCurrency, in.Currency),
		Status:        entity.InvoiceStatusDraft,
		Type:          entity.InvoiceTypeStandard,
		Notes:         in.Notes,
		InternalNotes: in.InternalNotes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	inv.Number = entity.NewInvoiceNumber(uc.cfg.Prefix, invoiceDate, inv.ID)
	assignItemIDs(inv)
	inv.Recalculate()

	if err := uc.invoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, companyID, entity.ActivityInvoiceCreated, entity.SubjectInvoice, inv.ID,
		fmt.Sprintf("Factura %s creada para %s", inv.Number, customer.Name))
	out := dto.FromInvoice(inv, customer.Name, today)
	return &out, nil
}

// Get obtiene una factura de la empresa.
func (uc *InvoiceUseCase) Get(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return uc.response(ctx, inv), nil
}

// List lista facturas con filtros de estado, tipo, cliente y rangos de fecha.
func (uc *InvoiceUseCase) List(ctx context.Context, companyID string, in dto.InvoiceListRequest) (*dto.InvoiceListResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	in.DefaultPage()
	today := uc.clock.Today()
	f := repository.InvoiceFilter{
		Search:     in.Search,
		Status:     in.Status,
		Type:       in.Type,
		CustomerID: in.CustomerID,
		Today:      today,
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	var err error
	for _, p := range []struct {
		name string
		raw  string
		dst  **civil.Date
	}{
		{"date_from", in.DateFrom, &f.DateFrom},
		{"date_to", in.DateTo, &f.DateTo},
		{"due_date_from", in.DueDateFrom, &f.DueDateFrom},
		{"due_date_to", in.DueDateTo, &f.DueDateTo},
	} {
		if *p.dst, err = parseDate(p.name, p.raw); err != nil {
			return nil, err
		}
	}

	list, total, err := uc.invoiceRepo.List(ctx, companyID, f)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	return &dto.InvoiceListResponse{
		Items: lo.Map(list, func(inv *entity.Invoice, _ int) dto.InvoiceResponse {
			name, ok := names[inv.CustomerID]
			if !ok {
				name = uc.customerName(ctx, inv.CustomerID)
				names[inv.CustomerID] = name
			}
			return dto.FromInvoice(inv, name, today)
		}),
		Page: in.Response(total),
	}, nil
}

// Update modifica una factura en borrador.
func (uc *InvoiceUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	inv, err := uc.loadFor(ctx, companyID, id, entity.InvoiceActionEdit)
	if err != nil {
		return nil, err
	}
	if in.CustomerID != nil {
		customer, err := uc.customerOf(ctx, companyID, *in.CustomerID)
		if err != nil {
			return nil, err
		}
		inv.CustomerID = customer.ID
	}
	if in.InvoiceDate != nil {
		inv.InvoiceDate = *in.InvoiceDate
	}
	if in.DueDate != nil {
		inv.DueDate = *in.DueDate
	}
	if inv.DueDate.Before(inv.InvoiceDate) {
		return nil, fmt.Errorf("%w: due_date no puede ser anterior a invoice_date", domain.ErrInvalidInput)
	}
	if in.Items != nil {
		if inv.Items, err = toItems(in.Items); err != nil {
			return nil, err
		}
		assignItemIDs(inv)
	}
	if in.TaxRate != nil {
		if err := checkTaxRate(*in.TaxRate); err != nil {
			return nil, err
		}
		inv.TaxRate = *in.TaxRate
	}
	if in.Currency != nil {
		inv.Currency = *in.Currency
	}
	if in.Notes != nil {
		inv.Notes = *in.Notes
	}
	if in.InternalNotes != nil {
		inv.InternalNotes = *in.InternalNotes
	}
	inv.Recalculate()
	inv.UpdatedAt = uc.clock.Now()
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return uc.response(ctx, inv), nil
}

// Delete elimina una factura en borrador.
func (uc *InvoiceUseCase) Delete(ctx context.Context, companyID, id string) error {
	if _, err := uc.loadFor(ctx, companyID, id, entity.InvoiceActionDelete); err != nil {
		return err
	}
	return uc.invoiceRepo.Delete(ctx, id)
}

// Send marca la factura como enviada al destinatario. La entrega del correo es externa.
func (uc *InvoiceUseCase) Send(ctx context.Context, companyID, id string, in dto.SendInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	inv, err := uc.loadFor(ctx, companyID, id, entity.InvoiceActionSend)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	inv.Status = entity.InvoiceStatusSent
	inv.SentTo = strings.TrimSpace(in.Recipient)
	inv.SentAt = &now
	inv.UpdatedAt = now
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, companyID, entity.ActivityInvoiceSent, entity.SubjectInvoice, inv.ID,
		fmt.Sprintf("Factura %s enviada a %s", inv.Number, inv.SentTo))
	return uc.response(ctx, inv), nil
}

// MarkPaid registra el pago de una factura enviada o vencida.
func (uc *InvoiceUseCase) MarkPaid(ctx context.Context, companyID, id string, in dto.MarkPaidRequest) (*dto.InvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	inv, err := uc.loadFor(ctx, companyID, id, entity.InvoiceActionMarkPaid)
	if err != nil {
		return nil, err
	}
	paid := uc.clock.Today()
	if in.PaymentDate != nil {
		paid = *in.PaymentDate
	}
	if paid.Before(inv.InvoiceDate) {
		return nil, fmt.Errorf("%w: payment_date no puede ser anterior a invoice_date", domain.ErrInvalidInput)
	}
	inv.Status = entity.InvoiceStatusPaid
	inv.PaymentDate = &paid
	inv.PaymentMethod = in.PaymentMethod
	inv.PaymentReference = in.Reference
	inv.UpdatedAt = uc.clock.Now()
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, companyID, entity.ActivityInvoicePaid, entity.SubjectInvoice, inv.ID,
		fmt.Sprintf("Factura %s pagada (%s %s)", inv.Number, inv.Total.StringFixed(2), inv.Currency))
	return uc.response(ctx, inv), nil
}

// Cancel anula una factura no pagada.
func (uc *InvoiceUseCase) Cancel(ctx context.Context, companyID, id string, in dto.CancelInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	inv, err := uc.loadFor(ctx, companyID, id, entity.InvoiceActionCancel)
	if err != nil {
		return nil, err
	}
	inv.Status = entity.InvoiceStatusCancelled
	inv.CancellationReason = strings.TrimSpace(in.Reason)
	inv.UpdatedAt = uc.clock.Now()
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, companyID, entity.ActivityInvoiceCancelled, entity.SubjectInvoice, inv.ID,
		fmt.Sprintf("Factura %s cancelada: %s", inv.Number, inv.CancellationReason))
	return uc.response(ctx, inv), nil
}

func (uc *InvoiceUseCase) load(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

// loadFor carga la factura y verifica que la acción esté permitida en su estado.
func (uc *InvoiceUseCase) loadFor(ctx context.Context, companyID, id, action string) (*entity.Invoice, error) {
	inv, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !inv.Allows(action, uc.clock.Today()) {
		return nil, fmt.Errorf("%w: acción %s no permitida en una factura %s",
			domain.ErrConflict, action, inv.EffectiveStatus(uc.clock.Today()))
	}
	return inv, nil
}

func (uc *InvoiceUseCase) customerOf(ctx context.Context, companyID, customerID string) (*entity.Customer, error) {
	customer, err := uc.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.CompanyID != companyID {
		return nil, fmt.Errorf("%w: el cliente %s no existe", domain.ErrInvalidInput, customerID)
	}
	return customer, nil
}

func (uc *InvoiceUseCase) customerName(ctx context.Context, customerID string) string {
	customer, err := uc.customerRepo.GetByID(ctx, customerID)
	if err != nil || customer == nil {
		return ""
	}
	return customer.Name
}

func (uc *InvoiceUseCase) response(ctx context.Context, inv *entity.Invoice) *dto.InvoiceResponse {
	out := dto.FromInvoice(inv, uc.customerName(ctx, inv.CustomerID), uc.clock.Today())
	return &out
}

func toItems(in []dto.InvoiceItemRequest) ([]entity.InvoiceItem, error) {
	items := make([]entity.InvoiceItem, len(in))
	for i, it := range in {
		if !it.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: items[%d].quantity debe ser mayor que cero", domain.ErrInvalidInput, i)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: items[%d].unit_price no puede ser negativo", domain.ErrInvalidInput, i)
		}
		items[i] = entity.InvoiceItem{
			Position:    i + 1,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return items, nil
}

func assignItemIDs(inv *entity.Invoice) {
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New().String()
		inv.Items[i].InvoiceID = inv.ID
	}
}

func checkTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: tax_rate debe estar entre 0 y 100", domain.ErrInvalidInput)
	}
	return nil
}

func parseDate(name, raw string) (*civil.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s debe tener formato AAAA-MM-DD", domain.ErrInvalidInput, name)
	}
	return &d, nil
}
