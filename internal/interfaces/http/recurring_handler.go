package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
)

// RecurringHandler maneja las series de facturación recurrente (protegido).
type RecurringHandler struct {
	ctrl *recurring.Controller
}

// NewRecurringHandler construye el handler.
func NewRecurringHandler(ctrl *recurring.Controller) *RecurringHandler {
	return &RecurringHandler{ctrl: ctrl}
}

// Create POST /api/recurring-invoices
func (h *RecurringHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRecurringInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return errInvalidBody
	}
	return h.create(c, in)
}

// CreateForCustomer POST /api/customers/:id/recurring-invoices (el cliente sale de la ruta)
func (h *RecurringHandler) CreateForCustomer(c *fiber.Ctx) error {
	var in dto.CreateRecurringInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return errInvalidBody
	}
	in.CustomerID = c.Params("id")
	return h.create(c, in)
}

func (h *RecurringHandler) create(c *fiber.Ctx, in dto.CreateRecurringInvoiceRequest) error {
	out, err := h.ctrl.Create(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListByCustomer GET /api/customers/:id/recurring-invoices
func (h *RecurringHandler) ListByCustomer(c *fiber.Ctx) error {
	out, err := h.ctrl.ListByCustomer(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Upcoming GET /api/recurring-invoices/upcoming?days=7
func (h *RecurringHandler) Upcoming(c *fiber.Ctx) error {
	out, err := h.ctrl.ListUpcoming(c.Context(), GetCompanyID(c), c.QueryInt("days", 7))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// GetByID GET /api/recurring-invoices/:id
func (h *RecurringHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.ctrl.Get(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Update PUT /api/recurring-invoices/:id. "total_count": null quita el límite.
func (h *RecurringHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateRecurringInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return errInvalidBody
	}
	out, err := h.ctrl.Update(c.Context(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Terminate DELETE /api/recurring-invoices/:id. La serie no se borra: queda terminated.
func (h *RecurringHandler) Terminate(c *fiber.Ctx) error {
	out, err := h.ctrl.Terminate(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Generate POST /api/recurring-invoices/:id/generate (disparo manual)
func (h *RecurringHandler) Generate(c *fiber.Ctx) error {
	out, err := h.ctrl.Trigger(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Preview GET /api/recurring-invoices/:id/preview?count=5
func (h *RecurringHandler) Preview(c *fiber.Ctx) error {
	out, err := h.ctrl.Preview(c.Context(), GetCompanyID(c), c.Params("id"), c.QueryInt("count", 0))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Sweep POST /api/recurring-invoices/sweep {"as_of": "YYYY-MM-DD"} (solo admin)
func (h *RecurringHandler) Sweep(c *fiber.Ctx) error {
	var in dto.SweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return errInvalidBody
		}
	}
	out, err := h.ctrl.Sweep(c.Context(), in.AsOf)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
