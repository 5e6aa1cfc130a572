package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/analytics"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CustomerUC  *billing.CustomerUseCase
	InvoiceUC   *billing.InvoiceUseCase
	Recurring   *recurring.Controller
	DashboardUC *analytics.DashboardUseCase
	JWTSecret   string
	JWTIssuer   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	customerHandler := NewCustomerHandler(deps.CustomerUC)
	recurringHandler := NewRecurringHandler(deps.Recurring)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC)
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)

	customers := api.Group("/customers")
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)
	customers.Get("/:id", customerHandler.GetByID)
	customers.Put("/:id", customerHandler.Update)
	customers.Delete("/:id", customerHandler.Delete)
	customers.Get("/:id/recurring-invoices", recurringHandler.ListByCustomer)
	customers.Post("/:id/recurring-invoices", recurringHandler.CreateForCustomer)

	invoices := api.Group("/invoices")
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Post("/:id/send", invoiceHandler.Send)
	invoices.Post("/:id/mark-as-paid", invoiceHandler.MarkPaid)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)

	// Rutas fijas antes de /:id
	series := api.Group("/recurring-invoices")
	series.Post("/sweep", RequireRole(jwt.RoleAdmin), recurringHandler.Sweep)
	series.Get("/upcoming", recurringHandler.Upcoming)
	series.Post("/", recurringHandler.Create)
	series.Get("/:id", recurringHandler.GetByID)
	series.Put("/:id", recurringHandler.Update)
	series.Delete("/:id", recurringHandler.Terminate)
	series.Post("/:id/generate", recurringHandler.Generate)
	series.Get("/:id/preview", recurringHandler.Preview)

	api.Get("/dashboard/summary", dashboardHandler.GetSummary)
}
