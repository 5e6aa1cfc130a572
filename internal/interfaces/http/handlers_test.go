package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/application/analytics"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	pkgjwt "github.com/jhoicas/Facturacion-api/pkg/jwt"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

type apiFixture struct {
	app   *fiber.App
	admin string
	user  string
}

// newAPI arma la API completa sobre el store en memoria con "hoy" = 2024-01-01.
func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	clk := &clock.Fixed{At: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
	log := logger.Nop()
	rec := activity.NewRecorder(store.Activities(), clk, log)
	engine := recurring.NewEngine(store, store.Series(), clk, rec, log, recurring.EngineConfig{
		InvoicePrefix: "INV",
		Workers:       2,
		MaxRetries:    1,
		MaxCatchUp:    12,
		RetryDelay:    time.Millisecond,
	})

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	apphttp.Router(app, apphttp.RouterDeps{
		CustomerUC: billing.NewCustomerUseCase(store.Customers(), clk, rec),
		InvoiceUC: billing.NewInvoiceUseCase(store.Invoices(), store.Customers(), clk, rec, billing.InvoiceConfig{
			Prefix:          "INV",
			DefaultCurrency: "USD",
		}),
		Recurring:   recurring.NewController(store.Series(), store.Customers(), engine, clk, rec, log, "USD"),
		DashboardUC: analytics.NewDashboardUseCase(store.Dashboard(), store.Series(), store.Activities(), store.Customers(), clk),
		JWTSecret:   testJWTSecret,
		JWTIssuer:   testIssuer,
	})
	return &apiFixture{
		app:   app,
		admin: tokenFor(t, testCompanyID, pkgjwt.RoleAdmin, time.Hour),
		user:  tokenFor(t, testCompanyID, pkgjwt.RoleSeller, time.Hour),
	}
}

// call hace la petición y decodifica la respuesta JSON (si hay cuerpo).
func (f *apiFixture) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

// callList GET que responde un arreglo JSON.
func (f *apiFixture) callList(t *testing.T, path string) []map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", f.user)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) createCustomer(t *testing.T, name, email string) string {
	t.Helper()
	code, body := f.call(t, http.MethodPost, "/api/customers", f.user, map[string]any{"name": name, "email": email})
	require.Equal(t, http.StatusCreated, code, body)
	return body["id"].(string)
}

func seriesBody(total any) map[string]any {
	body := map[string]any{
		"title":           "Soporte mensual",
		"rule":            map[string]any{"type": "monthly"},
		"start_date":      "2024-01-01",
		"due_date_offset": 10,
		"tax_rate":        "19",
		"line_items": []map[string]any{
			{"description": "Soporte", "quantity": "1", "unit_price": "100"},
		},
	}
	if total != nil {
		body["total_count"] = total
	}
	return body
}

func TestAPI_Health(t *testing.T) {
	f := newAPI(t)
	code, body := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_RequiereToken(t *testing.T) {
	f := newAPI(t)
	code, body := f.call(t, http.MethodGet, "/api/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestAPI_Clientes(t *testing.T) {
	f := newAPI(t)
	id := f.createCustomer(t, "Acme", "pagos@acme.test")

	code, body := f.call(t, http.MethodPost, "/api/customers", f.user, map[string]any{"name": "Otra", "email": "PAGOS@acme.test"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DUPLICATE", body["code"])

	code, body = f.call(t, http.MethodPost, "/api/customers", f.user, map[string]any{"name": "", "email": "no-es-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok, body)
	assert.Equal(t, "required", details["name"])
	assert.Equal(t, "email", details["email"])

	code, body = f.call(t, http.MethodPut, "/api/customers/"+id, f.user, map[string]any{"city": "Bogotá"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Bogotá", body["city"])
	assert.Equal(t, "Acme", body["name"])

	code, body = f.call(t, http.MethodGet, "/api/customers?search=acm&limit=5", f.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, _ = f.call(t, http.MethodGet, "/api/customers/no-existe", f.user, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.call(t, http.MethodDelete, "/api/customers/"+id, f.user, nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestAPI_CuerpoInvalido(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/customers", bytes.NewBufferString("{no json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", f.user)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CicloDeFactura(t *testing.T) {
	f := newAPI(t)
	customerID := f.createCustomer(t, "Acme", "pagos@acme.test")

	code, inv := f.call(t, http.MethodPost, "/api/invoices", f.user, map[string]any{
		"customer_id": customerID,
		"tax_rate":    "19",
		"items":       []map[string]any{{"description": "Consultoría", "quantity": "2", "unit_price": "50"}},
	})
	require.Equal(t, http.StatusCreated, code, inv)
	id := inv["id"].(string)
	assert.Equal(t, "draft", inv["status"])
	assert.Equal(t, "119", inv["total"])
	assert.Equal(t, "2024-01-31", inv["due_date"])

	code, body := f.call(t, http.MethodPost, "/api/invoices/"+id+"/cancel", f.user, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code, "cancelar exige motivo")
	assert.Equal(t, "VALIDATION", body["code"])

	code, body = f.call(t, http.MethodPost, "/api/invoices/"+id+"/send", f.user, map[string]any{"recipient": "pagos@acme.test"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "sent", body["status"])

	code, body = f.call(t, http.MethodPut, "/api/invoices/"+id, f.user, map[string]any{"notes": "tarde"})
	assert.Equal(t, http.StatusConflict, code, "solo se editan borradores")
	assert.Equal(t, "CONFLICT", body["code"])

	code, body = f.call(t, http.MethodPost, "/api/invoices/"+id+"/mark-as-paid", f.user, map[string]any{"payment_method": "bank_transfer"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "paid", body["status"])
	assert.Empty(t, body["available_actions"])

	code, body = f.call(t, http.MethodGet, "/api/invoices?status=paid", f.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)
}

func TestAPI_SerieRecurrente(t *testing.T) {
	f := newAPI(t)
	customerID := f.createCustomer(t, "Acme", "pagos@acme.test")

	code, series := f.call(t, http.MethodPost, "/api/customers/"+customerID+"/recurring-invoices", f.user, seriesBody(2))
	require.Equal(t, http.StatusCreated, code, series)
	id := series["id"].(string)
	assert.Equal(t, "active", series["status"])
	assert.Equal(t, "2024-02-01", series["next_invoice_date"])
	assert.Equal(t, "119", series["total"])

	code, body := f.call(t, http.MethodGet, "/api/recurring-invoices/"+id+"/preview?count=5", f.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"2024-02-01", "2024-03-01"}, body["dates"], "limitado a las facturas restantes")

	list := f.callList(t, "/api/customers/"+customerID+"/recurring-invoices")
	require.Len(t, list, 1)
	assert.Equal(t, "Acme", list[0]["customer_name"])

	code, gen := f.call(t, http.MethodPost, "/api/recurring-invoices/"+id+"/generate", f.user, nil)
	require.Equal(t, http.StatusCreated, code, gen)
	invoice := gen["invoice"].(map[string]any)
	assert.Equal(t, "recurring", invoice["type"])
	assert.Equal(t, "2024-01-01", invoice["invoice_date"])
	assert.Equal(t, "2024-01-11", invoice["due_date"])
	assert.Equal(t, id, invoice["recurring_invoice_id"])
	assert.Regexp(t, `^INV-20240101-[0-9A-F]{8}$`, invoice["number"])
	assert.EqualValues(t, 1, gen["series"].(map[string]any)["generated_count"])

	code, _ = f.call(t, http.MethodPost, "/api/recurring-invoices/"+id+"/generate", f.user, nil)
	assert.Equal(t, http.StatusCreated, code)

	code, body = f.call(t, http.MethodPost, "/api/recurring-invoices/"+id+"/generate", f.user, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SERIES_EXHAUSTED", body["code"])

	code, body = f.call(t, http.MethodGet, "/api/recurring-invoices/"+id, f.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])
	assert.Nil(t, body["next_invoice_date"])

	code, body = f.call(t, http.MethodDelete, "/api/recurring-invoices/"+id, f.user, nil)
	assert.Equal(t, http.StatusConflict, code, "una serie completada no se termina")
	assert.Equal(t, "INVALID_STATE", body["code"])
}

func TestAPI_TerminarYActualizar(t *testing.T) {
	f := newAPI(t)
	customerID := f.createCustomer(t, "Acme", "pagos@acme.test")
	body := seriesBody(nil)
	body["customer_id"] = customerID
	code, series := f.call(t, http.MethodPost, "/api/recurring-invoices", f.user, body)
	require.Equal(t, http.StatusCreated, code, series)
	id := series["id"].(string)
	assert.Nil(t, series["total_count"])

	code, upd := f.call(t, http.MethodPut, "/api/recurring-invoices/"+id, f.user, map[string]any{
		"title":       "Soporte premium",
		"total_count": 6,
		"rule":        map[string]any{"type": "counted", "interval": 2, "unit": "week"},
	})
	require.Equal(t, http.StatusOK, code, upd)
	assert.Equal(t, "Soporte premium", upd["title"])
	assert.EqualValues(t, 6, upd["total_count"])
	assert.Equal(t, "2024-01-15", upd["next_invoice_date"])

	code, upd = f.call(t, http.MethodPut, "/api/recurring-invoices/"+id, f.user, map[string]any{"due_date_offset": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, term := f.call(t, http.MethodDelete, "/api/recurring-invoices/"+id, f.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "terminated", term["status"])

	code, term = f.call(t, http.MethodDelete, "/api/recurring-invoices/"+id, f.user, nil)
	assert.Equal(t, http.StatusOK, code, "terminar es idempotente")
	assert.Equal(t, "terminated", term["status"])

	code, gen := f.call(t, http.MethodPost, "/api/recurring-invoices/"+id+"/generate", f.user, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_STATE", gen["code"])
}

func TestAPI_Barrido(t *testing.T) {
	f := newAPI(t)
	customerID := f.createCustomer(t, "Acme", "pagos@acme.test")
	code, _ := f.call(t, http.MethodPost, "/api/customers/"+customerID+"/recurring-invoices", f.user, seriesBody(nil))
	require.Equal(t, http.StatusCreated, code)

	code, body := f.call(t, http.MethodPost, "/api/recurring-invoices/sweep", f.user, nil)
	assert.Equal(t, http.StatusForbidden, code, "solo admin")
	assert.Equal(t, "FORBIDDEN", body["code"])

	code, body = f.call(t, http.MethodPost, "/api/recurring-invoices/sweep", f.admin, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 0, body["generated"], "hoy aún no vence ninguna")

	asOf := civil.Date{Year: 2024, Month: time.March, Day: 1}
	code, body = f.call(t, http.MethodPost, "/api/recurring-invoices/sweep", f.admin, map[string]any{"as_of": asOf})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "2024-03-01", body["as_of"])
	assert.EqualValues(t, 1, body["due"])
	assert.EqualValues(t, 2, body["generated"], "pone al día febrero y marzo")
	assert.Empty(t, body["failed"])

	code, body = f.call(t, http.MethodPost, "/api/recurring-invoices/sweep", f.admin, map[string]any{"as_of": asOf})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["generated"], "repetir el barrido no duplica")

	code, body = f.call(t, http.MethodGet, "/api/invoices?type=recurring", f.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 2)
}

func TestAPI_Dashboard(t *testing.T) {
	f := newAPI(t)
	customerID := f.createCustomer(t, "Acme", "pagos@acme.test")
	code, _ := f.call(t, http.MethodPost, "/api/customers/"+customerID+"/recurring-invoices", f.user, seriesBody(nil))
	require.Equal(t, http.StatusCreated, code)

	code, body := f.call(t, http.MethodGet, "/api/dashboard/summary", f.user, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["total_customers"])
	assert.NotEmpty(t, body["recent_activity"])
}

func TestAPI_RutaInexistente(t *testing.T) {
	f := newAPI(t)
	code, body := f.call(t, http.MethodGet, "/api/nada", f.user, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
