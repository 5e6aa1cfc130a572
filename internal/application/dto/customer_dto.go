package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone,omitempty" validate:"max=50"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	TaxID        string `json:"tax_id,omitempty" validate:"max=50"`
	Notes        string `json:"notes,omitempty"`
}

// UpdateCustomerRequest body para PUT /api/customers/:id. Los campos ausentes no se modifican.
type UpdateCustomerRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	AddressLine1 *string `json:"address_line1,omitempty"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty"`
	Country      *string `json:"country,omitempty"`
	TaxID        *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Notes        *string `json:"notes,omitempty"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// CustomerListRequest filtros de GET /api/customers.
type CustomerListRequest struct {
	PageRequest
	Search string `query:"search"`
	Status string `query:"status" validate:"omitempty,oneof=active inactive"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=name email created_at"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID              string          `json:"id"`
	CompanyID       string          `json:"company_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone,omitempty"`
	AddressLine1    string          `json:"address_line1,omitempty"`
	AddressLine2    string          `json:"address_line2,omitempty"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	PostalCode      string          `json:"postal_code,omitempty"`
	Country         string          `json:"country,omitempty"`
	TaxID           string          `json:"tax_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Status          string          `json:"status"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CustomerListResponse página de clientes.
type CustomerListResponse struct {
	Items []CustomerResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
