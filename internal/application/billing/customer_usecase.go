package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/validation"
)

// CustomerUseCase casos de uso para clientes (facturación).
type CustomerUseCase struct {
	repo     repository.CustomerRepository
	clock    clock.Clock
	activity *activity.Recorder
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(repo repository.CustomerRepository, clk clock.Clock, recorder *activity.Recorder) *CustomerUseCase {
	return &CustomerUseCase{repo: repo, clock: clk, activity: recorder}
}

// Create crea un nuevo cliente activo.
func (uc *CustomerUseCase) Create(ctx context.Context, companyID string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	now := uc.clock.Now()
	customer := &entity.Customer{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        in.Phone,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		TaxID:        in.TaxID,
		Notes:        in.Notes,
		Status:       entity.CustomerStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, companyID, entity.ActivityCustomerCreated, entity.SubjectCustomer, customer.ID,
		fmt.Sprintf("Cliente %s creado", customer.Name))
	out := dto.FromCustomer(customer)
	return &out, nil
}

// Get obtiene un cliente de la empresa con su saldo por cobrar.
func (uc *CustomerUseCase) Get(ctx context.Context, companyID, id string) (*dto.CustomerResponse, error) {
	customer, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	out := dto.FromCustomer(customer)
	return &out, nil
}

// List lista clientes de la empresa con búsqueda, filtro de estado y paginación.
func (uc *CustomerUseCase) List(ctx context.Context, companyID string, in dto.CustomerListRequest) (*dto.CustomerListResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	in.DefaultPage()
	list, total, err := uc.repo.List(ctx, companyID, repository.CustomerFilter{
		Search: in.Search,
		Status: in.Status,
		SortBy: in.SortBy,
		Desc:   in.Order == "desc",
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &dto.CustomerListResponse{
		Items: lo.Map(list, func(c *entity.Customer, _ int) dto.CustomerResponse { return dto.FromCustomer(c) }),
		Page:  in.Response(total),
	}, nil
}

// Update modifica los campos presentes del cliente.
func (uc *CustomerUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	customer, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&customer.Name, in.Name)
	set(&customer.Email, in.Email)
	set(&customer.Phone, in.Phone)
	set(&customer.AddressLine1, in.AddressLine1)
	set(&customer.AddressLine2, in.AddressLine2)
	set(&customer.City, in.City)
	set(&customer.State, in.State)
	set(&customer.PostalCode, in.PostalCode)
	set(&customer.Country, in.Country)
	set(&customer.TaxID, in.TaxID)
	set(&customer.Notes, in.Notes)
	set(&customer.Status, in.Status)
	if customer.Name == "" {
		return nil, fmt.Errorf("%w: name no puede quedar vacío", domain.ErrInvalidInput)
	}
	customer.Email = strings.ToLower(customer.Email)
	customer.UpdatedAt = uc.clock.Now()
	if err := uc.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	out := dto.FromCustomer(customer)
	return &out, nil
}

// Delete elimina un cliente sin facturas ni series asociadas.
func (uc *CustomerUseCase) Delete(ctx context.Context, companyID, id string) error {
	if _, err := uc.load(ctx, companyID, id); err != nil {
		return err
	}
	referenced, err := uc.repo.HasReferences(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: el cliente tiene facturas o series asociadas", domain.ErrConflict)
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *CustomerUseCase) load(ctx context.Context, companyID, id string) (*entity.Customer, error) {
	customer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}
