package repository

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// RecurringSeriesRepository define el puerto de persistencia de las series recurrentes.
//
// Toda escritura que compita con la generación está protegida por compare-and-swap:
// los métodos devuelven false (sin error) cuando la fila ya no coincide con lo esperado.
type RecurringSeriesRepository interface {
	Create(ctx context.Context, series *entity.RecurringSeries) error
	// GetByID devuelve (nil, nil) si la serie no existe.
	GetByID(ctx context.Context, id string) (*entity.RecurringSeries, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*entity.RecurringSeries, error)
	// ListUpcoming series activas con próxima fecha en [from, to].
	ListUpcoming(ctx context.Context, companyID string, from, to civil.Date) ([]*entity.RecurringSeries, error)

	// Update guarda cambios de plantilla si la serie sigue editable y en la versión esperada.
	Update(ctx context.Context, series *entity.RecurringSeries, expected entity.SeriesVersion) (bool, error)
	// Terminate pasa a terminated una serie pending/active. false si ya no lo estaba.
	Terminate(ctx context.Context, id string, at time.Time) (bool, error)

	// ActivatePending promueve a active las series pending con start_date <= asOf.
	ActivatePending(ctx context.Context, asOf civil.Date) (int, error)
	// LoadActiveDue series active con next_invoice_date <= asOf.
	LoadActiveDue(ctx context.Context, asOf civil.Date) ([]*entity.RecurringSeries, error)
	// CompareAndSwapAdvance escribe el progreso de next si la fila sigue en expected.
	CompareAndSwapAdvance(ctx context.Context, seriesID string, expected entity.SeriesVersion, next *entity.RecurringSeries) (bool, error)
}
