package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ActivityRepository bitácora de actividad (append-only).
type ActivityRepository interface {
	Record(ctx context.Context, a *entity.Activity) error
	ListRecent(ctx context.Context, companyID string, limit int) ([]*entity.Activity, error)
}
