package memory

import (
	"context"
	"slices"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.ActivityRepository = (*ActivityRepository)(nil)

// ActivityRepository bitácora en memoria.
type ActivityRepository struct {
	store *Store
}

func (r *ActivityRepository) Record(_ context.Context, a *entity.Activity) error {
	defer r.store.lock(false)()
	cp := *a
	r.store.activities = append(r.store.activities, &cp)
	return nil
}

func (r *ActivityRepository) ListRecent(_ context.Context, companyID string, limit int) ([]*entity.Activity, error) {
	defer r.store.lock(false)()
	out := []*entity.Activity{}
	for _, a := range slices.Backward(r.store.activities) {
		if a.CompanyID != companyID {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
