package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.ActivityRepository = (*ActivityRepo)(nil)

// ActivityRepo bitácora de actividad en la tabla activities.
type ActivityRepo struct {
	q Querier
}

func NewActivityRepository(q Querier) *ActivityRepo {
	return &ActivityRepo{q: q}
}

func (r *ActivityRepo) Record(ctx context.Context, a *entity.Activity) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO activities (id, company_id, action, description, subject_type, subject_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.CompanyID, a.Action, a.Description, a.SubjectType, a.SubjectID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepo) ListRecent(ctx context.Context, companyID string, limit int) ([]*entity.Activity, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, company_id, action, description, subject_type, subject_id, created_at
		FROM activities WHERE company_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()
	out := []*entity.Activity{}
	for rows.Next() {
		var a entity.Activity
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Action, &a.Description, &a.SubjectType, &a.SubjectID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
