// Package activity registra la bitácora de actividad mostrada en el dashboard.
package activity

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Recorder escribe entradas de bitácora. Un fallo al registrar se loguea y no
// interrumpe la operación que lo originó.
type Recorder struct {
	repo  repository.ActivityRepository
	clock clock.Clock
	log   *logger.Logger
}

// NewRecorder construye el recorder. repo nil deshabilita el registro.
func NewRecorder(repo repository.ActivityRepository, clk clock.Clock, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{repo: repo, clock: clk, log: log.Component("activity")}
}

// Record agrega una entrada para el sujeto indicado.
func (r *Recorder) Record(ctx context.Context, companyID, action, subjectType, subjectID, description string) {
	if r == nil || r.repo == nil {
		return
	}
	a := &entity.Activity{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Action:      action,
		Description: description,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		CreatedAt:   r.clock.Now(),
	}
	if err := r.repo.Record(ctx, a); err != nil {
		r.log.Warn().Err(err).Str("action", action).Str("subject_id", subjectID).Msg("no se pudo registrar la actividad")
	}
}
