package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/bootstrap"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func TestNew_DriverMemoria(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := bootstrap.New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer app.Close()

	c, err := app.Customers.Create(context.Background(), "co-1", dto.CreateCustomerRequest{Name: "Acme", Email: "a@acme.test"})
	require.NoError(t, err)

	report, err := app.Engine.Sweep(context.Background(), app.Clock.Today())
	require.NoError(t, err)
	assert.Zero(t, report.Generated)

	list, err := app.Recurring.ListByCustomer(context.Background(), "co-1", c.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
