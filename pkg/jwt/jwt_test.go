package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	id := jwt.Identity{UserID: "u-1", CompanyID: "co-1", Role: jwt.RoleAccountant}
	tok, err := jwt.Generate(secret, "facturacion", id, time.Hour)
	require.NoError(t, err)

	got, err := jwt.Parse(secret, "facturacion", tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParse_Errores(t *testing.T) {
	tok, err := jwt.Generate(secret, "facturacion", jwt.Identity{UserID: "u-1", CompanyID: "co-1"}, time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse("otro-secret", "facturacion", tok)
	assert.Error(t, err, "secret incorrecto")

	_, err = jwt.Parse(secret, "otro-emisor", tok)
	assert.Error(t, err, "emisor distinto")

	_, err = jwt.Parse("", "", tok)
	assert.Error(t, err, "secret vacío")

	expired, err := jwt.Generate(secret, "", jwt.Identity{UserID: "u-1", CompanyID: "co-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = jwt.Parse(secret, "", expired)
	assert.Error(t, err, "token expirado")
}
