package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimria/internal/models"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()

	gw, err := New(Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestExecuteAndLastInsertID(t *testing.T) {
	gw := newTestGateway(t)

	affected, err := gw.Execute(
		"INSERT INTO users (email, password, name, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		"raw@example.com", "hash", "Raw",
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	id, err := gw.LastInsertID()
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestDeletingOwnerNullsPropertyReference(t *testing.T) {
	gw := newTestGateway(t)

	user := models.User{Email: "owner@example.com", Password: "hash", Name: "Owner"}
	require.NoError(t, gw.DB().Create(&user).Error)

	property := models.Property{
		Title:   "Quiet flat",
		Address: "12 Main St",
		Price:   900,
		Rooms:   2,
		Type:    "apartment",
		Status:  "available",
		UserID:  &user.ID,
	}
	require.NoError(t, gw.DB().Create(&property).Error)

	affected, err := gw.Execute("DELETE FROM users WHERE id = ?", user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// The listing survives ownerless instead of cascading away or keeping
	// a dangling owner id.
	var reloaded models.Property
	require.NoError(t, gw.DB().First(&reloaded, property.ID).Error)
	assert.Nil(t, reloaded.UserID)
}

func TestSqliteDSNCarriesForeignKeyPragma(t *testing.T) {
	assert.Equal(t, "app.sqlite?_foreign_keys=on", sqliteDSN("app.sqlite"))
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on", sqliteDSN("file::memory:?cache=shared"))
}
