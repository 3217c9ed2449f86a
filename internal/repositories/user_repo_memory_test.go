package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dimria/internal/errs"
	"dimria/internal/models"
)

func TestMemoryUserRepo_CreateAndLookup(t *testing.T) {
	repo := NewMemoryUserRepository()

	user := &models.User{Email: "a@example.com", Password: "hash", Name: "A"}
	assert.NoError(t, repo.Create(user))
	assert.Equal(t, uint(1), user.ID)

	byEmail, err := repo.GetByEmail("a@example.com")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "a@example.com", byID.Email)
}

func TestMemoryUserRepo_MissesAreNotErrors(t *testing.T) {
	repo := NewMemoryUserRepository()

	byEmail, err := repo.GetByEmail("ghost@example.com")
	assert.NoError(t, err)
	assert.Nil(t, byEmail)

	byID, err := repo.GetByID(42)
	assert.NoError(t, err)
	assert.Nil(t, byID)
}

func TestMemoryUserRepo_EnforcesUniqueEmail(t *testing.T) {
	repo := NewMemoryUserRepository()

	assert.NoError(t, repo.Create(&models.User{Email: "a@example.com"}))
	err := repo.Create(&models.User{Email: "a@example.com"})

	assert.True(t, errs.IsPersistence(err))
	assert.ErrorIs(t, err, errs.ErrEmailTaken)
}
