package repositories

import (
	"gorm.io/gorm"

	"dimria/internal/errs"
	"dimria/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create inserts a new account. Email uniqueness is enforced by the store;
// the driver error comes back wrapped.
func (r *GORMUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return errs.Persistence("create user", err)
	}
	return nil
}

// GetByEmail retrieves an account by email; a miss yields (nil, nil).
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errs.Persistence("get user by email", err)
	}
	return &user, nil
}

// GetByID retrieves an account by id; a miss yields (nil, nil).
func (r *GORMUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errs.Persistence("get user by id", err)
	}
	return &user, nil
}
