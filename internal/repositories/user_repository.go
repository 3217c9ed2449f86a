package repositories

import "dimria/internal/models"

// UserRepository defines the interface for account data access. Lookups
// return (nil, nil) on a miss so the account service can keep unknown
// email and wrong password outwardly indistinguishable.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
}
