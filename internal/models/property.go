package models

import "time"

// Property types and statuses accepted by the store. A write with a value
// outside these sets is rejected during validation.
var (
	PropertyTypes    = []string{"apartment", "house", "office", "land", "commercial"}
	PropertyStatuses = []string{"available", "rented", "sold"}
)

// Property represents a real-estate listing.
type Property struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null" validate:"required,min=3"`
	Description string    `json:"description" gorm:"type:text"`
	Address     string    `json:"address" gorm:"type:varchar(500);not null" validate:"required"`
	Price       float64   `json:"price" gorm:"type:decimal(10,2);not null" validate:"required,gt=0"`
	Rooms       int       `json:"rooms" gorm:"default:1" validate:"gte=0"`
	Area        float64   `json:"area" gorm:"type:decimal(8,2);default:0" validate:"gte=0"`
	Type        string    `json:"type" gorm:"type:varchar(50);default:apartment" validate:"omitempty,oneof=apartment house office land commercial"`
	Status      string    `json:"status" gorm:"type:varchar(20);default:available" validate:"omitempty,oneof=available rented sold"`
	UserID      *uint     `json:"user_id" gorm:"index"`
	User        *User     `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether the listing belongs to the given user.
// Listings without an owner belong to nobody.
func (p *Property) OwnedBy(userID uint) bool {
	return p.UserID != nil && *p.UserID == userID
}

// IsValidPropertyType reports whether t is a member of PropertyTypes.
func IsValidPropertyType(t string) bool {
	for _, v := range PropertyTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidPropertyStatus reports whether s is a member of PropertyStatuses.
func IsValidPropertyStatus(s string) bool {
	for _, v := range PropertyStatuses {
		if v == s {
			return true
		}
	}
	return false
}
