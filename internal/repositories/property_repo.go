package repositories

import (
	"dimria/internal/models"
)

// Filters is a sparse predicate set over the properties table. The zero
// value of a field means "not provided" and is omitted from the query
// entirely — an empty type string or a zero minimum price never reaches
// the predicate list. This also means a filter of 0 rooms cannot be
// expressed; callers relying on it get the unfiltered set.
type Filters struct {
	Type     string
	Status   string
	MinPrice float64
	MaxPrice float64
	MinRooms int
}

// PropertyRepository defines data access for listings. It is a pure data
// abstraction: ownership checks belong to the service layer.
type PropertyRepository interface {
	// FindByID returns the listing or (nil, nil) when the id does not
	// resolve. A miss is not an error at this layer.
	FindByID(id uint) (*models.Property, error)
	// List returns listings matching every provided filter, most recently
	// created first. limit <= 0 disables pagination.
	List(filters Filters, limit, offset int) ([]models.Property, error)
	// ListByOwner returns the given user's listings, newest first.
	ListByOwner(userID uint) ([]models.Property, error)
	// Search matches query as a substring of title, description or
	// address; filters compose exactly as in List.
	Search(query string, filters Filters) ([]models.Property, error)
	// Stats returns the base aggregate over all listings.
	Stats() (*models.PropertyStats, error)
	// CountByType returns the number of listings per property type.
	CountByType() (map[string]int64, error)
	// CountCreatedSince counts listings created within the trailing
	// number of days.
	CountCreatedSince(days int) (int64, error)
	// ListRecentAvailable returns up to limit available listings, newest
	// first, excluding those owned by excludeOwner. Unowned listings are
	// included.
	ListRecentAvailable(excludeOwner uint, limit int) ([]models.Property, error)
	// Save inserts when the id is zero (the store-assigned id is echoed
	// back on the model) and updates all mutable columns otherwise.
	Save(property *models.Property) error
	// Delete removes the listing, reporting whether a row existed.
	Delete(id uint) (bool, error)
}
