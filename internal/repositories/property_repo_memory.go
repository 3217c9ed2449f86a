package repositories

import (
	"sort"
	"strings"
	"sync"
	"time"

	"dimria/internal/errs"
	"dimria/internal/models"
)

// MemoryPropertyRepository is an in-memory implementation of
// PropertyRepository with the same filter and ordering semantics as the
// GORM implementation. Used in tests and for running without a database.
type MemoryPropertyRepository struct {
	mu         sync.RWMutex
	properties map[uint]models.Property
	nextID     uint
}

// NewMemoryPropertyRepository creates an empty in-memory repository.
func NewMemoryPropertyRepository() *MemoryPropertyRepository {
	return &MemoryPropertyRepository{
		properties: make(map[uint]models.Property),
		nextID:     1,
	}
}

func matchesFilters(p models.Property, f Filters) bool {
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.MinRooms > 0 && p.Rooms < f.MinRooms {
		return false
	}
	return true
}

// newestFirst sorts by creation time descending, breaking ties by id so
// listings created in the same instant keep a deterministic order.
func newestFirst(properties []models.Property) {
	sort.Slice(properties, func(i, j int) bool {
		if properties[i].CreatedAt.Equal(properties[j].CreatedAt) {
			return properties[i].ID > properties[j].ID
		}
		return properties[i].CreatedAt.After(properties[j].CreatedAt)
	})
}

func (r *MemoryPropertyRepository) collect(keep func(models.Property) bool) []models.Property {
	result := make([]models.Property, 0, len(r.properties))
	for _, p := range r.properties {
		if keep(p) {
			result = append(result, p)
		}
	}
	newestFirst(result)
	return result
}

// FindByID returns the listing or (nil, nil) on a miss.
func (r *MemoryPropertyRepository) FindByID(id uint) (*models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// List returns filtered listings, newest first, with pagination applied
// after filtering.
func (r *MemoryPropertyRepository) List(filters Filters, limit, offset int) ([]models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := r.collect(func(p models.Property) bool {
		return matchesFilters(p, filters)
	})
	if limit > 0 {
		if offset >= len(result) {
			return []models.Property{}, nil
		}
		end := offset + limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

// ListByOwner returns the given user's listings, newest first.
func (r *MemoryPropertyRepository) ListByOwner(userID uint) ([]models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(p models.Property) bool {
		return p.UserID != nil && *p.UserID == userID
	}), nil
}

// Search performs case-insensitive substring matching over title,
// description and address.
func (r *MemoryPropertyRepository) Search(query string, filters Filters) ([]models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(query)
	return r.collect(func(p models.Property) bool {
		if !matchesFilters(p, filters) {
			return false
		}
		return strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) ||
			strings.Contains(strings.ToLower(p.Address), needle)
	}), nil
}

// Stats computes the base aggregate.
func (r *MemoryPropertyRepository) Stats() (*models.PropertyStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.PropertyStats{}
	var sum float64
	for _, p := range r.properties {
		if stats.Total == 0 || p.Price < stats.MinPrice {
			stats.MinPrice = p.Price
		}
		if p.Price > stats.MaxPrice {
			stats.MaxPrice = p.Price
		}
		stats.Total++
		sum += p.Price
		switch p.Status {
		case "available":
			stats.Available++
		case "rented":
			stats.Rented++
		}
	}
	if stats.Total > 0 {
		stats.AvgPrice = sum / float64(stats.Total)
	}
	return stats, nil
}

// CountByType groups listings by property type.
func (r *MemoryPropertyRepository) CountByType() (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, p := range r.properties {
		counts[p.Type]++
	}
	return counts, nil
}

// CountCreatedSince counts listings created within the trailing window.
func (r *MemoryPropertyRepository) CountCreatedSince(days int) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	var count int64
	for _, p := range r.properties {
		if !p.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

// ListRecentAvailable returns the newest available listings not owned by
// excludeOwner; unowned listings are included.
func (r *MemoryPropertyRepository) ListRecentAvailable(excludeOwner uint, limit int) ([]models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := r.collect(func(p models.Property) bool {
		if p.Status != "available" {
			return false
		}
		return excludeOwner == 0 || p.UserID == nil || *p.UserID != excludeOwner
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save assigns an id and timestamps on insert, refreshes updated_at on
// update.
func (r *MemoryPropertyRepository) Save(property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if property.ID == 0 {
		property.ID = r.nextID
		r.nextID++
		property.CreatedAt = now
		property.UpdatedAt = now
		r.properties[property.ID] = *property
		return nil
	}

	existing, ok := r.properties[property.ID]
	if !ok {
		return errs.NotFound("property", property.ID)
	}
	property.CreatedAt = existing.CreatedAt
	property.UpdatedAt = now
	r.properties[property.ID] = *property
	return nil
}

// Delete removes a listing by id.
func (r *MemoryPropertyRepository) Delete(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return false, nil
	}
	delete(r.properties, id)
	return true, nil
}
