package repositories

import (
	"time"

	"gorm.io/gorm"

	"dimria/internal/errs"
	"dimria/internal/models"
)

// GORMPropertyRepository is a GORM implementation of PropertyRepository.
type GORMPropertyRepository struct {
	db *gorm.DB
}

// NewGORMPropertyRepository creates a new instance of GORMPropertyRepository.
func NewGORMPropertyRepository(db *gorm.DB) *GORMPropertyRepository {
	return &GORMPropertyRepository{
		db: db,
	}
}

// applyFilters appends one AND predicate per provided filter. Zero-valued
// entries are skipped, never compared against NULL.
func applyFilters(q *gorm.DB, f Filters) *gorm.DB {
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MinPrice > 0 {
		q = q.Where("price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q = q.Where("price <= ?", f.MaxPrice)
	}
	if f.MinRooms > 0 {
		q = q.Where("rooms >= ?", f.MinRooms)
	}
	return q
}

// FindByID retrieves a single listing; a miss yields (nil, nil).
func (r *GORMPropertyRepository) FindByID(id uint) (*models.Property, error) {
	var property models.Property
	if err := r.db.First(&property, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errs.Persistence("find property", err)
	}
	return &property, nil
}

// List retrieves listings matching the provided filters, newest first.
func (r *GORMPropertyRepository) List(filters Filters, limit, offset int) ([]models.Property, error) {
	var properties []models.Property
	q := applyFilters(r.db.Model(&models.Property{}), filters).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&properties).Error; err != nil {
		return nil, errs.Persistence("list properties", err)
	}
	return properties, nil
}

// ListByOwner retrieves the given user's listings, newest first.
func (r *GORMPropertyRepository) ListByOwner(userID uint) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&properties).Error
	if err != nil {
		return nil, errs.Persistence("list properties by owner", err)
	}
	return properties, nil
}

// Search matches query against title, description and address by
// substring containment, composing any provided filters on top.
func (r *GORMPropertyRepository) Search(query string, filters Filters) ([]models.Property, error) {
	var properties []models.Property
	like := "%" + query + "%"
	q := r.db.Model(&models.Property{}).
		Where("(title LIKE ? OR description LIKE ? OR address LIKE ?)", like, like, like)
	q = applyFilters(q, filters).Order("created_at DESC")
	if err := q.Find(&properties).Error; err != nil {
		return nil, errs.Persistence("search properties", err)
	}
	return properties, nil
}

// Stats computes the base aggregate in a single query.
func (r *GORMPropertyRepository) Stats() (*models.PropertyStats, error) {
	var stats models.PropertyStats
	err := r.db.Raw(`
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'available' THEN 1 END) AS available,
			COUNT(CASE WHEN status = 'rented' THEN 1 END) AS rented,
			COALESCE(AVG(price), 0) AS avg_price,
			COALESCE(MIN(price), 0) AS min_price,
			COALESCE(MAX(price), 0) AS max_price
		FROM properties
	`).Scan(&stats).Error
	if err != nil {
		return nil, errs.Persistence("property stats", err)
	}
	return &stats, nil
}

// CountByType groups listings by property type.
func (r *GORMPropertyRepository) CountByType() (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := r.db.Model(&models.Property{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, errs.Persistence("count properties by type", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// CountCreatedSince counts listings created within the trailing window.
func (r *GORMPropertyRepository) CountCreatedSince(days int) (int64, error) {
	var count int64
	cutoff := time.Now().AddDate(0, 0, -days)
	err := r.db.Model(&models.Property{}).
		Where("created_at >= ?", cutoff).
		Count(&count).Error
	if err != nil {
		return 0, errs.Persistence("count recent properties", err)
	}
	return count, nil
}

// ListRecentAvailable returns the newest available listings not owned by
// excludeOwner. Unowned rows are kept; only the caller's own rows drop out.
func (r *GORMPropertyRepository) ListRecentAvailable(excludeOwner uint, limit int) ([]models.Property, error) {
	var properties []models.Property
	q := r.db.Where("status = ?", "available")
	if excludeOwner > 0 {
		q = q.Where("(user_id IS NULL OR user_id <> ?)", excludeOwner)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&properties).Error
	if err != nil {
		return nil, errs.Persistence("list recent available properties", err)
	}
	return properties, nil
}

// Save inserts or updates depending on whether the id is set. The update
// writes all mutable columns plus updated_at and is unconditional apart
// from the row existing; ownership is enforced by the caller.
func (r *GORMPropertyRepository) Save(property *models.Property) error {
	if property.ID == 0 {
		if err := r.db.Create(property).Error; err != nil {
			return errs.Persistence("create property", err)
		}
		return nil
	}

	res := r.db.Save(property)
	if res.Error != nil {
		return errs.Persistence("update property", res.Error)
	}
	if res.RowsAffected == 0 {
		// GORM's Save does not surface ErrRecordNotFound for updates
		// that match no row, so check RowsAffected.
		return errs.NotFound("property", property.ID)
	}
	return nil
}

// Delete removes a listing by id.
func (r *GORMPropertyRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&models.Property{}, "id = ?", id)
	if res.Error != nil {
		return false, errs.Persistence("delete property", res.Error)
	}
	return res.RowsAffected > 0, nil
}
