package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"dimria/internal/errs"
	"dimria/internal/models"
	"dimria/internal/repositories"
	"dimria/pkg/security"
)

// recentWindowDays is the trailing window for the "recent listings"
// statistic.
const recentWindowDays = 7

// defaultRecommendLimit caps recommendations when the caller asks for none.
const defaultRecommendLimit = 5

// EventPublisher emits property lifecycle events to the telemetry sink.
// Publishing is fail-soft: a broker failure never fails the operation.
type EventPublisher interface {
	PublishPropertyEvent(action string, payload map[string]any) error
}

// CreatePropertyInput is the payload for creating a listing. Zero-valued
// Rooms defaults to 1, Type to apartment, Status to available.
type CreatePropertyInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Price       float64 `json:"price"`
	Rooms       int     `json:"rooms"`
	Area        float64 `json:"area"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
}

// UpdatePropertyInput is a partial payload: only non-nil fields are
// validated and applied.
type UpdatePropertyInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	Price       *float64 `json:"price"`
	Rooms       *int     `json:"rooms"`
	Area        *float64 `json:"area"`
	Type        *string  `json:"type"`
	Status      *string  `json:"status"`
}

// PropertyService validates incoming payloads, enforces ownership and
// orchestrates repository calls. The repository stays a pure data
// abstraction; every authorization decision lives here.
type PropertyService struct {
	repo      repositories.PropertyRepository
	sanitizer *security.Sanitizer
	publisher EventPublisher
}

// NewPropertyService creates a new PropertyService. publisher may be nil
// when no broker is configured.
func NewPropertyService(repo repositories.PropertyRepository, sanitizer *security.Sanitizer, publisher EventPublisher) *PropertyService {
	return &PropertyService{
		repo:      repo,
		sanitizer: sanitizer,
		publisher: publisher,
	}
}

// Create sanitizes and validates the payload, then persists a new listing
// owned by ownerID. All validation complaints are collected into a single
// error; nothing is written unless the payload is fully valid.
func (s *PropertyService) Create(input CreatePropertyInput, ownerID uint) (*models.Property, error) {
	title := s.sanitizer.Sanitize(input.Title, "property_title")
	description := s.sanitizer.Sanitize(input.Description, "property_description")
	address := s.sanitizer.Sanitize(input.Address, "property_address")
	ptype := s.sanitizer.Sanitize(input.Type, "property_type")
	status := s.sanitizer.Sanitize(input.Status, "property_status")

	if ptype == "" {
		ptype = "apartment"
	}
	if status == "" {
		status = "available"
	}
	rooms := input.Rooms
	if rooms == 0 {
		rooms = 1
	}

	var problems []string
	if utf8.RuneCountInString(title) < 3 {
		problems = append(problems, "title must be at least 3 characters")
	}
	if address == "" {
		problems = append(problems, "address is required")
	}
	if input.Price <= 0 {
		problems = append(problems, "price must be a positive number")
	}
	if rooms < 1 {
		problems = append(problems, "rooms must be at least 1")
	}
	if input.Area < 0 {
		problems = append(problems, "area must be a non-negative number")
	}
	if !models.IsValidPropertyType(ptype) {
		problems = append(problems, "invalid property type")
	}
	if !models.IsValidPropertyStatus(status) {
		problems = append(problems, "invalid property status")
	}
	if len(problems) > 0 {
		return nil, errs.Validation(problems...)
	}

	property := &models.Property{
		Title:       title,
		Description: description,
		Address:     address,
		Price:       input.Price,
		Rooms:       rooms,
		Area:        input.Area,
		Type:        ptype,
		Status:      status,
	}
	if ownerID > 0 {
		property.UserID = &ownerID
	}

	if err := s.repo.Save(property); err != nil {
		return nil, err
	}

	log.Printf("property: created (id=%d owner=%d title=%q)", property.ID, ownerID, property.Title)
	s.publish("property.created", property)
	return property, nil
}

// Update applies a partial payload to the listing. Only supplied fields
// are validated and written; unspecified fields retain their prior values.
// The actor must own the listing. Note the looser rooms rule here: edits
// accept 0 rooms where creation requires at least 1.
func (s *PropertyService) Update(id uint, input UpdatePropertyInput, actorID uint) (*models.Property, error) {
	property, err := s.ownedBy(id, actorID)
	if err != nil {
		return nil, err
	}

	var problems []string
	if input.Title != nil {
		title := s.sanitizer.Sanitize(*input.Title, "property_title")
		if utf8.RuneCountInString(title) < 3 {
			problems = append(problems, "title must be at least 3 characters")
		} else {
			property.Title = title
		}
	}
	if input.Description != nil {
		property.Description = s.sanitizer.Sanitize(*input.Description, "property_description")
	}
	if input.Address != nil {
		address := s.sanitizer.Sanitize(*input.Address, "property_address")
		if address == "" {
			problems = append(problems, "address is required")
		} else {
			property.Address = address
		}
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			problems = append(problems, "price must be a positive number")
		} else {
			property.Price = *input.Price
		}
	}
	if input.Rooms != nil {
		if *input.Rooms < 0 {
			problems = append(problems, "rooms must be a non-negative number")
		} else {
			property.Rooms = *input.Rooms
		}
	}
	if input.Area != nil {
		if *input.Area < 0 {
			problems = append(problems, "area must be a non-negative number")
		} else {
			property.Area = *input.Area
		}
	}
	if input.Type != nil {
		ptype := s.sanitizer.Sanitize(*input.Type, "property_type")
		if !models.IsValidPropertyType(ptype) {
			problems = append(problems, "invalid property type")
		} else {
			property.Type = ptype
		}
	}
	if input.Status != nil {
		status := s.sanitizer.Sanitize(*input.Status, "property_status")
		if !models.IsValidPropertyStatus(status) {
			problems = append(problems, "invalid property status")
		} else {
			property.Status = status
		}
	}
	if len(problems) > 0 {
		return nil, errs.Validation(problems...)
	}

	if err := s.repo.Save(property); err != nil {
		return nil, err
	}

	log.Printf("property: updated (id=%d actor=%d)", property.ID, actorID)
	s.publish("property.updated", property)
	return property, nil
}

// Delete removes the listing after verifying ownership.
func (s *PropertyService) Delete(id uint, actorID uint) (bool, error) {
	property, err := s.ownedBy(id, actorID)
	if err != nil {
		return false, err
	}

	deleted, err := s.repo.Delete(id)
	if err != nil {
		return false, err
	}
	if deleted {
		log.Printf("property: deleted (id=%d actor=%d)", id, actorID)
		s.publish("property.deleted", property)
	}
	return deleted, nil
}

// SetStatus flips the listing status (available/rented/sold) after
// verifying ownership.
func (s *PropertyService) SetStatus(id uint, status string, actorID uint) (*models.Property, error) {
	return s.Update(id, UpdatePropertyInput{Status: &status}, actorID)
}

// Get returns the listing or a not-found error.
func (s *PropertyService) Get(id uint) (*models.Property, error) {
	property, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, errs.NotFound("property", id)
	}
	return property, nil
}

// List returns filtered listings, newest first.
func (s *PropertyService) List(filters repositories.Filters, limit, offset int) ([]models.Property, error) {
	filters.Type = s.sanitizer.Sanitize(filters.Type, "filter_type")
	filters.Status = s.sanitizer.Sanitize(filters.Status, "filter_status")
	return s.repo.List(filters, limit, offset)
}

// ListByOwner returns the given user's listings, newest first.
func (s *PropertyService) ListByOwner(userID uint) ([]models.Property, error) {
	return s.repo.ListByOwner(userID)
}

// Search sanitizes the query and filters, then delegates to the repository.
func (s *PropertyService) Search(query string, filters repositories.Filters) ([]models.Property, error) {
	query = s.sanitizer.Sanitize(query, "search_query")
	filters.Type = s.sanitizer.Sanitize(filters.Type, "filter_type")
	filters.Status = s.sanitizer.Sanitize(filters.Status, "filter_status")
	return s.repo.Search(query, filters)
}

// Statistics assembles the base aggregate plus the two derived figures:
// counts by property type and listings created within the trailing window.
func (s *PropertyService) Statistics() (*models.PropertyStatistics, error) {
	base, err := s.repo.Stats()
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.CountByType()
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.CountCreatedSince(recentWindowDays)
	if err != nil {
		return nil, err
	}
	return &models.PropertyStatistics{
		PropertyStats: *base,
		ByType:        byType,
		Recent:        recent,
	}, nil
}

// BuildReport assembles every listing plus the statistics aggregate into
// the structured report form.
func (s *PropertyService) BuildReport() (*models.PropertyReport, error) {
	properties, err := s.repo.List(repositories.Filters{}, 0, 0)
	if err != nil {
		return nil, err
	}
	stats, err := s.Statistics()
	if err != nil {
		return nil, err
	}
	return &models.PropertyReport{
		GeneratedAt:     time.Now(),
		TotalProperties: len(properties),
		Statistics:      stats,
		Properties:      properties,
	}, nil
}

// GenerateReport encodes the report. Supported formats: "json" (pretty
// printed) and "csv" (fixed six-column header, embedded quotes doubled,
// prices to two decimals).
func (s *PropertyService) GenerateReport(format string) (string, error) {
	report, err := s.BuildReport()
	if err != nil {
		return "", err
	}

	switch format {
	case "json":
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(encoded), nil
	case "csv":
		return reportToCSV(report), nil
	default:
		return "", errs.Validation("unsupported report format: " + format)
	}
}

func reportToCSV(report *models.PropertyReport) string {
	var b strings.Builder
	b.WriteString("ID,Title,Address,Price,Type,Status\n")
	for _, p := range report.Properties {
		b.WriteString(fmt.Sprintf("%d,\"%s\",\"%s\",%.2f,%s,%s\n",
			p.ID,
			strings.ReplaceAll(p.Title, `"`, `""`),
			strings.ReplaceAll(p.Address, `"`, `""`),
			p.Price,
			p.Type,
			p.Status,
		))
	}
	return b.String()
}

// Recommend returns up to limit of the newest available listings not owned
// by userID. Recommendations are non-critical: any persistence failure
// degrades to an empty list instead of propagating.
func (s *PropertyService) Recommend(userID uint, limit int) []models.Property {
	if limit <= 0 {
		limit = defaultRecommendLimit
	}
	properties, err := s.repo.ListRecentAvailable(userID, limit)
	if err != nil {
		log.Printf("property: recommendation query failed, returning empty list: %v", err)
		return []models.Property{}
	}
	if properties == nil {
		properties = []models.Property{}
	}
	return properties
}

// ownedBy loads the listing and verifies the actor owns it.
func (s *PropertyService) ownedBy(id, actorID uint) (*models.Property, error) {
	property, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, errs.NotFound("property", id)
	}
	if !property.OwnedBy(actorID) {
		return nil, errs.Authorization(fmt.Sprintf("user %d does not own property %d", actorID, id))
	}
	return property, nil
}

func (s *PropertyService) publish(action string, property *models.Property) {
	if s.publisher == nil {
		return
	}
	payload := map[string]any{
		"id":     property.ID,
		"title":  property.Title,
		"type":   property.Type,
		"status": property.Status,
		"price":  property.Price,
	}
	if err := s.publisher.PublishPropertyEvent(action, payload); err != nil {
		log.Printf("property: failed to publish %s event for id=%d: %v", action, property.ID, err)
	}
}
