package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dimria/internal/errs"
	"dimria/internal/models"
	"dimria/internal/repositories"
	"dimria/pkg/security"
)

// MockPropertyRepository is a mock implementation of PropertyRepository.
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) FindByID(id uint) (*models.Property, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyRepository) List(filters repositories.Filters, limit, offset int) ([]models.Property, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) ListByOwner(userID uint) ([]models.Property, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Search(query string, filters repositories.Filters) ([]models.Property, error) {
	args := m.Called(query, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Stats() (*models.PropertyStats, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyStats), args.Error(1)
}

func (m *MockPropertyRepository) CountByType() (map[string]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockPropertyRepository) CountCreatedSince(days int) (int64, error) {
	args := m.Called(days)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPropertyRepository) ListRecentAvailable(excludeOwner uint, limit int) ([]models.Property, error) {
	args := m.Called(excludeOwner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Save(property *models.Property) error {
	args := m.Called(property)
	if args.Error(0) == nil && property.ID == 0 {
		property.ID = 1
	}
	return args.Error(0)
}

func (m *MockPropertyRepository) Delete(id uint) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func newPropertyService(repo *MockPropertyRepository) *PropertyService {
	return NewPropertyService(repo, security.NewSanitizer(nil), nil)
}

func owned(id, ownerID uint) *models.Property {
	return &models.Property{
		ID:      id,
		Title:   "Quiet flat",
		Address: "12 Main St",
		Price:   900,
		Rooms:   2,
		Type:    "apartment",
		Status:  "available",
		UserID:  &ownerID,
	}
}

func TestCreateProperty_AppliesDefaults(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("Save", mock.MatchedBy(func(p *models.Property) bool {
		return p.Type == "apartment" &&
			p.Status == "available" &&
			p.Rooms == 1 &&
			p.UserID != nil && *p.UserID == 9
	})).Return(nil)

	property, err := svc.Create(CreatePropertyInput{
		Title:   "Sunny studio",
		Address: "3 Oak Ave",
		Price:   650,
	}, 9)

	assert.NoError(t, err)
	assert.Equal(t, uint(1), property.ID)
	mockRepo.AssertExpectations(t)
}

func TestCreateProperty_UnownedWhenNoUser(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("Save", mock.MatchedBy(func(p *models.Property) bool {
		return p.UserID == nil
	})).Return(nil)

	_, err := svc.Create(CreatePropertyInput{
		Title:   "Sunny studio",
		Address: "3 Oak Ave",
		Price:   650,
	}, 0)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestCreateProperty_CollectsAllProblems(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	property, err := svc.Create(CreatePropertyInput{
		Title: "ab",
		Price: -5,
	}, 1)

	assert.Nil(t, property)
	assert.True(t, errs.IsValidation(err))
	problems := errs.Problems(err)
	assert.Contains(t, problems, "title must be at least 3 characters")
	assert.Contains(t, problems, "address is required")
	assert.Contains(t, problems, "price must be a positive number")
	// An invalid payload never reaches the repository.
	mockRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestCreateProperty_DangerousTitleIsDiscarded(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	property, err := svc.Create(CreatePropertyInput{
		Title:   "<script>alert(1)</script>",
		Address: "3 Oak Ave",
		Price:   650,
	}, 1)

	// The rejected title degrades to "" and fails the length rule.
	assert.Nil(t, property)
	assert.Contains(t, errs.Problems(err), "title must be at least 3 characters")
	mockRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestCreateProperty_RejectsUnknownEnumValues(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	_, err := svc.Create(CreatePropertyInput{
		Title:   "Sunny studio",
		Address: "3 Oak Ave",
		Price:   650,
		Type:    "castle",
		Status:  "haunted",
	}, 1)

	problems := errs.Problems(err)
	assert.Contains(t, problems, "invalid property type")
	assert.Contains(t, problems, "invalid property status")
}

func TestUpdateProperty_PartialPayload(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(4)).Return(owned(4, 9), nil)
	mockRepo.On("Save", mock.MatchedBy(func(p *models.Property) bool {
		// Only the price changes; everything else keeps its prior value.
		return p.Price == 1100 && p.Title == "Quiet flat" && p.Rooms == 2
	})).Return(nil)

	price := 1100.0
	property, err := svc.Update(4, UpdatePropertyInput{Price: &price}, 9)

	assert.NoError(t, err)
	assert.Equal(t, 1100.0, property.Price)
	mockRepo.AssertExpectations(t)
}

func TestUpdateProperty_AllowsZeroRooms(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(4)).Return(owned(4, 9), nil)
	mockRepo.On("Save", mock.Anything).Return(nil)

	// Creation requires at least one room; edits accept zero.
	rooms := 0
	property, err := svc.Update(4, UpdatePropertyInput{Rooms: &rooms}, 9)

	assert.NoError(t, err)
	assert.Equal(t, 0, property.Rooms)
}

func TestUpdateProperty_DeniesNonOwner(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(4)).Return(owned(4, 9), nil)

	price := 1100.0
	property, err := svc.Update(4, UpdatePropertyInput{Price: &price}, 2)

	assert.Nil(t, property)
	assert.True(t, errs.IsAuthorization(err))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestUpdateProperty_NotFound(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(77)).Return(nil, nil)

	price := 1100.0
	_, err := svc.Update(77, UpdatePropertyInput{Price: &price}, 2)

	assert.True(t, errs.IsNotFound(err))
}

func TestDeleteProperty_DeniesNonOwner(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(4)).Return(owned(4, 9), nil)

	deleted, err := svc.Delete(4, 2)

	assert.False(t, deleted)
	assert.True(t, errs.IsAuthorization(err))
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestDeleteProperty_Success(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(4)).Return(owned(4, 9), nil)
	mockRepo.On("Delete", uint(4)).Return(true, nil)

	deleted, err := svc.Delete(4, 9)

	assert.NoError(t, err)
	assert.True(t, deleted)
	mockRepo.AssertExpectations(t)
}

func TestGetProperty_NotFound(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(8)).Return(nil, nil)

	property, err := svc.Get(8)

	assert.Nil(t, property)
	assert.True(t, errs.IsNotFound(err))
}

func TestSetStatus(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("FindByID", uint(4)).Return(owned(4, 9), nil)
	mockRepo.On("Save", mock.MatchedBy(func(p *models.Property) bool {
		return p.Status == "rented"
	})).Return(nil)

	property, err := svc.SetStatus(4, "rented", 9)

	assert.NoError(t, err)
	assert.Equal(t, "rented", property.Status)
}

func TestRecommend_FailSoft(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("ListRecentAvailable", uint(9), 5).
		Return(nil, errors.New("connection refused"))

	// A broken store degrades to an empty list, never an error or nil.
	result := svc.Recommend(9, 0)

	assert.NotNil(t, result)
	assert.Empty(t, result)
	mockRepo.AssertExpectations(t)
}

func TestRecommend_DefaultLimit(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("ListRecentAvailable", uint(9), 5).Return([]models.Property{}, nil)
	svc.Recommend(9, -3)
	mockRepo.AssertExpectations(t)
}

func TestStatistics_CombinesAggregates(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("Stats").Return(&models.PropertyStats{Total: 3, Available: 2, AvgPrice: 800}, nil)
	mockRepo.On("CountByType").Return(map[string]int64{"apartment": 2, "house": 1}, nil)
	mockRepo.On("CountCreatedSince", 7).Return(int64(1), nil)

	stats, err := svc.Statistics()

	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByType["apartment"])
	assert.Equal(t, int64(1), stats.Recent)
}

func TestGenerateReport_CSV(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	ownerID := uint(1)
	mockRepo.On("List", repositories.Filters{}, 0, 0).Return([]models.Property{
		{ID: 1, Title: `The "Grand" Flat`, Address: "1 Elm St", Price: 1234.5, Type: "apartment", Status: "available", UserID: &ownerID},
		{ID: 2, Title: "Plain house", Address: "2 Elm St", Price: 2000, Type: "house", Status: "rented"},
	}, nil)
	mockRepo.On("Stats").Return(&models.PropertyStats{Total: 2}, nil)
	mockRepo.On("CountByType").Return(map[string]int64{"apartment": 1, "house": 1}, nil)
	mockRepo.On("CountCreatedSince", 7).Return(int64(2), nil)

	report, err := svc.GenerateReport("csv")

	assert.NoError(t, err)
	lines := strings.Split(strings.TrimRight(report, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "ID,Title,Address,Price,Type,Status", lines[0])
	assert.Equal(t, `1,"The ""Grand"" Flat","1 Elm St",1234.50,apartment,available`, lines[1])
	assert.Equal(t, `2,"Plain house","2 Elm St",2000.00,house,rented`, lines[2])
}

func TestGenerateReport_JSON(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("List", repositories.Filters{}, 0, 0).Return([]models.Property{}, nil)
	mockRepo.On("Stats").Return(&models.PropertyStats{}, nil)
	mockRepo.On("CountByType").Return(map[string]int64{}, nil)
	mockRepo.On("CountCreatedSince", 7).Return(int64(0), nil)

	report, err := svc.GenerateReport("json")

	assert.NoError(t, err)
	assert.Contains(t, report, `"generated_at"`)
	assert.Contains(t, report, `"total_properties": 0`)
}

func TestGenerateReport_UnsupportedFormat(t *testing.T) {
	mockRepo := new(MockPropertyRepository)
	svc := newPropertyService(mockRepo)

	mockRepo.On("List", repositories.Filters{}, 0, 0).Return([]models.Property{}, nil)
	mockRepo.On("Stats").Return(&models.PropertyStats{}, nil)
	mockRepo.On("CountByType").Return(map[string]int64{}, nil)
	mockRepo.On("CountCreatedSince", 7).Return(int64(0), nil)

	report, err := svc.GenerateReport("xml")

	assert.Empty(t, report)
	assert.True(t, errs.IsValidation(err))
}
