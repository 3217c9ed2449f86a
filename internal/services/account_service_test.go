package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"dimria/internal/errs"
	"dimria/internal/models"
	"dimria/pkg/security"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newAccountService(users *MockUserRepository) *AccountService {
	return NewAccountService(users, security.NewSanitizer(nil), "test-secret")
}

func TestRegister_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	mockRepo.On("GetByEmail", "new@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.MatchedBy(func(u *models.User) bool {
		// The stored password must be a hash of the original, never the
		// plaintext.
		return u.Email == "new@example.com" &&
			u.Name == "New User" &&
			u.Password != "secret123" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret123")) == nil
	})).Return(nil)

	id, err := svc.Register("  new@example.com  ", "secret123", "New User")

	assert.NoError(t, err)
	assert.Equal(t, uint(1), id)
	mockRepo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	existing := &models.User{ID: 7, Email: "taken@example.com"}
	mockRepo.On("GetByEmail", "taken@example.com").Return(existing, nil)

	id, err := svc.Register("taken@example.com", "secret123", "Someone")

	assert.ErrorIs(t, err, errs.ErrEmailTaken)
	assert.Zero(t, id)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestRegister_CollectsAllProblems(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	id, err := svc.Register("not-an-email", "short", "")

	assert.Zero(t, id)
	assert.True(t, errs.IsValidation(err))
	problems := errs.Problems(err)
	assert.Contains(t, problems, "invalid email format")
	assert.Contains(t, problems, "password must be at least 8 characters and contain letters and digits")
	assert.Contains(t, problems, "name is required")
	// Validation never reaches the repository.
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything)
}

func TestRegister_PasswordNeedsLettersAndDigits(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	_, err := svc.Register("a@example.com", "onlyletters", "A")
	assert.Contains(t, errs.Problems(err), "password must be at least 8 characters and contain letters and digits")

	_, err = svc.Register("a@example.com", "12345678", "A")
	assert.Contains(t, errs.Problems(err), "password must be at least 8 characters and contain letters and digits")
}

func TestAuthenticate_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	stored := &models.User{ID: 3, Email: "user@example.com", Password: string(hash), Name: "User"}
	mockRepo.On("GetByEmail", "user@example.com").Return(stored, nil)

	user, err := svc.Authenticate("user@example.com", "secret123")

	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, uint(3), user.ID)
	assert.Empty(t, user.Password, "hash must not leave the service")
}

func TestAuthenticate_TrimsPasswordLikeRegistration(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	var storedHash string
	mockRepo.On("GetByEmail", "user@example.com").Return(nil, nil).Once()
	mockRepo.On("Create", mock.MatchedBy(func(u *models.User) bool {
		storedHash = u.Password
		// Registration hashes the trimmed password.
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret123")) == nil
	})).Return(nil)
	_, err := svc.Register("user@example.com", "  secret123  ", "User")
	assert.NoError(t, err)

	stored := &models.User{ID: 1, Email: "user@example.com", Password: storedHash}
	verify := new(MockUserRepository)
	verify.On("GetByEmail", "user@example.com").Return(stored, nil)
	svc = newAccountService(verify)

	// The same surrounding whitespace at login must verify against the
	// hash of the trimmed password.
	user, err := svc.Authenticate("user@example.com", "  secret123  ")

	assert.NoError(t, err)
	assert.NotNil(t, user)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	stored := &models.User{ID: 3, Email: "user@example.com", Password: string(hash)}
	mockRepo.On("GetByEmail", "user@example.com").Return(stored, nil)
	mockRepo.On("GetByEmail", "ghost@example.com").Return(nil, nil)

	wrongPassword, err1 := svc.Authenticate("user@example.com", "wrong-password")
	unknownEmail, err2 := svc.Authenticate("ghost@example.com", "secret123")

	// Both failure modes present the same (nil, nil) shape so callers
	// cannot enumerate accounts.
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Nil(t, wrongPassword)
	assert.Nil(t, unknownEmail)
}

func TestGetByID_StripsPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	mockRepo.On("GetByID", uint(5)).Return(&models.User{ID: 5, Password: "hash"}, nil)
	mockRepo.On("GetByID", uint(99)).Return(nil, nil)

	user, err := svc.GetByID(5)
	assert.NoError(t, err)
	assert.Empty(t, user.Password)

	missing, err := svc.GetByID(99)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestToken_RoundTrip(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)

	token, err := svc.TokenFor(&models.User{ID: 42, Email: "user@example.com"})
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, float64(42), claims["user_id"])
	assert.Equal(t, "user@example.com", claims["email"])
}

func TestValidateToken_RejectsForeignSignature(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newAccountService(mockRepo)
	other := NewAccountService(mockRepo, security.NewSanitizer(nil), "different-secret")

	token, err := other.TokenFor(&models.User{ID: 1, Email: "user@example.com"})
	assert.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
