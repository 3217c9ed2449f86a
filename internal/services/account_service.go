package services

import (
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"dimria/internal/errs"
	"dimria/internal/models"
	"dimria/internal/repositories"
	"dimria/pkg/security"
)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// AccountService handles registration and credential verification.
type AccountService struct {
	users      repositories.UserRepository
	sanitizer  *security.Sanitizer
	validate   *validator.Validate
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewAccountService creates a new AccountService. jwtSecret signs the
// bearer tokens used by the JSON API mirror.
func NewAccountService(users repositories.UserRepository, sanitizer *security.Sanitizer, jwtSecret string) *AccountService {
	return &AccountService{
		users:      users,
		sanitizer:  sanitizer,
		validate:   validator.New(),
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// Register creates a new account and returns its id. Every complaint is
// collected before returning; a duplicate email surfaces as ErrEmailTaken.
func (s *AccountService) Register(email, password, name string) (uint, error) {
	email = s.sanitizer.SanitizeEmail(email)
	password = s.sanitizer.SanitizePassword(password)
	name = s.sanitizer.SanitizeName(name)

	var problems []string
	if email == "" {
		problems = append(problems, "email is required")
	} else if s.validate.Var(email, "email") != nil {
		problems = append(problems, "invalid email format")
	}
	if password == "" {
		problems = append(problems, "password is required")
	} else if len(password) < 8 || !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		problems = append(problems, "password must be at least 8 characters and contain letters and digits")
	}
	if name == "" {
		problems = append(problems, "name is required")
	}
	if len(problems) > 0 {
		return 0, errs.Validation(problems...)
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, errs.ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Password: string(hashed), Name: name}
	if err := s.users.Create(user); err != nil {
		return 0, err
	}

	log.Printf("account: user registered (id=%d email=%s)", user.ID, user.Email)
	return user.ID, nil
}

// Authenticate verifies credentials. Unknown email and wrong password are
// outwardly indistinguishable: both return (nil, nil). On success the
// returned record carries no password hash.
func (s *AccountService) Authenticate(email, password string) (*models.User, error) {
	email = s.sanitizer.SanitizeEmail(email)
	// Registration trims the password before hashing; verification must
	// normalize the same way or padded passwords can never log in.
	password = s.sanitizer.SanitizePassword(password)

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil
	}

	user.Password = ""
	return user, nil
}

// GetByID fetches an account by id, returning (nil, nil) on a miss. The
// password hash is stripped before returning.
func (s *AccountService) GetByID(id uint) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil || user == nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// TokenFor issues a signed bearer token for the JSON API.
func (s *AccountService) TokenFor(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a bearer token, returning its claims.
func (s *AccountService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
