package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"my-trips/internal/models"
	"my-trips/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RegisterForm is a submitted account registration
type RegisterForm struct {
	Username string `form:"username" validate:"required,alphanum,min=3,max=50"`
	Password string `form:"password" validate:"required,min=8,max=72"`
	Confirm  string `form:"confirm" validate:"required,eqfield=Password"`
}

// UserService handles user-related business logic
type UserService struct {
	userRepo  UserStore
	jwtSecret string
	tokenTTL  time.Duration
	validate  *validator.Validate
	now       func() time.Time
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// Register creates a new account with a bcrypt password hash
func (s *UserService) Register(ctx context.Context, form RegisterForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)

	verr := newValidationError()
	if err := s.validate.Struct(form); err != nil {
		if err := appendFieldErrors(verr, err); err != nil {
			return nil, fmt.Errorf("failed to validate registration: %w", err)
		}
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     form.Username,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks the credentials and returns the user
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GenerateJWT generates a session token for a user
func (s *UserService) GenerateJWT(username string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"username": username,
		"exp":      now.Add(s.tokenTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a session token and returns the username
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in token")
	}

	return username, nil
}

// TokenTTL returns the lifetime of issued tokens
func (s *UserService) TokenTTL() time.Duration {
	return s.tokenTTL
}
