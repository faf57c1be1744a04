package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistrationPassword indicates the registration secret is incorrect.
	ErrInvalidRegistrationPassword = errors.New("invalid registration password")
	// ErrRegistrationDisabled is returned when no registration secret is configured.
	ErrRegistrationDisabled = errors.New("registration is disabled")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidRegistration covers missing or too weak registration input.
	ErrInvalidRegistration = errors.New("invalid registration")
	// ErrUserNotFound is returned by lookups for accounts that no longer exist.
	ErrUserNotFound = errors.New("user not found")
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,63}$`)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users          repository.UserRepository
	registerSecret string
	hashCost       int
	// decoy is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	decoy []byte
}

func NewUserService(users repository.UserRepository, registerSecret string) UserService {
	return newUserService(users, registerSecret, bcrypt.DefaultCost)
}

func newUserService(users repository.UserRepository, registerSecret string, cost int) *userService {
	decoy, err := bcrypt.GenerateFromPassword([]byte("inventory-keeper decoy"), cost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt decoy: %v", err))
	}
	return &userService{
		users:          users,
		registerSecret: strings.TrimSpace(registerSecret),
		hashCost:       cost,
		decoy:          decoy,
	}
}

func (s *userService) Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if err := validateRegistration(username, password); err != nil {
		return nil, err
	}
	if s.registerSecret == "" {
		return nil, ErrRegistrationDisabled
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(providedSecret)), []byte(s.registerSecret)) != 1 {
		return nil, ErrInvalidRegistrationPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Username: username, PasswordHash: string(hash)}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func validateRegistration(username, password string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidRegistration)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username must be 2-64 letters, digits, '.', '_' or '-'", ErrInvalidRegistration)
	case password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidRegistration)
	case len(password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, minPasswordLength)
	case len(password) > maxPasswordLength:
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidRegistration, maxPasswordLength)
	}
	return nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.decoy, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// sanitizeUser drops the password hash before a user leaves the service.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
