package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/AmityBot/internal/models"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	errInvalidUser        = errors.New("invalid user payload")
)

// DefaultUsers are the accounts available before anyone registers.
func DefaultUsers() map[string]string {
	return map[string]string{
		"admin":   "admin123",
		"student": "amity@2025",
	}
}

// UserService keeps accounts in memory. Seeded staff accounts carry the
// authenticated role; self-registered accounts stay general until promoted.
type UserService struct {
	mu    sync.RWMutex
	users map[string]models.User
	cost  int
}

func NewUserService(seed map[string]string) (*UserService, error) {
	return newUserService(seed, bcrypt.DefaultCost)
}

func newUserService(seed map[string]string, cost int) (*UserService, error) {
	s := &UserService{users: make(map[string]models.User, len(seed)), cost: cost}
	for name, password := range seed {
		if _, err := s.add(name, password, models.RoleAuthenticated); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", name, err)
		}
	}
	return s, nil
}

// Register creates a general-role account.
func (s *UserService) Register(_ context.Context, username, password string) (*models.User, error) {
	return s.add(username, password, models.RoleGeneral)
}

func (s *UserService) add(username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errInvalidUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, ErrUserExists
	}
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = u
	return &u, nil
}

func (s *UserService) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	s.mu.RLock()
	u, ok := s.users[strings.TrimSpace(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}
