// Package auth implements username/password login with JWT session tokens
// and account management on top of the users collection.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finalquest/itinera/internal/apperr"
	"github.com/finalquest/itinera/internal/models"
	"github.com/finalquest/itinera/internal/storage"
)

// DefaultTokenTTL applies when the configuration does not set one.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload carried by session tokens.
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens and manages user accounts.
type Service struct {
	users  *storage.Collection[models.User]
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
}

// New builds a Service. A non-positive ttl falls back to DefaultTokenTTL.
func New(users *storage.Collection[models.User], secret string, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl, logger: logger}
}

// Login checks the credentials and returns a signed token plus the public
// user projection. Bad username and bad password are indistinguishable to
// the caller.
func (s *Service) Login(username, password string) (string, models.PublicUser, error) {
	u, err := s.findByUsername(username)
	if err != nil {
		return "", models.PublicUser{}, fmt.Errorf("auth: login %q: %w", username, apperr.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", models.PublicUser{}, fmt.Errorf("auth: login %q: %w", username, apperr.ErrForbidden)
	}

	now := time.Now()
	claims := &Claims{
		Username: u.Username,
		UserID:   u.ID,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.PublicUser{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, u.Public(), nil
}

// Verify parses and validates a token string.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("auth: verify token: %w", apperr.ErrForbidden)
	}
	return claims, nil
}

// Register creates a new user. Usernames are unique.
func (s *Service) Register(username, password string, isAdmin bool) (models.PublicUser, error) {
	if username == "" || password == "" {
		return models.PublicUser{}, fmt.Errorf("auth: register: username and password required: %w", apperr.ErrValidation)
	}
	users, err := s.users.Load()
	if err != nil {
		return models.PublicUser{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return models.PublicUser{}, fmt.Errorf("auth: register %q: %w", username, apperr.ErrAlreadyExists)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Save(append(users, u)); err != nil {
		return models.PublicUser{}, err
	}
	s.logger.Info("auth: user registered", slog.String("username", username), slog.Bool("admin", isAdmin))
	return u.Public(), nil
}

// ListUsers returns the public projection of every account.
func (s *Service) ListUsers() ([]models.PublicUser, error) {
	users, err := s.users.Load()
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// DeleteUser removes an account by id.
func (s *Service) DeleteUser(id string) error {
	users, err := s.users.Load()
	if err != nil {
		return err
	}
	kept := users[:0]
	found := false
	for _, u := range users {
		if u.ID == id {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return fmt.Errorf("auth: delete user %q: %w", id, apperr.ErrNotFound)
	}
	return s.users.Save(kept)
}

// EnsureAdmin seeds the admin account on startup when it does not exist yet.
// An existing account with the same username is left untouched.
func (s *Service) EnsureAdmin(username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.Register(username, password, true)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (s *Service) findByUsername(username string) (models.User, error) {
	users, err := s.users.Load()
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, apperr.ErrNotFound
}
