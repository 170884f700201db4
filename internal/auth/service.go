// Package auth handles accounts and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Session is a successful login.
type Session struct {
	User      core.User
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	users  storage.UserStore
	tokens *TokenManager
	cache  *cache.LRU[int64, core.User]
}

// NewService wires user storage to token issuance. userCache may be nil.
func NewService(users storage.UserStore, tokens *TokenManager, userCache *cache.LRU[int64, core.User]) *Service {
	return &Service{users: users, tokens: tokens, cache: userCache}
}

// Signup creates an account. A taken username yields storage.ErrUsernameTaken.
func (s *Service) Signup(ctx context.Context, username, password, email string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, core.ErrEmptyUsername
	}
	if err := validatePassword(password); err != nil {
		return core.User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.users.CreateUser(ctx, core.User{
		Username:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(email),
	})
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if u.PasswordHash == "" || !CheckPassword(u.PasswordHash, password) {
		slog.WarnContext(ctx, "Failed login", "username", u.Username)
		return Session{}, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return Session{}, err
	}
	if s.cache != nil {
		s.cache.Set(u.ID, u)
	}
	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return Session{User: u, Token: token, ExpiresAt: expires}, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, raw string) (core.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return core.User{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return core.User{}, err
	}
	return s.User(ctx, id)
}

// User looks a user up by id through the cache.
func (s *Service) User(ctx context.Context, id int64) (core.User, error) {
	if s.cache != nil {
		if u, ok := s.cache.Get(id); ok {
			return u, nil
		}
	}
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrInvalidToken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(id, u)
	}
	return u, nil
}

func (s *Service) Tokens() *TokenManager { return s.tokens }
