// Package service contains the business rules of the marketplace.
//
//	Handler (HTTP) → Service (rules, validation, locking) → Repository (files or SQLite)
//
// Services take repository interfaces, never concrete stores, so the CSV
// and SQLite backends (and the fakes in tests) are interchangeable.
//
// Every read-modify-write cycle on a store runs under the owning service's
// writer lock. The stores rewrite whole files, so two unsynchronised writers
// would lose updates or hand out the same listing id.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/auth"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/repository"
)

// RegisterInput is a sign-up request. ConfirmPassword is optional; when
// sent it must equal Password. Any non-empty email is accepted, as the
// existing credential files hold addresses that were never format-checked.
type RegisterInput struct {
	Email           string `json:"email"           validate:"required,max=254"`
	Password        string `json:"password"        validate:"required,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	Name            string `json:"name"            validate:"required,max=100"`
}

// AuthService handles registration, login and session tokens.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → credential store
//   - tokens     *auth.TokenService         → session JWTs
//   - passwords  *auth.PasswordService      → bcrypt, plus legacy SHA-256 digests
//   - logger     *slog.Logger
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// mu serialises every write to the credential store: the "first account
	// is admin" check plus insert, and hash upgrades after login.
	mu sync.Mutex
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an account. The first account ever created becomes an
// admin; every later one is regular.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	role := model.RoleRegular
	if len(existing) == 0 {
		role = model.RoleAdmin
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to register user",
				slog.String("email", in.Email),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("email", user.Email),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Login checks credentials and returns the session to issue. It fails with
// apperror.ErrNotFound for an unknown or blank email and
// apperror.ErrUnauthorized for a wrong or empty password.
//
// Accounts still carrying a legacy SHA-256 digest (or a bcrypt hash at an
// old cost) are re-hashed in place after a successful login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.UserNotFound(email)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", slog.String("email", email))
		return nil, apperror.InvalidCredentials()
	}

	if s.passwords.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, email, password)
	}

	s.logger.Info("user logged in",
		slog.String("email", user.Email),
		slog.String("role", string(user.Role)),
	)
	return &model.Session{
		Email:    user.Email,
		UserName: user.Name,
		UserRole: user.Role,
	}, nil
}

// upgradeHash replaces a stored hash with a current bcrypt hash. Failure is
// logged and otherwise ignored: the old hash still verifies.
func (s *AuthService) upgradeHash(ctx context.Context, email, password string) {
	hash, err := s.passwords.Hash(password)
	if err == nil {
		s.mu.Lock()
		err = s.users.UpdatePasswordHash(ctx, email, hash)
		s.mu.Unlock()
	}
	if err != nil {
		s.logger.Warn("password hash upgrade failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("password hash upgraded", slog.String("email", email))
}

// IssueToken signs a session token for the cookie.
func (s *AuthService) IssueToken(session *model.Session) (string, error) {
	token, err := s.tokens.Generate(session)
	if err != nil {
		return "", fmt.Errorf("issuing session token: %w", err)
	}
	return token, nil
}

// Logout ends a session. Sessions live only in the client cookie, so there
// is nothing to revoke server-side; calling it twice, or without a session,
// is fine.
func (s *AuthService) Logout(session *model.Session) {
	if session.LoggedIn() {
		s.logger.Info("user logged out", slog.String("email", session.Email))
	}
}

// SessionTTL is how long issued session tokens stay valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}
