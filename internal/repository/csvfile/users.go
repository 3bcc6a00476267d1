package csvfile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/model"
)

// Column names of usuarios.csv.
const (
	colEmail    = "email"
	colPassword = "password"
	colName     = "nome"
	colRole     = "role"
)

var userHeader = []string{colEmail, colPassword, colName, colRole}

// loadUsers returns the accounts for readers. Files written before roles
// existed get every account set to regular, and the column is written back.
func (s *Store) loadUsers() ([]model.User, error) {
	users, hasRole, err := s.readUsers()
	if err != nil {
		return users, err
	}
	if !hasRole && len(users) > 0 {
		s.backfillRoles()
	}
	return users, nil
}

// readUsers decodes the credential file without writing anything.
// hasRole reports whether the file already carries the role column.
func (s *Store) readUsers() (users []model.User, hasRole bool, err error) {
	t, err := s.load(&s.users, userHeader)
	idx := t.index()
	_, hasRole = idx[colRole]

	users = make([]model.User, 0, len(t.rows))
	for _, row := range t.rows {
		email, _ := cell(row, idx, colEmail)
		if strings.TrimSpace(email) == "" {
			continue
		}
		hash, _ := cell(row, idx, colPassword)
		name, _ := cell(row, idx, colName)
		role, _ := cell(row, idx, colRole)

		r := model.Role(strings.ToLower(strings.TrimSpace(role)))
		if !r.Valid() {
			r = model.RoleRegular
		}
		users = append(users, model.User{Email: email, PasswordHash: hash, Name: name, Role: r})
	}
	return users, hasRole, err
}

// backfillRoles persists the role column. It re-reads under the write lock
// because another writer may have saved since the caller's read.
func (s *Store) backfillRoles() {
	s.users.writeMu.Lock()
	defer s.users.writeMu.Unlock()

	users, hasRole, err := s.readUsers()
	if err != nil || hasRole || len(users) == 0 {
		return
	}
	if werr := s.save(&s.users, encodeUsers(users)); werr != nil {
		s.logger.Warn("persisting backfilled roles failed", slog.String("error", werr.Error()))
		return
	}
	s.logger.Info("backfilled role column", slog.Int("users", len(users)))
}

func encodeUsers(users []model.User) *table {
	t := &table{header: append([]string(nil), userHeader...), rows: make([][]string, 0, len(users))}
	for _, u := range users {
		t.rows = append(t.rows, []string{u.Email, u.PasswordHash, u.Name, string(u.Role)})
	}
	return t
}

// ListUsers returns every account in file order. An unreadable file reads
// as empty.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users, _ := s.loadUsers()
	return users, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	users, _ := s.loadUsers()
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u, nil
		}
	}
	return nil, apperror.UserNotFound(email)
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.users.writeMu.Lock()
	defer s.users.writeMu.Unlock()

	users, _, err := s.readUsers()
	if err != nil {
		return apperror.Unavailable("credential store", err)
	}

	for _, u := range users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}

	users = append(users, *user)
	if err := s.save(&s.users, encodeUsers(users)); err != nil {
		return apperror.Unavailable("credential store", err)
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	s.users.writeMu.Lock()
	defer s.users.writeMu.Unlock()

	users, _, err := s.readUsers()
	if err != nil {
		return apperror.Unavailable("credential store", err)
	}

	found := false
	for i := range users {
		if users[i].Email == email {
			users[i].PasswordHash = hash
			found = true
			break
		}
	}
	if !found {
		return apperror.UserNotFound(email)
	}

	if err := s.save(&s.users, encodeUsers(users)); err != nil {
		return apperror.Unavailable("credential store", err)
	}
	return nil
}
