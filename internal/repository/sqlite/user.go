package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// ListUsers returns every account in registration order.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT email, password_hash, name, role FROM users ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Email, &u.PasswordHash, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// GetUserByEmail returns apperror.ErrNotFound when no account matches.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT email, password_hash, name, role FROM users WHERE email = ?`,
		email,
	).Scan(&u.Email, &u.PasswordHash, &u.Name, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.UserNotFound(email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}

	return &u, nil
}

// CreateUser inserts a new account.
//
// ON CONFLICT DO NOTHING turns a duplicate email into zero affected rows
// instead of a driver-specific constraint error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, role)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}
	if n == 0 {
		return apperror.DuplicateEmail(user.Email)
	}

	return nil
}

func (db *DB) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE email = ?`,
		hash, email,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for %s: %w", email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating password for %s: %w", email, err)
	}
	if n == 0 {
		return apperror.UserNotFound(email)
	}

	return nil
}
