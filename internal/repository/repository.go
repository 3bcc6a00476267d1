// Package repository declares the storage contracts shared by the flat-file
// and SQLite backends.
package repository

import (
	"context"

	"github.com/sakif/veiculos/internal/model"
)

// UserRepository is the credential store.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// CreateUser appends a new account. It returns apperror.ErrConflict when
	// the email is already present.
	CreateUser(ctx context.Context, user *model.User) error
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

// ListingRepository is the listing store. List returns records in store
// (insertion) order.
type ListingRepository interface {
	List(ctx context.Context) ([]model.Listing, error)
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	// Create appends a listing whose ID the caller has already assigned.
	Create(ctx context.Context, listing *model.Listing) error
	Update(ctx context.Context, listing *model.Listing) error
	// ReplaceAll swaps the whole table for the given rows.
	ReplaceAll(ctx context.Context, listings []model.Listing) error
	Delete(ctx context.Context, id int64) error
}

// NextListingID returns max(existing ids)+1, or 1 for an empty store.
// Callers must hold the writer lock between this call and Create.
func NextListingID(listings []model.Listing) int64 {
	var max int64
	for _, l := range listings {
		if l.ID > max {
			max = l.ID
		}
	}
	return max + 1
}
