package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/imagesearch"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/photos"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// Each keeps insertion order, like the real stores.

type fakeUserRepo struct {
	users     []model.User
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{} }

func (f *fakeUserRepo) ListUsers(context.Context) ([]model.User, error) {
	return append([]model.User(nil), f.users...), nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			c := u
			return &c, nil
		}
	}
	return nil, apperror.UserNotFound(email)
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}
	f.users = append(f.users, *user)
	return nil
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, email, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.users {
		if f.users[i].Email == email {
			f.users[i].PasswordHash = hash
			return nil
		}
	}
	return apperror.UserNotFound(email)
}

type fakeListingRepo struct {
	listings  []model.Listing
	listErr   error
	createErr error
}

func newFakeListingRepo(listings ...model.Listing) *fakeListingRepo {
	return &fakeListingRepo{listings: listings}
}

func (f *fakeListingRepo) List(context.Context) ([]model.Listing, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Listing(nil), f.listings...), nil
}

func (f *fakeListingRepo) GetByID(_ context.Context, id int64) (*model.Listing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			c := l
			return &c, nil
		}
	}
	return nil, apperror.NotFound("listing", strconv.FormatInt(id, 10))
}

func (f *fakeListingRepo) Create(_ context.Context, listing *model.Listing) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, l := range f.listings {
		if l.ID == listing.ID {
			return apperror.Conflict("listing", strconv.FormatInt(listing.ID, 10))
		}
	}
	f.listings = append(f.listings, *listing)
	return nil
}

func (f *fakeListingRepo) Update(_ context.Context, listing *model.Listing) error {
	for i := range f.listings {
		if f.listings[i].ID == listing.ID {
			f.listings[i] = *listing
			return nil
		}
	}
	return apperror.NotFound("listing", strconv.FormatInt(listing.ID, 10))
}

func (f *fakeListingRepo) ReplaceAll(_ context.Context, listings []model.Listing) error {
	f.listings = append([]model.Listing(nil), listings...)
	return nil
}

func (f *fakeListingRepo) Delete(_ context.Context, id int64) error {
	for i := range f.listings {
		if f.listings[i].ID == id {
			f.listings = append(f.listings[:i], f.listings[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("listing", strconv.FormatInt(id, 10))
}

// fakePhotoSaver accepts anything starting with "img" and records names.
type fakePhotoSaver struct {
	saved    []string
	removed  []string
	writeErr error
}

func (f *fakePhotoSaver) Check(r io.Reader) (photos.Upload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return photos.Upload{}, err
	}
	if len(data) < 3 || string(data[:3]) != "img" {
		return photos.Upload{}, photos.ErrUnsupportedType
	}
	return photos.Upload{}, nil
}

func (f *fakePhotoSaver) Write(listingID int64, index int, _ photos.Upload) (string, error) {
	if f.writeErr != nil && index > 0 {
		return "", f.writeErr
	}
	p := "uploads/" + photos.FileName(listingID, index, ".jpg")
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakePhotoSaver) Remove(ref string) error {
	f.removed = append(f.removed, ref)
	return nil
}

type fakeImageFinder struct {
	url   string
	calls []imagesearch.Query
}

func (f *fakeImageFinder) Lookup(_ context.Context, q imagesearch.Query) (string, bool) {
	f.calls = append(f.calls, q)
	return f.url, f.url != ""
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func car(id int64, brand, modelName string, year int, price int64) model.Listing {
	return model.Listing{
		ID: id, Type: model.TypeCars, Brand: brand, Model: modelName,
		Year: year, Color: "Branco", Mileage: 1000, Price: price,
		PhotoPaths: []string{fmt.Sprintf("uploads/V%d_0.jpg", id)},
	}
}
