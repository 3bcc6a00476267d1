package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/export"
	"github.com/sakif/veiculos/internal/imagesearch"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/photos"
	"github.com/sakif/veiculos/internal/repository"
)

// Validation bounds shared by the form, the JSON grid and the XLSX import.
const (
	MinYear  = 1900
	MaxYear  = 2100
	MaxPrice = 1_000_000_000
)

// ListingInput is the editable part of a listing.
type ListingInput struct {
	Type       string `json:"type"       validate:"required,max=40"`
	Brand      string `json:"brand"      validate:"required,max=80"`
	Model      string `json:"model"      validate:"required,max=120"`
	Year       int    `json:"year"       validate:"gte=1900,lte=2100"`
	Color      string `json:"color"      validate:"max=40"`
	Mileage    int64  `json:"mileage"    validate:"gte=0"`
	Price      int64  `json:"price"      validate:"gte=0,lte=1000000000"`
	IsFeatured bool   `json:"isFeatured"`
	// PhotoURL is used when no file is uploaded.
	PhotoURL string `json:"photoUrl" validate:"omitempty,http_url"`
}

func (in *ListingInput) normalize() {
	in.Type = strings.TrimSpace(in.Type)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.Color = strings.TrimSpace(in.Color)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
}

// PhotoSaver persists uploaded photo bytes. *photos.Store implements it.
type PhotoSaver interface {
	Check(r io.Reader) (photos.Upload, error)
	Write(listingID int64, index int, up photos.Upload) (string, error)
	Remove(ref string) error
}

// ImageFinder looks up a stock photo. *imagesearch.Client implements it.
type ImageFinder interface {
	Lookup(ctx context.Context, q imagesearch.Query) (string, bool)
}

// ListingService is listing administration: create, grid save, featured
// toggle, delete, spreadsheet round trip and photo lookup.
type ListingService struct {
	repo   repository.ListingRepository
	photos PhotoSaver
	images ImageFinder
	logger *slog.Logger

	// mu serialises every read-modify-write cycle on the listing store.
	mu sync.Mutex
}

func NewListingService(
	repo repository.ListingRepository,
	photoStore PhotoSaver,
	images ImageFinder,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		repo:   repo,
		photos: photoStore,
		images: images,
		logger: logger,
	}
}

// Create assigns the next id (max+1, or 1), saves uploaded photos as
// V{id}_{index}.{ext} and appends the listing. Uploads take precedence over
// PhotoURL.
//
// Every upload is checked before any file is written, and files written
// for a listing that is not stored in the end are removed again.
func (s *ListingService) Create(ctx context.Context, in ListingInput, uploads []io.Reader) (_ *model.Listing, err error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	checked := make([]photos.Upload, 0, len(uploads))
	for i, r := range uploads {
		up, err := s.photos.Check(r)
		if err != nil {
			if errors.Is(err, photos.ErrUnsupportedType) || errors.Is(err, photos.ErrTooLarge) {
				return nil, apperror.ValidationFailed("photos", fmt.Sprintf("photo %d: %s", i+1, err.Error()))
			}
			return nil, fmt.Errorf("reading photo %d: %w", i, err)
		}
		checked = append(checked, up)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading listings: %w", err)
	}
	id := repository.NextListingID(existing)

	var written []string
	defer func() {
		if err != nil {
			s.removePhotos(written)
		}
	}()

	for i, up := range checked {
		p, err := s.photos.Write(id, i, up)
		if err != nil {
			return nil, fmt.Errorf("saving photo %d: %w", i, err)
		}
		written = append(written, p)
	}

	paths := written
	if len(paths) == 0 && in.PhotoURL != "" {
		paths = []string{in.PhotoURL}
	}

	listing := &model.Listing{
		ID:         id,
		Type:       in.Type,
		Brand:      in.Brand,
		Model:      in.Model,
		Year:       in.Year,
		Color:      in.Color,
		Mileage:    in.Mileage,
		Price:      in.Price,
		IsFeatured: in.IsFeatured,
		PhotoPaths: paths,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		s.logger.Error("failed to create listing",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating listing: %w", err)
	}

	s.logger.Info("listing created",
		slog.Int64("id", listing.ID),
		slog.String("brand", listing.Brand),
		slog.String("model", listing.Model),
		slog.Int("photos", len(paths)),
	)
	return listing, nil
}

// removePhotos deletes files written for a create that did not complete.
func (s *ListingService) removePhotos(refs []string) {
	for _, ref := range refs {
		if err := s.photos.Remove(ref); err != nil {
			s.logger.Warn("failed to remove orphaned photo",
				slog.String("photo", ref),
				slog.String("error", err.Error()),
			)
		}
	}
}

// UpdateBulk replaces the whole store with the edited grid. Photo paths are
// read-only in the grid: rows matching an existing id keep that listing's
// paths whatever the row says.
func (s *ListingService) UpdateBulk(ctx context.Context, rows []model.Listing) error {
	seen := make(map[int64]struct{}, len(rows))
	for i := range rows {
		r := &rows[i]
		if r.ID <= 0 {
			return apperror.ValidationFailed("id", fmt.Sprintf("row %d: id must be positive", i+1))
		}
		if _, dup := seen[r.ID]; dup {
			return apperror.ValidationFailed("id", fmt.Sprintf("row %d: id %d appears more than once", i+1, r.ID))
		}
		seen[r.ID] = struct{}{}

		in := inputFromListing(r)
		if err := validateStruct(in); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				return apperror.ValidationFailed(appErr.Field, fmt.Sprintf("row %d: %s", i+1, appErr.Message))
			}
			return err
		}
		r.Type, r.Brand, r.Model, r.Color = in.Type, in.Brand, in.Model, in.Color
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading listings: %w", err)
	}
	photosByID := make(map[int64][]string, len(current))
	for _, l := range current {
		photosByID[l.ID] = l.PhotoPaths
	}

	next := make([]model.Listing, len(rows))
	for i, r := range rows {
		if p, ok := photosByID[r.ID]; ok {
			r.PhotoPaths = p
		}
		next[i] = r
	}

	if err := s.repo.ReplaceAll(ctx, next); err != nil {
		s.logger.Error("failed to save listing grid", slog.String("error", err.Error()))
		return fmt.Errorf("replacing listings: %w", err)
	}

	s.logger.Info("listing grid saved",
		slog.Int("before", len(current)),
		slog.Int("after", len(next)),
	)
	return nil
}

func inputFromListing(l *model.Listing) ListingInput {
	in := ListingInput{
		Type:       l.Type,
		Brand:      l.Brand,
		Model:      l.Model,
		Year:       l.Year,
		Color:      l.Color,
		Mileage:    l.Mileage,
		Price:      l.Price,
		IsFeatured: l.IsFeatured,
	}
	in.normalize()
	return in
}

// SetFeatured sets the featured flag on exactly one listing.
func (s *ListingService) SetFeatured(ctx context.Context, id int64, featured bool) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.IsFeatured == featured {
		return l, nil
	}

	l.IsFeatured = featured
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("updating listing %d: %w", id, err)
	}

	s.logger.Info("listing featured flag changed",
		slog.Int64("id", id),
		slog.Bool("featured", featured),
	)
	return l, nil
}

// Delete removes exactly one listing. Deleting an id that is not there is
// an apperror.ErrNotFound.
func (s *ListingService) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("listing deleted", slog.Int64("id", id))
	return nil
}

func (s *ListingService) Get(ctx context.Context, id int64) (*model.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the whole store, in store order, for the admin grid.
func (s *ListingService) List(ctx context.Context) ([]model.Listing, error) {
	return s.repo.List(ctx)
}

// Export writes the grid as an XLSX workbook.
func (s *ListingService) Export(ctx context.Context, w io.Writer) error {
	listings, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading listings: %w", err)
	}
	return export.WriteListings(w, listings)
}

// Import reads an edited workbook and saves it with UpdateBulk semantics.
// It returns the number of rows saved.
func (s *ListingService) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := export.ReadListings(r)
	if err != nil {
		return 0, err
	}
	if err := s.UpdateBulk(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// LookupPhoto asks the image search for a stock photo. Not finding one is
// not an error.
func (s *ListingService) LookupPhoto(ctx context.Context, q imagesearch.Query) (string, bool) {
	if s.images == nil {
		return "", false
	}
	url, ok := s.images.Lookup(ctx, q)
	s.logger.Debug("photo lookup",
		slog.String("query", q.Term()),
		slog.Bool("found", ok),
	)
	return url, ok
}

// ParseID parses a listing id from a path segment.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", fmt.Sprintf("invalid listing id %q", raw))
	}
	return id, nil
}
