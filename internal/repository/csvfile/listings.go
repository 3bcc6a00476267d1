package csvfile

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/model"
)

// Column names of vendas.csv. Preco_Formatado may appear in older files; it
// is derived from Preco and never written back.
const (
	colID       = "ID"
	colType     = "Tipo"
	colBrand    = "Marca"
	colModel    = "Modelo"
	colYear     = "Ano"
	colColor    = "Cor"
	colMileage  = "Quilometragem"
	colPrice    = "Preco"
	colFeatured = "is_featured"
	colPhotos   = "Caminho_Fotos"
)

var listingHeader = []string{
	colID, colType, colBrand, colModel, colYear, colColor,
	colMileage, colPrice, colFeatured, colPhotos,
}

// loadListings decodes the listing file. Rows without an ID column are
// numbered 1..n in file order.
func (s *Store) loadListings() ([]model.Listing, error) {
	t, err := s.load(&s.listings, listingHeader)
	idx := t.index()
	_, hasID := idx[colID]

	listings := make([]model.Listing, 0, len(t.rows))
	for i, row := range t.rows {
		l := decodeListing(row, idx)
		if !hasID {
			l.ID = int64(i + 1)
		}
		listings = append(listings, l)
	}
	return listings, err
}

func decodeListing(row []string, idx map[string]int) model.Listing {
	get := func(col string) string {
		v, _ := cell(row, idx, col)
		return strings.TrimSpace(v)
	}

	return model.Listing{
		ID:         parseInt(get(colID)),
		Type:       get(colType),
		Brand:      get(colBrand),
		Model:      get(colModel),
		Year:       int(parseInt(get(colYear))),
		Color:      get(colColor),
		Mileage:    parseInt(get(colMileage)),
		Price:      parseInt(get(colPrice)),
		IsFeatured: parseBool(get(colFeatured)),
		PhotoPaths: model.SplitPhotoPaths(get(colPhotos)),
	}
}

func encodeListings(listings []model.Listing) *table {
	t := &table{header: append([]string(nil), listingHeader...), rows: make([][]string, 0, len(listings))}
	for _, l := range listings {
		t.rows = append(t.rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.Type,
			l.Brand,
			l.Model,
			strconv.Itoa(l.Year),
			l.Color,
			strconv.FormatInt(l.Mileage, 10),
			strconv.FormatInt(l.Price, 10),
			strconv.FormatBool(l.IsFeatured),
			model.JoinPhotoPaths(l.PhotoPaths),
		})
	}
	return t
}

// parseInt reads integers that may have been written as floats ("2020.0")
// by spreadsheet tools. Anything unparsable is 0.
func parseInt(v string) int64 {
	if v == "" {
		return 0
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "1.0", "yes", "sim":
		return true
	}
	return false
}

// List returns every listing in file order. An unreadable file reads as
// empty.
func (s *Store) List(ctx context.Context) ([]model.Listing, error) {
	listings, _ := s.loadListings()
	return listings, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	listings, _ := s.loadListings()
	for i := range listings {
		if listings[i].ID == id {
			l := listings[i]
			return &l, nil
		}
	}
	return nil, apperror.NotFound("listing", strconv.FormatInt(id, 10))
}

func (s *Store) Create(ctx context.Context, listing *model.Listing) error {
	s.listings.writeMu.Lock()
	defer s.listings.writeMu.Unlock()

	listings, err := s.loadListings()
	if err != nil {
		return apperror.Unavailable("listing store", err)
	}

	for _, l := range listings {
		if l.ID == listing.ID {
			return apperror.Conflict("listing", strconv.FormatInt(listing.ID, 10))
		}
	}

	listings = append(listings, *listing)
	return s.saveListings(listings)
}

func (s *Store) Update(ctx context.Context, listing *model.Listing) error {
	s.listings.writeMu.Lock()
	defer s.listings.writeMu.Unlock()

	listings, err := s.loadListings()
	if err != nil {
		return apperror.Unavailable("listing store", err)
	}

	for i := range listings {
		if listings[i].ID == listing.ID {
			listings[i] = *listing
			return s.saveListings(listings)
		}
	}
	return apperror.NotFound("listing", strconv.FormatInt(listing.ID, 10))
}

func (s *Store) ReplaceAll(ctx context.Context, listings []model.Listing) error {
	s.listings.writeMu.Lock()
	defer s.listings.writeMu.Unlock()

	return s.saveListings(listings)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.listings.writeMu.Lock()
	defer s.listings.writeMu.Unlock()

	listings, err := s.loadListings()
	if err != nil {
		return apperror.Unavailable("listing store", err)
	}

	for i := range listings {
		if listings[i].ID == id {
			kept := append(listings[:i:i], listings[i+1:]...)
			return s.saveListings(kept)
		}
	}
	return apperror.NotFound("listing", strconv.FormatInt(id, 10))
}

func (s *Store) saveListings(listings []model.Listing) error {
	if err := s.save(&s.listings, encodeListings(listings)); err != nil {
		return apperror.Unavailable("listing store", err)
	}
	return nil
}
