package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/veiculos/internal/catalog"
	"github.com/sakif/veiculos/internal/filter"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/repository"
)

// SearchParams is a catalog search as the user expressed it. Nil bounds
// fall back to the defaults for the selected type; an empty Type selects
// the first type offered.
type SearchParams struct {
	Type     string
	Text     string
	PriceMin *int64
	PriceMax *int64
	YearMin  *int
	YearMax  *int
	Brands   []string
	Models   []string
}

// SearchResult is what the catalog page renders.
type SearchResult struct {
	Type     string          `json:"type"`
	Bounds   filter.Bounds   `json:"bounds"`
	Applied  filter.Bounds   `json:"applied"`
	Matches  []model.Listing `json:"matches"`
	Featured []model.Listing `json:"featured"`
}

// Options are the selectable brands and models for a type.
type Options struct {
	Type   string   `json:"type"`
	Brands []string `json:"brands"`
	Models []string `json:"models"`
}

// CatalogService serves the read side: option lists, search, detail.
type CatalogService struct {
	listings repository.ListingRepository
	catalog  *catalog.Catalog
	logger   *slog.Logger
}

func NewCatalogService(listings repository.ListingRepository, cat *catalog.Catalog, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		listings: listings,
		catalog:  cat,
		logger:   logger,
	}
}

// Types lists the selectable vehicle types.
func (s *CatalogService) Types() []string {
	return s.catalog.Types()
}

// Options derives brand and model choices from the reference catalog.
// Models follow the selected brands, or every brand of the type when none
// is selected.
func (s *CatalogService) Options(vehicleType string, brands []string) Options {
	vehicleType = s.resolveType(vehicleType)
	return Options{
		Type:   vehicleType,
		Brands: s.catalog.Brands(vehicleType),
		Models: s.catalog.Models(vehicleType, brands),
	}
}

// Search filters the current listing snapshot.
func (s *CatalogService) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	listings, err := s.listings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading listings: %w", err)
	}

	vehicleType := s.resolveType(p.Type)
	bounds := filter.DefaultBounds(listings, vehicleType)

	applied := bounds
	if p.PriceMin != nil {
		applied.Price.Min = *p.PriceMin
	}
	if p.PriceMax != nil {
		applied.Price.Max = *p.PriceMax
	}
	if p.YearMin != nil {
		applied.Year.Min = *p.YearMin
	}
	if p.YearMax != nil {
		applied.Year.Max = *p.YearMax
	}

	res := filter.Apply(listings, filter.Criteria{
		Type:   vehicleType,
		Text:   p.Text,
		Price:  applied.Price,
		Year:   applied.Year,
		Brands: compact(p.Brands),
		Models: compact(p.Models),
	})

	s.logger.Debug("catalog search",
		slog.String("type", vehicleType),
		slog.String("text", p.Text),
		slog.Int("matches", len(res.Matches)),
		slog.Int("featured", len(res.Featured)),
	)

	return &SearchResult{
		Type:     vehicleType,
		Bounds:   bounds,
		Applied:  applied,
		Matches:  res.Matches,
		Featured: res.Featured,
	}, nil
}

// Get returns one listing for the detail page.
func (s *CatalogService) Get(ctx context.Context, id int64) (*model.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

// resolveType maps user input onto a catalog type, case-insensitively.
// Unknown non-empty types are kept as given; empty selects the first type.
func (s *CatalogService) resolveType(t string) string {
	types := s.catalog.Types()
	t = strings.TrimSpace(t)
	if t == "" {
		return types[0]
	}
	if i := slices.IndexFunc(types, func(c string) bool { return strings.EqualFold(c, t) }); i >= 0 {
		return types[i]
	}
	return t
}

// compact drops blank entries from a multi-select.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
