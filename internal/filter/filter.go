// Package filter is the catalog filter engine: a pure function from a
// listing snapshot and a set of criteria to the matching and featured
// listings.
package filter

import (
	"slices"
	"strings"

	"github.com/sakif/veiculos/internal/model"
)

// Fallback bounds used when a type has no listings.
const (
	DefaultPriceMin int64 = 0
	DefaultPriceMax int64 = 100000
	DefaultYearMin        = 2015
	DefaultYearMax        = 2025

	// minimum widths applied when a type's listings share one price or year
	priceSpread int64 = 1000
	yearSpread        = 1
)

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (r PriceRange) contains(p int64) bool { return p >= r.Min && p <= r.Max }

// YearRange is an inclusive model-year interval.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r YearRange) contains(y int) bool { return y >= r.Min && y <= r.Max }

// Criteria selects listings. Type, Price and Year always apply; Text,
// Brands and Models apply only when non-empty.
type Criteria struct {
	Type   string
	Text   string
	Price  PriceRange
	Year   YearRange
	Brands []string
	Models []string
}

// Bounds are the default slider ranges for a type.
type Bounds struct {
	Price PriceRange `json:"price"`
	Year  YearRange  `json:"year"`
}

// Result holds the matching listings and, separately, the featured
// listings of the selected type. Both keep store order.
type Result struct {
	Matches  []model.Listing `json:"matches"`
	Featured []model.Listing `json:"featured"`
}

// Apply runs the filter. Featured listings are taken from the type-restricted
// set before any other criterion, so they stay visible whatever the text,
// brand, model, price or year selection.
func Apply(listings []model.Listing, c Criteria) Result {
	text := strings.ToLower(strings.TrimSpace(c.Text))

	res := Result{
		Matches:  []model.Listing{},
		Featured: []model.Listing{},
	}

	for _, l := range listings {
		if l.Type != c.Type {
			continue
		}
		if l.IsFeatured {
			res.Featured = append(res.Featured, l)
		}

		if !c.Price.contains(l.Price) || !c.Year.contains(l.Year) {
			continue
		}
		if text != "" && !strings.Contains(l.SearchText(), text) {
			continue
		}
		if len(c.Brands) > 0 && !slices.Contains(c.Brands, l.Brand) {
			continue
		}
		if len(c.Models) > 0 && !slices.Contains(c.Models, l.Model) {
			continue
		}
		res.Matches = append(res.Matches, l)
	}

	return res
}

// DefaultBounds returns the price and year ranges spanning every listing of
// the given type. A type without listings gets the fallback ranges; a
// degenerate range is widened so that min < max.
func DefaultBounds(listings []model.Listing, vehicleType string) Bounds {
	var (
		b     Bounds
		found bool
	)

	for _, l := range listings {
		if l.Type != vehicleType {
			continue
		}
		if !found {
			b.Price = PriceRange{Min: l.Price, Max: l.Price}
			b.Year = YearRange{Min: l.Year, Max: l.Year}
			found = true
			continue
		}
		b.Price.Min = min(b.Price.Min, l.Price)
		b.Price.Max = max(b.Price.Max, l.Price)
		b.Year.Min = min(b.Year.Min, l.Year)
		b.Year.Max = max(b.Year.Max, l.Year)
	}

	if !found {
		b.Price = PriceRange{Min: DefaultPriceMin, Max: DefaultPriceMax}
		b.Year = YearRange{Min: DefaultYearMin, Max: DefaultYearMax}
	}
	if b.Price.Min >= b.Price.Max {
		b.Price.Max = b.Price.Min + priceSpread
	}
	if b.Year.Min >= b.Year.Max {
		b.Year.Max = b.Year.Min + yearSpread
	}

	return b
}
