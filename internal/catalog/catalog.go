// Package catalog holds the reference brand/model catalog (veiculos.json).
//
// The catalog only feeds selectable options. Listings are never checked
// against it: a listing may name a brand or model the catalog lacks.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultType is offered when the catalog has no types at all.
const DefaultType = "Carros"

// PopularBrands are listed first, in this order, wherever brands are offered.
var PopularBrands = []string{
	"FIAT",
	"VOLKSWAGEN (VW)",
	"CHEVROLET (GM)",
	"HYUNDAI",
	"FORD",
	"TOYOTA",
}

// Entry is one brand and its models within a vehicle type.
type Entry struct {
	Brand  string   `json:"marca"`
	Models []string `json:"modelos"`
}

// Catalog maps a lowercase vehicle type ("carros", "motos") to its entries.
type Catalog struct {
	entries map[string][]Entry
}

// New builds a catalog from already-decoded entries. Type keys are
// lowercased.
func New(entries map[string][]Entry) *Catalog {
	c := &Catalog{entries: make(map[string][]Entry, len(entries))}
	for t, e := range entries {
		key := strings.ToLower(t)
		c.entries[key] = append(c.entries[key], e...)
	}
	return c
}

// Load reads a catalog file. A missing file is an empty catalog; malformed
// JSON is an error.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return New(nil), nil
	}

	var raw map[string][]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decoding %s: %w", path, err)
	}
	return New(raw), nil
}

// Len returns the number of brand entries across all types.
func (c *Catalog) Len() int {
	n := 0
	for _, e := range c.entries {
		n += len(e)
	}
	return n
}

// Types returns the catalog's vehicle types, capitalised and sorted.
func (c *Catalog) Types() []string {
	title := cases.Title(language.BrazilianPortuguese)

	types := make([]string, 0, len(c.entries))
	for t := range c.entries {
		types = append(types, title.String(t))
	}
	if len(types) == 0 {
		return []string{DefaultType}
	}
	slices.Sort(types)
	return types
}

// Brands returns the brands of a type, popular ones first.
func (c *Catalog) Brands(vehicleType string) []string {
	entries := c.entries[strings.ToLower(vehicleType)]
	brands := make([]string, 0, len(entries))
	for _, e := range entries {
		brands = append(brands, e.Brand)
	}
	return SortBrands(brands)
}

// Models returns the sorted, de-duplicated models of the selected brands
// within a type. With no brands selected every brand of the type counts.
func (c *Catalog) Models(vehicleType string, brands []string) []string {
	seen := make(map[string]struct{})
	for _, e := range c.entries[strings.ToLower(vehicleType)] {
		if len(brands) > 0 && !slices.Contains(brands, e.Brand) {
			continue
		}
		for _, m := range e.Models {
			seen[m] = struct{}{}
		}
	}

	models := make([]string, 0, len(seen))
	for m := range seen {
		models = append(models, m)
	}
	slices.Sort(models)
	return models
}

// SortBrands de-duplicates brands and orders them: PopularBrands first in
// their fixed order, then the rest alphabetically.
func SortBrands(brands []string) []string {
	set := make(map[string]struct{}, len(brands))
	for _, b := range brands {
		set[b] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for _, p := range PopularBrands {
		if _, ok := set[p]; ok {
			out = append(out, p)
			delete(set, p)
		}
	}

	rest := make([]string, 0, len(set))
	for b := range set {
		rest = append(rest, b)
	}
	slices.Sort(rest)
	return append(out, rest...)
}
