package model

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Vehicle types as they appear in the listing store.
const (
	TypeCars        = "Carros"
	TypeMotorcycles = "Motos"
)

// PhotoSeparator joins photo paths in the Caminho_Fotos column.
const PhotoSeparator = ";"

// Listing is one vehicle offered for sale.
//
// ID is assigned at creation as max(existing)+1 and never reused while the
// record exists. Price is in whole currency units (no cents).
type Listing struct {
	ID         int64    `json:"id"         db:"id"`
	Type       string   `json:"type"       db:"tipo"`
	Brand      string   `json:"brand"      db:"marca"`
	Model      string   `json:"model"      db:"modelo"`
	Year       int      `json:"year"       db:"ano"`
	Color      string   `json:"color"      db:"cor"`
	Mileage    int64    `json:"mileage"    db:"quilometragem"`
	Price      int64    `json:"price"      db:"preco"`
	IsFeatured bool     `json:"isFeatured" db:"is_featured"`
	PhotoPaths []string `json:"photoPaths" db:"caminho_fotos"`
}

// FormattedPrice is the derived Preco_Formatado value. It is computed on
// read and never stored.
func (l *Listing) FormattedPrice() string {
	return FormatPrice(l.Price)
}

// PrimaryPhoto returns the first photo path, or "" when there is none.
func (l *Listing) PrimaryPhoto() string {
	if len(l.PhotoPaths) == 0 {
		return ""
	}
	return l.PhotoPaths[0]
}

// SearchText is the lowercase concatenation of every field value, used by
// the free-text predicate of the catalog filter.
func (l *Listing) SearchText() string {
	parts := []string{
		strconv.FormatInt(l.ID, 10),
		l.Type,
		l.Brand,
		l.Model,
		strconv.Itoa(l.Year),
		l.Color,
		strconv.FormatInt(l.Mileage, 10),
		strconv.FormatInt(l.Price, 10),
		strconv.FormatBool(l.IsFeatured),
		JoinPhotoPaths(l.PhotoPaths),
		l.FormattedPrice(),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// JoinPhotoPaths renders photo paths in their stored form.
func JoinPhotoPaths(paths []string) string {
	return strings.Join(paths, PhotoSeparator)
}

// SplitPhotoPaths parses the stored form back into paths, dropping blanks.
// "nan" is what an empty cell round-trips to in files written by pandas.
func SplitPhotoPaths(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "nan" {
		return nil
	}
	var paths []string
	for _, p := range strings.Split(s, PhotoSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

var brlPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatPrice renders a price the way the catalog shows it: "R$ 45.000,00".
func FormatPrice(price int64) string {
	return brlPrinter.Sprintf("R$ %.2f", float64(price))
}
