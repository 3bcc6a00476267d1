package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/veiculos/internal/model"
)

func listing(id int64, typ, brand, modelName string, year int, price int64, featured bool) model.Listing {
	return model.Listing{
		ID: id, Type: typ, Brand: brand, Model: modelName, Year: year,
		Color: "Prata", Mileage: 10000, Price: price, IsFeatured: featured,
	}
}

func ids(listings []model.Listing) []int64 {
	out := make([]int64, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

// inventory is a mixed store used by most tests below.
func inventory() []model.Listing {
	return []model.Listing{
		listing(1, model.TypeCars, "HONDA", "Civic", 2020, 45000, false),
		listing(2, model.TypeCars, "TOYOTA", "Corolla", 2019, 40000, true),
		listing(3, model.TypeMotorcycles, "HONDA", "CG 160", 2022, 15000, true),
		listing(4, model.TypeCars, "FIAT", "Uno", 2012, 18000, false),
		listing(5, model.TypeCars, "HONDA", "Fit", 2023, 95000, false),
		listing(6, model.TypeCars, "FIAT", "Argo", 2021, 60000, true),
	}
}

func wide(typ string) Criteria {
	return Criteria{
		Type:  typ,
		Price: PriceRange{Min: 0, Max: 1_000_000},
		Year:  YearRange{Min: 1900, Max: 2100},
	}
}

// ============================================================
// Apply
// ============================================================

func TestApply_CivicScenario(t *testing.T) {
	store := []model.Listing{
		listing(1, model.TypeCars, "Honda", "Civic", 2020, 45000, false),
		listing(2, model.TypeCars, "Toyota", "Corolla", 2019, 40000, false),
	}

	res := Apply(store, Criteria{
		Type:  "Carros",
		Text:  "Civic",
		Price: PriceRange{Min: 0, Max: 50000},
		Year:  YearRange{Min: 2015, Max: 2025},
	})

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Civic", res.Matches[0].Model)
	assert.Empty(t, res.Featured)
}

func TestApply_Criteria(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Criteria)
		want []int64
	}{
		{"type only, store order", func(c *Criteria) {}, []int64{1, 2, 4, 5, 6}},
		{"other type", func(c *Criteria) { c.Type = model.TypeMotorcycles }, []int64{3}},
		{"unknown type", func(c *Criteria) { c.Type = "Caminhoes" }, []int64{}},
		{"type is case sensitive", func(c *Criteria) { c.Type = "carros" }, []int64{}},
		{"price inclusive", func(c *Criteria) { c.Price = PriceRange{Min: 40000, Max: 60000} }, []int64{1, 2, 6}},
		{"year inclusive", func(c *Criteria) { c.Year = YearRange{Min: 2019, Max: 2021} }, []int64{1, 2, 6}},
		{"text is case insensitive", func(c *Criteria) { c.Text = "hOnDa" }, []int64{1, 5}},
		{"text matches any field", func(c *Criteria) { c.Text = "2012" }, []int64{4}},
		{"text matches formatted price", func(c *Criteria) { c.Text = "r$ 95.000" }, []int64{5}},
		{"blank text ignored", func(c *Criteria) { c.Text = "   " }, []int64{1, 2, 4, 5, 6}},
		{"brands", func(c *Criteria) { c.Brands = []string{"FIAT", "TOYOTA"} }, []int64{2, 4, 6}},
		{"models", func(c *Criteria) { c.Models = []string{"Fit", "Uno"} }, []int64{4, 5}},
		{"brand and model AND together", func(c *Criteria) {
			c.Brands = []string{"HONDA"}
			c.Models = []string{"Uno"}
		}, []int64{}},
		{"all criteria", func(c *Criteria) {
			c.Brands = []string{"HONDA", "FIAT"}
			c.Price = PriceRange{Min: 10000, Max: 50000}
			c.Text = "prata"
		}, []int64{1, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := wide(model.TypeCars)
			tt.mod(&c)
			assert.Equal(t, tt.want, ids(Apply(inventory(), c).Matches))
		})
	}
}

func TestApply_FeaturedIgnoresOtherCriteria(t *testing.T) {
	c := wide(model.TypeCars)
	c.Text = "nothing matches this"
	c.Brands = []string{"HONDA"}
	c.Price = PriceRange{Min: 1, Max: 2}

	res := Apply(inventory(), c)
	assert.Empty(t, res.Matches)
	assert.Equal(t, []int64{2, 6}, ids(res.Featured))
}

func TestApply_FeaturedRestrictedToType(t *testing.T) {
	res := Apply(inventory(), wide(model.TypeMotorcycles))
	assert.Equal(t, []int64{3}, ids(res.Featured))
}

func TestApply_EmptyStore(t *testing.T) {
	res := Apply(nil, wide(model.TypeCars))
	assert.NotNil(t, res.Matches)
	assert.NotNil(t, res.Featured)
	assert.Empty(t, res.Matches)
}

func TestApply_Properties(t *testing.T) {
	criteria := []Criteria{
		wide(model.TypeCars),
		{Type: model.TypeCars, Price: PriceRange{Min: 20000, Max: 70000}, Year: YearRange{Min: 2015, Max: 2025}},
		{Type: model.TypeMotorcycles, Price: PriceRange{Min: 0, Max: 100000}, Year: YearRange{Min: 2020, Max: 2022}, Text: "cg"},
		{Type: model.TypeCars, Price: PriceRange{Min: 0, Max: 100000}, Year: YearRange{Min: 2000, Max: 2030}, Brands: []string{"HONDA"}},
	}

	for _, c := range criteria {
		first := Apply(inventory(), c)

		// Idempotent: filtering the result again changes nothing.
		again := Apply(first.Matches, c)
		assert.Equal(t, ids(first.Matches), ids(again.Matches))

		for _, l := range first.Matches {
			assert.Equal(t, c.Type, l.Type)
			assert.GreaterOrEqual(t, l.Price, c.Price.Min)
			assert.LessOrEqual(t, l.Price, c.Price.Max)
			assert.GreaterOrEqual(t, l.Year, c.Year.Min)
			assert.LessOrEqual(t, l.Year, c.Year.Max)
		}
		for _, l := range first.Featured {
			assert.Equal(t, c.Type, l.Type)
			assert.True(t, l.IsFeatured)
		}
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	store := inventory()
	before := ids(store)
	Apply(store, Criteria{Type: model.TypeCars, Price: PriceRange{Max: 1}, Year: YearRange{Max: 1}})
	assert.Equal(t, before, ids(store))
}

// ============================================================
// DefaultBounds
// ============================================================

func TestDefaultBounds(t *testing.T) {
	tests := []struct {
		name  string
		store []model.Listing
		typ   string
		want  Bounds
	}{
		{
			name:  "spans the type's listings",
			store: inventory(),
			typ:   model.TypeCars,
			want:  Bounds{Price: PriceRange{18000, 95000}, Year: YearRange{2012, 2023}},
		},
		{
			name:  "no listings of the type",
			store: inventory(),
			typ:   "Caminhoes",
			want:  Bounds{Price: PriceRange{0, 100000}, Year: YearRange{2015, 2025}},
		},
		{
			name:  "empty store",
			store: nil,
			typ:   model.TypeCars,
			want:  Bounds{Price: PriceRange{0, 100000}, Year: YearRange{2015, 2025}},
		},
		{
			name:  "single listing is widened",
			store: inventory(),
			typ:   model.TypeMotorcycles,
			want:  Bounds{Price: PriceRange{15000, 16000}, Year: YearRange{2022, 2023}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultBounds(tt.store, tt.typ))
		})
	}
}

func TestDefaultBounds_IncludeEveryListing(t *testing.T) {
	store := inventory()
	b := DefaultBounds(store, model.TypeCars)

	res := Apply(store, Criteria{Type: model.TypeCars, Price: b.Price, Year: b.Year})
	assert.Equal(t, []int64{1, 2, 4, 5, 6}, ids(res.Matches))
}
