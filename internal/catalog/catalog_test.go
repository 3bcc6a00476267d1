package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "carros": [
    {"marca": "HONDA", "modelos": ["Civic", "Fit"]},
    {"marca": "TOYOTA", "modelos": ["Corolla", "Etios"]},
    {"marca": "FIAT", "modelos": ["Uno", "Argo"]},
    {"marca": "AUDI", "modelos": ["A3"]}
  ],
  "motos": [
    {"marca": "HONDA", "modelos": ["CG 160", "Biz"]},
    {"marca": "YAMAHA", "modelos": ["Fazer"]}
  ]
}`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "veiculos.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeCatalog(t, sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, 6, c.Len())
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, []string{DefaultType}, c.Types())
}

func TestLoad_EmptyFileIsEmpty(t *testing.T) {
	c, err := Load(writeCatalog(t, "  \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, err := Load(writeCatalog(t, `{"carros": [`))
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	c, err := Load(writeCatalog(t, sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"Carros", "Motos"}, c.Types())
}

func TestBrands_PopularFirst(t *testing.T) {
	c, err := Load(writeCatalog(t, sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"FIAT", "TOYOTA", "AUDI", "HONDA"}, c.Brands("Carros"))
	assert.Equal(t, []string{"HONDA", "YAMAHA"}, c.Brands("motos"))
	assert.Empty(t, c.Brands("Caminhoes"))
}

func TestModels(t *testing.T) {
	c, err := Load(writeCatalog(t, sampleJSON))
	require.NoError(t, err)

	tests := []struct {
		name   string
		typ    string
		brands []string
		want   []string
	}{
		{"no brand selected uses every brand of the type", "Carros", nil,
			[]string{"A3", "Argo", "Civic", "Corolla", "Etios", "Fit", "Uno"}},
		{"one brand", "Carros", []string{"HONDA"}, []string{"Civic", "Fit"}},
		{"brand scoped to type", "Motos", []string{"HONDA"}, []string{"Biz", "CG 160"}},
		{"two brands", "Carros", []string{"TOYOTA", "AUDI"}, []string{"A3", "Corolla", "Etios"}},
		{"unknown brand", "Carros", []string{"TESLA"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Models(tt.typ, tt.brands))
		})
	}
}

func TestSortBrands(t *testing.T) {
	got := SortBrands([]string{"RENAULT", "FORD", "BMW", "FIAT", "FORD", "CHEVROLET (GM)"})
	assert.Equal(t, []string{"FIAT", "CHEVROLET (GM)", "FORD", "BMW", "RENAULT"}, got)
}
