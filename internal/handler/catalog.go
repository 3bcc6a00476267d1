package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/veiculos/internal/filter"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/service"
)

// PhotoResolver turns stored photo references into URLs the browser can
// load. *photos.Store implements it.
type PhotoResolver interface {
	DisplayURL(refs []string) string
	DisplayURLs(refs []string) []string
}

// CatalogHandler is the read-only JSON API behind the catalog page.
type CatalogHandler struct {
	catalog *service.CatalogService
	photos  PhotoResolver
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, photos PhotoResolver, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		photos:  photos,
		logger:  logger,
	}
}

// listingView is a listing as the browser sees it: stored photo paths are
// replaced by loadable URLs and the price comes pre-formatted.
type listingView struct {
	ID             int64    `json:"id"`
	Type           string   `json:"type"`
	Brand          string   `json:"brand"`
	Model          string   `json:"model"`
	Year           int      `json:"year"`
	Color          string   `json:"color"`
	Mileage        int64    `json:"mileage"`
	Price          int64    `json:"price"`
	FormattedPrice string   `json:"formattedPrice"`
	IsFeatured     bool     `json:"isFeatured"`
	Photo          string   `json:"photo"`
	Photos         []string `json:"photos"`
}

func newListingView(l *model.Listing, photos PhotoResolver) listingView {
	return listingView{
		ID:             l.ID,
		Type:           l.Type,
		Brand:          l.Brand,
		Model:          l.Model,
		Year:           l.Year,
		Color:          l.Color,
		Mileage:        l.Mileage,
		Price:          l.Price,
		FormattedPrice: l.FormattedPrice(),
		IsFeatured:     l.IsFeatured,
		Photo:          photos.DisplayURL(l.PhotoPaths),
		Photos:         photos.DisplayURLs(l.PhotoPaths),
	}
}

func newListingViews(listings []model.Listing, photos PhotoResolver) []listingView {
	views := make([]listingView, 0, len(listings))
	for i := range listings {
		views = append(views, newListingView(&listings[i], photos))
	}
	return views
}

type searchResponse struct {
	Type     string        `json:"type"`
	Bounds   filter.Bounds `json:"bounds"`
	Applied  filter.Bounds `json:"applied"`
	Matches  []listingView `json:"matches"`
	Featured []listingView `json:"featured"`
}

// HandleTypes lists the selectable vehicle types.
//
// HTTP: GET /api/catalog/types
func (h *CatalogHandler) HandleTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"types": h.catalog.Types()})
}

// HandleOptions returns brand and model choices for a type. Repeating
// ?brand= narrows the models to those brands.
//
// HTTP: GET /api/catalog/options?type=Carros&brand=HONDA&brand=FIAT
func (h *CatalogHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.catalog.Options(q.Get("type"), q["brand"]))
}

// HandleSearch runs the filter engine over the current listings.
//
// HTTP: GET /api/listings?type=&q=&price_min=&price_max=&year_min=&year_max=&brand=&model=
//
// Range parameters that are absent fall back to the bounds of the selected
// type; the response echoes both so the page can draw its sliders.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.catalog.Search(r.Context(), params)
	if err != nil {
		h.logger.Error("catalog search failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Type:     res.Type,
		Bounds:   res.Bounds,
		Applied:  res.Applied,
		Matches:  newListingViews(res.Matches, h.photos),
		Featured: newListingViews(res.Featured, h.photos),
	})
}

// HandleGet returns one listing.
//
// HTTP: GET /api/listings/{id}
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	l, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListingView(l, h.photos))
}

func parseSearchParams(r *http.Request) (service.SearchParams, error) {
	q := r.URL.Query()
	p := service.SearchParams{
		Type:   q.Get("type"),
		Text:   q.Get("q"),
		Brands: q["brand"],
		Models: q["model"],
	}

	var err error
	if p.PriceMin, err = queryInt64(q, "price_min"); err != nil {
		return p, err
	}
	if p.PriceMax, err = queryInt64(q, "price_max"); err != nil {
		return p, err
	}
	if p.YearMin, err = queryInt(q, "year_min"); err != nil {
		return p, err
	}
	if p.YearMax, err = queryInt(q, "year_max"); err != nil {
		return p, err
	}
	return p, nil
}
