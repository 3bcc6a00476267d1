// Package handler contains the HTTP handlers of the marketplace.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path, query, form or JSON body)
//  2. Call the service layer
//  3. Write the response: JSON for /api, HTML for the pages
//
// Handlers hold no business rules. Validation, locking and id assignment
// live in internal/service; handlers only translate HTTP to service calls
// and service errors back to status codes.
package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/auth"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/service"
)

// PageHandler renders the server-side HTML pages. Templates are parsed
// once at startup.
//
// TEMPLATE COMPOSITION:
// base.html defines "base" with a {{template "content" .}} hole. catalog.html
// and detail.html each define "content", so each page gets its own template
// set: parsing both into one set would let the last "content" win.
type PageHandler struct {
	catalogPage *template.Template
	detailPage  *template.Template
	catalog     *service.CatalogService
	photos      PhotoResolver
	logger      *slog.Logger
}

// NewPageHandler parses the page templates found in templateDir.
func NewPageHandler(templateDir string, catalog *service.CatalogService, photos PhotoResolver, logger *slog.Logger) (*PageHandler, error) {
	base := filepath.Join(templateDir, "base.html")

	catalogPage, err := template.ParseFiles(base, filepath.Join(templateDir, "catalog.html"))
	if err != nil {
		return nil, err
	}
	detailPage, err := template.ParseFiles(base, filepath.Join(templateDir, "detail.html"))
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		catalogPage: catalogPage,
		detailPage:  detailPage,
		catalog:     catalog,
		photos:      photos,
		logger:      logger,
	}, nil
}

// pageData is shared by every page. Anonymous visitors get a nil Session.
type pageData struct {
	Title   string
	Session *model.Session
	Error   string
}

type catalogPageData struct {
	pageData
	Types    []string
	Options  service.Options
	Search   *searchResponse
	Query    string
	Selected map[string]bool
}

type detailPageData struct {
	pageData
	Listing listingView
}

// HandleCatalog renders the catalog. Without a session it shows the login
// and sign-up forms instead of listings.
//
// HTTP: GET /?type=&q=&price_min=&...
func (h *PageHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	data := catalogPageData{
		pageData: pageData{Title: "Veículos Online", Session: session},
	}

	if session.LoggedIn() {
		params, err := parseSearchParams(r)
		if err != nil {
			data.Error = err.Error()
			params = service.SearchParams{Type: params.Type}
		}

		res, err := h.catalog.Search(r.Context(), params)
		if err != nil {
			h.logger.Error("catalog page: search failed", slog.String("error", err.Error()))
			data.Error = "Não foi possível carregar os anúncios."
		} else {
			data.Search = &searchResponse{
				Type:     res.Type,
				Bounds:   res.Bounds,
				Applied:  res.Applied,
				Matches:  newListingViews(res.Matches, h.photos),
				Featured: newListingViews(res.Featured, h.photos),
			}
			data.Options = h.catalog.Options(res.Type, params.Brands)
		}

		data.Types = h.catalog.Types()
		data.Query = params.Text
		data.Selected = make(map[string]bool, len(params.Brands)+len(params.Models))
		for _, v := range append(params.Brands, params.Models...) {
			data.Selected[v] = true
		}
	}

	h.render(w, h.catalogPage, http.StatusOK, data)
}

// HandleDetail renders one listing. Anonymous visitors go back to the
// catalog to log in.
//
// HTTP: GET /listings/{id}
func (h *PageHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := detailPageData{pageData: pageData{Title: "Detalhes do veículo", Session: session}}

	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		data.Error = err.Error()
		h.render(w, h.detailPage, http.StatusBadRequest, data)
		return
	}

	l, err := h.catalog.Get(r.Context(), id)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		data.Error = "Veículo não encontrado."
		h.render(w, h.detailPage, http.StatusNotFound, data)
		return
	case err != nil:
		h.logger.Error("detail page: lookup failed", slog.Int64("id", id), slog.String("error", err.Error()))
		data.Error = "Não foi possível carregar o veículo."
		h.render(w, h.detailPage, http.StatusServiceUnavailable, data)
		return
	}

	data.Title = l.Brand + " " + l.Model
	data.Listing = newListingView(l, h.photos)
	h.render(w, h.detailPage, http.StatusOK, data)
}

// render executes the "base" template of set. The content type and status
// go out before the body, so a template error mid-render can only be logged.
func (h *PageHandler) render(w http.ResponseWriter, set *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := set.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
	}
}
