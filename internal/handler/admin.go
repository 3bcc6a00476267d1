package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/imagesearch"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler is listing administration. Every route is behind
// auth.RequireAdmin.
//
// ROUTES:
//   - POST   /api/admin/listings               → create (multipart form or JSON)
//   - PUT    /api/admin/listings               → save the whole grid
//   - PATCH  /api/admin/listings/{id}/featured → toggle the featured flag
//   - DELETE /api/admin/listings/{id}          → delete one listing
//   - GET    /api/admin/listings/export.xlsx   → grid as a workbook
//   - POST   /api/admin/listings/import        → grid from an edited workbook
//   - GET    /api/admin/photo-lookup           → stock photo suggestion
type AdminHandler struct {
	listings  *service.ListingService
	photos    PhotoResolver
	maxUpload int64
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler. maxUpload bounds a whole
// multipart request (all photos together, or one workbook).
func NewAdminHandler(listings *service.ListingService, photos PhotoResolver, maxUpload int64, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		listings:  listings,
		photos:    photos,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// HandleList returns the whole store in store order for the grid.
//
// HTTP: GET /api/admin/listings
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newListingViews(listings, h.photos))
}

// HandleCreate adds a listing.
//
// HTTP: POST /api/admin/listings
//
// MULTIPART FORM:
// fields type, brand, model, year, color, mileage, price, is_featured,
// photo_url, plus any number of files under "photos". A JSON body with the
// ListingInput shape is also accepted, without uploads.
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var (
		in      service.ListingInput
		uploads []io.Reader
	)

	if isJSON(r) {
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, err)
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, apperror.ValidationFailed("photos", fmt.Sprintf("could not read form: %v", err)))
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		var err error
		if in, err = listingInputFromForm(r); err != nil {
			writeError(w, err)
			return
		}

		files, closeFiles, err := openUploads(r.MultipartForm, "photos")
		if err != nil {
			writeError(w, err)
			return
		}
		defer closeFiles()
		uploads = files
	}

	l, err := h.listings.Create(r.Context(), in, uploads)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newListingView(l, h.photos))
}

func listingInputFromForm(r *http.Request) (service.ListingInput, error) {
	in := service.ListingInput{
		Type:       r.FormValue("type"),
		Brand:      r.FormValue("brand"),
		Model:      r.FormValue("model"),
		Color:      r.FormValue("color"),
		IsFeatured: formBool(r, "is_featured"),
		PhotoURL:   r.FormValue("photo_url"),
	}

	year, err := formInt64(r, "year")
	if err != nil {
		return in, err
	}
	in.Year = int(year)
	if in.Mileage, err = formInt64(r, "mileage"); err != nil {
		return in, err
	}
	if in.Price, err = formInt64(r, "price"); err != nil {
		return in, err
	}
	return in, nil
}

// openUploads opens every file posted under field. The returned func closes
// them all.
func openUploads(form *multipart.Form, field string) ([]io.Reader, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}

	readers := make([]io.Reader, 0, len(form.File[field]))
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return readers, closeAll, nil
}

// HandleUpdateBulk replaces the store with the posted grid. Photo columns
// in the rows are ignored; existing listings keep their photos.
//
// HTTP: PUT /api/admin/listings
// BODY: [{"id": 1, "type": "Carros", "brand": "FIAT", ...}, ...]
func (h *AdminHandler) HandleUpdateBulk(w http.ResponseWriter, r *http.Request) {
	var rows []model.Listing
	if err := decodeJSON(w, r, &rows); err != nil {
		writeError(w, err)
		return
	}

	if err := h.listings.UpdateBulk(r.Context(), rows); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"saved": len(rows)})
}

type featuredRequest struct {
	Featured *bool `json:"featured"`
}

// HandleSetFeatured sets or clears the featured flag.
//
// HTTP: PATCH /api/admin/listings/{id}/featured
// BODY: {"featured": true}
func (h *AdminHandler) HandleSetFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req featuredRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Featured == nil {
		writeError(w, apperror.ValidationFailed("featured", "featured is required"))
		return
	}

	l, err := h.listings.SetFeatured(r.Context(), id, *req.Featured)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListingView(l, h.photos))
}

// HandleDelete removes one listing.
//
// HTTP: DELETE /api/admin/listings/{id}
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.listings.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleExport downloads the grid as a workbook.
//
// HTTP: GET /api/admin/listings/export.xlsx
//
// The workbook is built in memory first so a failure can still be reported
// as a JSON error instead of a truncated download.
func (h *AdminHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.listings.Export(r.Context(), &buf); err != nil {
		h.logger.Error("export failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="vendas.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export: client went away", slog.String("error", err.Error()))
	}
}

// HandleImport saves an edited workbook as the new grid.
//
// HTTP: POST /api/admin/listings/import
//
// The workbook is either the "file" field of a multipart form or the raw
// request body.
func (h *AdminHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var src io.Reader = r.Body
	if err := r.ParseMultipartForm(h.maxUpload); err == nil {
		defer r.MultipartForm.RemoveAll()
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, apperror.ValidationFailed("file", "workbook file is required"))
			return
		}
		defer f.Close()
		src = f
	} else if !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, apperror.ValidationFailed("file", fmt.Sprintf("could not read upload: %v", err)))
		return
	}

	n, err := h.listings.Import(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"saved": n})
}

type photoLookupResponse struct {
	Found bool   `json:"found"`
	URL   string `json:"url,omitempty"`
}

// HandlePhotoLookup suggests a stock photo for a listing being created.
// Finding nothing is a normal answer, not an error.
//
// HTTP: GET /api/admin/photo-lookup?brand=&model=&color=&type=
func (h *AdminHandler) HandlePhotoLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := imagesearch.Query{
		Brand: q.Get("brand"),
		Model: q.Get("model"),
		Color: q.Get("color"),
		Type:  q.Get("type"),
	}
	if query.Brand == "" && query.Model == "" {
		writeError(w, apperror.ValidationFailed("brand", "brand or model is required"))
		return
	}

	url, ok := h.listings.LookupPhoto(r.Context(), query)
	writeJSON(w, http.StatusOK, photoLookupResponse{Found: ok, URL: url})
}
