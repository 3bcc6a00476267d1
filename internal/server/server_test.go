package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/veiculos/internal/auth"
	"github.com/sakif/veiculos/internal/config"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	catalogJSON := `{"carros":[{"marca":"HONDA","modelos":["Civic","Fit"]}],"motos":[{"marca":"YAMAHA","modelos":["Fazer"]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "veiculos.json"), []byte(catalogJSON), 0o644))

	cfg := &config.Config{
		Port:         8080,
		Env:          config.EnvDevelopment,
		LogLevel:     "error",
		LogFormat:    "text",
		DataDir:      dir,
		UsersFile:    "usuarios.csv",
		ListingsFile: "vendas.csv",
		CatalogFile:  "veiculos.json",
		UploadDir:    filepath.Join(dir, "uploads"),
		StoreDriver:  driver,
		DBPath:       filepath.Join(dir, "veiculos.db"),
		JWTSecret:    "server-test-secret-0123",
		BcryptCost:   4,
		MaxUploadMB:  1,
		TemplateDir:  filepath.Join("..", "..", "web", "templates"),
		StaticDir:    filepath.Join("..", "..", "web", "static"),
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestServer(t *testing.T, driver string) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := New(context.Background(), testConfig(t, driver), logger)
	require.NoError(t, err)
	t.Cleanup(s.close)
	return s
}

func serve(s *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatalf("no session cookie in response: %s", rr.Body.String())
	return nil
}

func TestNew_RejectsBadTemplateDir(t *testing.T) {
	cfg := testConfig(t, config.DriverCSV)
	cfg.TemplateDir = t.TempDir()

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	assert.Error(t, err)
}

func TestServer_Ops(t *testing.T) {
	s := newTestServer(t, config.DriverCSV)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestServer_Gates(t *testing.T) {
	s := newTestServer(t, config.DriverCSV)

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{http.MethodGet, "/api/listings", http.StatusUnauthorized},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodDelete, "/api/admin/listings/1", http.StatusUnauthorized},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/listings/1", http.StatusSeeOther},
	}
	for _, tt := range tests {
		rr := serve(s, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.wantStatus, rr.Code, "%s %s", tt.method, tt.path)
	}
}

// TestServer_EndToEnd walks the main user journey against both backends:
// the first account becomes admin, creates a listing, a second account
// sees it but cannot administer it.
func TestServer_EndToEnd(t *testing.T) {
	for _, driver := range []string{config.DriverCSV, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			s := newTestServer(t, driver)

			rr := serve(s, jsonReq(http.MethodPost, "/auth/register", `{"email":"ana@example.com","password":"pw-ana","name":"Ana"}`))
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			rr = serve(s, jsonReq(http.MethodPost, "/auth/register", `{"email":"bia@example.com","password":"pw-bia","name":"Bia"}`))
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

			admin := sessionCookie(t, serve(s, jsonReq(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"pw-ana"}`)))
			regular := sessionCookie(t, serve(s, jsonReq(http.MethodPost, "/auth/login", `{"email":"bia@example.com","password":"pw-bia"}`)))

			rr = serve(s, jsonReq(http.MethodPost, "/api/admin/listings",
				`{"type":"Carros","brand":"HONDA","model":"Civic","year":2020,"color":"Preto","mileage":30000,"price":45000}`), admin)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

			rr = serve(s, jsonReq(http.MethodPost, "/api/admin/listings",
				`{"type":"Carros","brand":"HONDA","model":"Fit","year":2018,"price":52000}`), regular)
			assert.Equal(t, http.StatusForbidden, rr.Code)

			rr = serve(s, httptest.NewRequest(http.MethodGet, "/api/listings?type=Carros&q=civic", nil), regular)
			require.Equal(t, http.StatusOK, rr.Code)
			var res struct {
				Matches []struct {
					ID             int64  `json:"id"`
					FormattedPrice string `json:"formattedPrice"`
				} `json:"matches"`
			}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
			require.Len(t, res.Matches, 1)
			assert.Equal(t, int64(1), res.Matches[0].ID)
			assert.Equal(t, "R$ 45.000,00", res.Matches[0].FormattedPrice)

			rr = serve(s, httptest.NewRequest(http.MethodGet, "/listings/1", nil), regular)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), "HONDA Civic")
		})
	}
}
