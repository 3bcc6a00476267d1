package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/veiculos/internal/model"
)

// okHandler records the session it saw.
func okHandler(seen **model.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func requestWithSession(t *testing.T, ts *TokenService, session *model.Session) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	if session != nil {
		token, err := ts.Generate(session)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return req
}

func TestLoadSession(t *testing.T) {
	ts := newTestTokenService(t)

	t.Run("valid cookie populates context", func(t *testing.T) {
		var seen *model.Session
		rr := httptest.NewRecorder()
		LoadSession(ts)(okHandler(&seen)).ServeHTTP(rr, requestWithSession(t, ts, adminSession()))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "ana@example.com", seen.Email)
	})

	t.Run("no cookie stays anonymous", func(t *testing.T) {
		var seen *model.Session
		rr := httptest.NewRecorder()
		LoadSession(ts)(okHandler(&seen)).ServeHTTP(rr, requestWithSession(t, ts, nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Nil(t, seen)
	})

	t.Run("bad cookie stays anonymous", func(t *testing.T) {
		var seen *model.Session
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
		rr := httptest.NewRecorder()
		LoadSession(ts)(okHandler(&seen)).ServeHTTP(rr, req)

		assert.Nil(t, seen)
	})
}

func TestRequireSessionAndAdmin(t *testing.T) {
	ts := newTestTokenService(t)
	regular := &model.Session{Email: "bia@example.com", UserName: "Bia", UserRole: model.RoleRegular}

	tests := []struct {
		name       string
		gate       func(http.Handler) http.Handler
		session    *model.Session
		wantStatus int
	}{
		{"session: anonymous", RequireSession, nil, http.StatusUnauthorized},
		{"session: regular", RequireSession, regular, http.StatusNoContent},
		{"admin: anonymous", RequireAdmin, nil, http.StatusUnauthorized},
		{"admin: regular", RequireAdmin, regular, http.StatusForbidden},
		{"admin: admin", RequireAdmin, adminSession(), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *model.Session
			h := LoadSession(ts)(tt.gate(okHandler(&seen)))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, requestWithSession(t, ts, tt.session))
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	ClearSessionCookie(rr)
	ClearSessionCookie(rr)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
