package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/auth"
	"github.com/sakif/veiculos/internal/model"
	"github.com/sakif/veiculos/internal/service"
)

// AuthHandler serves registration, login, logout and the current session.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account (first one becomes admin)
//   - HandleLogin    → check credentials, issue the session cookie
//   - HandleLogout   → drop the session cookie
//   - HandleMe       → return the session of the caller
//
// Register and login accept either JSON or a plain HTML form post.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie marks the session
// cookie Secure and should be set whenever the site is served over HTTPS.
func NewAuthHandler(authService *service.AuthService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is what login and /api/me return.
type sessionResponse struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
	LoggedIn bool       `json:"loggedIn"`
	IsAdmin  bool       `json:"isAdmin"`
}

func newSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{
		Email:    s.Email,
		Name:     s.UserName,
		Role:     s.UserRole,
		LoggedIn: s.LoggedIn(),
		IsAdmin:  s.IsAdmin(),
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /auth/register
// BODY: {"email", "password", "confirmPassword", "name"} or the same form fields
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if isJSON(r) {
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, err)
			return
		}
	} else {
		in = service.RegisterInput{
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
			Name:            r.FormValue("name"),
		}
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin checks the credentials and sets the session cookie.
//
// HTTP: POST /auth/login
//
// Unknown email and wrong password both answer 401 with the same message,
// so the endpoint cannot be used to probe which emails are registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	} else {
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	session, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrUnauthorized) {
			writeError(w, apperror.InvalidCredentials())
			return
		}
		writeError(w, err)
		return
	}

	token, err := h.auth.IssueToken(session)
	if err != nil {
		h.logger.Error("login: token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	auth.SetSessionCookie(w, token, h.auth.SessionTTL(), h.secureCookie)

	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// HandleLogout clears the session cookie. It succeeds with or without a
// session, so calling it twice is harmless.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	h.auth.Logout(session)
	auth.ClearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the caller's session.
//
// HTTP: GET /api/me (RequireSession)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "login required"})
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}
