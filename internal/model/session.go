package model

// Session is the identity attached to one authenticated request.
//
// It is decoded from the session cookie by the auth middleware and travels
// in the request context; nothing about it is kept in process memory.
type Session struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	UserRole Role   `json:"userRole"`
}

// LoggedIn reports whether the session carries an identity.
// A nil session is the anonymous visitor.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Email != ""
}

// IsAdmin reports whether the session may reach listing administration.
func (s *Session) IsAdmin() bool {
	return s.LoggedIn() && s.UserRole == RoleAdmin
}
