package session

import (
	"github.com/google/uuid"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
)

// Session is the authenticated caller, rebuilt from the store on every request.
type Session struct {
	UserID       uuid.UUID       `json:"user_id"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name"`
	Role         string          `json:"role"`
	TokenVersion string          `json:"-"`
	Privileges   []string        `json:"privileges"`
	Screens      []access.Screen `json:"screens"`
}

// FromUser builds a session for u. The user must have Profile.Role.Privileges loaded.
func FromUser(u *model.User, caps *Capabilities) *Session {
	s := &Session{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.RoleCode(),
		TokenVersion: u.TokenVersion,
		Privileges:   u.GetPrivilegeCodes(),
	}
	if u.Profile != nil {
		s.FullName = u.Profile.FullName
	}
	s.Screens = caps.Screens(u.ID, u.TokenVersion, s.Role)
	return s
}

// Has reports whether the session holds privilege code.
func (s *Session) Has(code string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Privileges {
		if p == code {
			return true
		}
	}
	return false
}

// Actor is the audit identifier written to created_by/updated_by.
func (s *Session) Actor() string {
	if s == nil {
		return "system"
	}
	return s.UserID.String()
}

func (s *Session) IsSuperAdmin() bool {
	return s != nil && s.Role == model.RoleSuperAdmin
}

// SalesScope limits sale reads to the caller's own rows for cashiers.
func (s *Session) SalesScope() access.Scope {
	if s == nil {
		return access.ScopeNone
	}
	return access.SalesScope(s.Role)
}
