package auth

import "library-backend/internal/platform/apperr"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	MemberID int64
	Role     Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// RequireAdmin は admin 以外を UNAUTHORIZED で弾く
func RequireAdmin(role Role) error {
	if role != RoleAdmin {
		return apperr.ErrUnauthorized("admin role required")
	}
	return nil
}

// RequireSelfOrAdmin allows a member to act on their own records only.
func RequireSelfOrAdmin(a Actor, memberID int64) error {
	if a.IsAdmin() || a.MemberID == memberID {
		return nil
	}
	return apperr.ErrUnauthorized("cannot act on another member")
}

// Credential is what Login needs to know about a member.
type Credential struct {
	MemberID     int64
	PasswordHash string
	Role         Role
	Disabled     bool
}
