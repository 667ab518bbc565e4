package services

import (
	"github.com/courseworks/registration-service/internal/models"
)

// AuthorizationPolicy decides whether a caller may perform a mutation. Both
// predicates are pure; every mutating service operation consults them before
// touching the store.
type AuthorizationPolicy struct{}

func NewAuthorizationPolicy() AuthorizationPolicy {
	return AuthorizationPolicy{}
}

// IsAdmin reports whether the caller holds the admin role.
func (AuthorizationPolicy) IsAdmin(caller *models.User) bool {
	return caller != nil && caller.Role == models.RoleAdmin
}

// CanMutateStudent reports whether the caller is an admin or owns the
// student's user identity.
func (p AuthorizationPolicy) CanMutateStudent(caller *models.User, target *models.Student) bool {
	if p.IsAdmin(caller) {
		return true
	}
	return caller != nil && target != nil && caller.ID == target.UserID
}
