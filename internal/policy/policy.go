// Package policy decides which admin may act on which shipment.
package policy

import (
	"errors"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

var (
	// ErrUnauthorized indicates the actor may not perform the operation.
	ErrUnauthorized = errors.New("unauthorized")
)

// Actor is the authenticated admin performing a request.
type Actor struct {
	ID   uint
	Role models.UserRole
}

// IsSuperAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}

// IsAdmin reports whether the actor holds any administrative role.
func (a Actor) IsAdmin() bool {
	return a.ID != 0 && a.Role.Valid()
}

// Ownable is implemented by resources that belong to a single admin.
type Ownable interface {
	OwnerID() uint
}

// CanManage reports whether the actor owns the resource or is a super admin.
func CanManage(actor Actor, resource Ownable) bool {
	if !actor.IsAdmin() {
		return false
	}
	if actor.IsSuperAdmin() {
		return true
	}
	return resource != nil && resource.OwnerID() == actor.ID
}

// Authorize returns ErrUnauthorized when the actor cannot manage the resource.
func Authorize(actor Actor, resource Ownable) error {
	if !CanManage(actor, resource) {
		return ErrUnauthorized
	}
	return nil
}

// RequireAdmin rejects actors without an administrative role.
func RequireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// RequireSuperAdmin rejects actors that are not super admins.
func RequireSuperAdmin(actor Actor) error {
	if !actor.IsAdmin() || !actor.IsSuperAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// Scope resolves the owner filter for admin-scoped reads.
// A nil result means every admin's data is visible.
// Plain admins always see their own data; super admins see everything
// unless viewAs narrows the view to one admin.
func Scope(actor Actor, viewAs *uint) *uint {
	if actor.IsSuperAdmin() {
		if viewAs != nil && *viewAs > 0 {
			target := *viewAs
			return &target
		}
		return nil
	}
	id := actor.ID
	return &id
}
