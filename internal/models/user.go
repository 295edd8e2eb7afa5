package models

import "time"

// UserRole enumerates the administrative roles.
type UserRole string

const (
	// RoleSuperAdmin can manage every shipment and every admin account.
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	// RoleAdmin manages the shipments it owns.
	RoleAdmin UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// User is an administrative account able to sign in to the back office.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name      string     `gorm:"size:255" json:"name"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Role      UserRole   `gorm:"size:32;not null;default:ADMIN" json:"role"`
	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
