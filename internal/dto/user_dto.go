package dto

import (
	"time"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// LoginRequest carries back-office credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued session alongside the signed-in user.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest registers a new ADMIN account.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"omitempty,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UpdatePasswordRequest replaces the caller's password.
type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserResponse is the public representation of an admin account.
type UserResponse struct {
	ID        uint            `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      models.UserRole `json:"role"`
	IsDeleted bool            `json:"is_deleted"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewUserResponse converts the model into a response payload.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsDeleted: user.IsDeleted,
		DeletedAt: user.DeletedAt,
		CreatedAt: user.CreatedAt,
	}
}

// NewUserResponseSlice converts a list of users.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
