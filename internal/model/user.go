package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the marketplace role carried in the JWT.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// UserProfile is an account on the marketplace.
type UserProfile struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        *string    `json:"phone,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RegisterRequest is the payload for creating an account. Required profile
// fields are enforced by the registration rules so every missing field is
// reported at once.
type RegisterRequest struct {
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	FirstName   string `json:"first_name" binding:"max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	Phone       string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,max=10"`
}

// LoginRequest is the payload for email/password authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}
