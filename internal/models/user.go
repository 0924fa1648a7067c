package models

import "time"

// UserRole represents the available roles for access control.
type UserRole string

const (
	RolePatient UserRole = "PATIENT"
	RoleAdmin   UserRole = "ADMIN"
)

// User represents a registered patient or administrator.
type User struct {
	ID              string     `db:"id" json:"id"`
	Username        string     `db:"username" json:"username"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Age             int        `db:"age" json:"age"`
	PhoneNumber     string     `db:"phone_number" json:"phone_number"`
	Role            UserRole   `db:"role" json:"role"`
	ResetTokenHash  *string    `db:"reset_token_hash" json:"-"`
	ResetTokenUntil *time.Time `db:"reset_token_until" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// UserSummary is the abbreviated user shape attached to appointments.
type UserSummary struct {
	ID          string `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	Email       string `db:"email" json:"email"`
	PhoneNumber string `db:"phone_number" json:"phone_number,omitempty"`
}

// UpdateProfileRequest holds the mutable profile fields. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	Username    *string `json:"username,omitempty" validate:"omitempty,min=2,max=64"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Age         *int    `json:"age,omitempty" validate:"omitempty,gte=1,lte=120"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,e164"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
