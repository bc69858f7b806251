package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// User is a local profile bound to an identity-provider subject.
type User struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"-"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewUser(externalID, name, email, role string) *User {
	if role == "" {
		role = RoleStudent
	}
	now := time.Now().UTC()
	return &User{
		ID:         uuid.New(),
		ExternalID: externalID,
		Name:       name,
		Email:      email,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
