package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRoomCapacity = 10
	MaxRoomCapacity     = 500
	MaxRoomNameLength   = 255
	MaxSubjectLength    = 100
)

// Room is a named, capacity-bounded collaboration space owned by its creator.
type Room struct {
	ID          uuid.UUID
	Name        string
	Description string
	Subject     string
	Capacity    int
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	IsActive    bool

	// MemberCount is the number of approved members; filled on listing only.
	MemberCount int64
}

func NewRoom(name, description, subject string, capacity int, owner uuid.UUID) *Room {
	if capacity == 0 {
		capacity = DefaultRoomCapacity
	}
	return &Room{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Subject:     subject,
		Capacity:    capacity,
		CreatedBy:   owner,
		CreatedAt:   time.Now().UTC(),
		IsActive:    true,
	}
}

func (r *Room) IsOwner(userID uuid.UUID) bool {
	if r == nil {
		return false
	}
	return r.CreatedBy == userID
}
