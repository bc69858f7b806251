package domain

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipRejected MembershipStatus = "rejected"

	// MembershipNone is reported for users without a membership row. It is never stored.
	MembershipNone MembershipStatus = "not_member"
)

func (s MembershipStatus) IsDecision() bool {
	return s == MembershipApproved || s == MembershipRejected
}

// Membership links a user to a room. There is at most one per (room, user).
type Membership struct {
	ID            uuid.UUID
	RoomID        uuid.UUID
	UserID        uuid.UUID
	StudentNumber string
	StudentEmail  string
	Status        MembershipStatus
	JoinedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// UserName is the member's display name, resolved on listing.
	UserName string
}

func NewJoinRequest(roomID, userID uuid.UUID, studentNumber, studentEmail string) *Membership {
	now := time.Now().UTC()
	return &Membership{
		ID:            uuid.New(),
		RoomID:        roomID,
		UserID:        userID,
		StudentNumber: studentNumber,
		StudentEmail:  studentEmail,
		Status:        MembershipPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewOwnerMembership returns the creator's row, approved from the start.
func NewOwnerMembership(roomID, ownerID uuid.UUID) *Membership {
	now := time.Now().UTC()
	return &Membership{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    ownerID,
		Status:    MembershipApproved,
		JoinedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (m *Membership) IsApproved() bool {
	return m != nil && m.Status == MembershipApproved
}
