package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
)

type MembershipResponse struct {
	ID            *uuid.UUID              `json:"id,omitempty"`
	RoomID        uuid.UUID               `json:"room_id"`
	UserID        uuid.UUID               `json:"user_id"`
	UserName      string                  `json:"user_name,omitempty"`
	StudentNumber string                  `json:"student_number,omitempty"`
	StudentEmail  string                  `json:"student_email,omitempty"`
	Status        domain.MembershipStatus `json:"status"`
	JoinedAt      *time.Time              `json:"joined_at"`
	CreatedAt     *time.Time              `json:"created_at,omitempty"`
}

func MembershipToApi(m *domain.Membership) *MembershipResponse {
	resp := &MembershipResponse{
		RoomID:        m.RoomID,
		UserID:        m.UserID,
		UserName:      m.UserName,
		StudentNumber: m.StudentNumber,
		StudentEmail:  m.StudentEmail,
		Status:        m.Status,
		JoinedAt:      m.JoinedAt,
	}
	// The not_member placeholder has no row behind it.
	if m.ID != uuid.Nil {
		id := m.ID
		created := m.CreatedAt
		resp.ID = &id
		resp.CreatedAt = &created
	}
	return resp
}

func MembershipsToApi(members []*domain.Membership) []*MembershipResponse {
	out := make([]*MembershipResponse, 0, len(members))
	for _, m := range members {
		out = append(out, MembershipToApi(m))
	}
	return out
}
