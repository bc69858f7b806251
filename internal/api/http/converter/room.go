package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/service"
)

type RoomResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	Capacity    int       `json:"capacity"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
	MemberCount int64     `json:"member_count"`
	IsOwner     *bool     `json:"is_owner,omitempty"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	return &RoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Subject:     r.Subject,
		Capacity:    r.Capacity,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		IsActive:    r.IsActive,
		MemberCount: r.MemberCount,
	}
}

func RoomDetailsToApi(d *service.RoomDetails) *RoomResponse {
	resp := RoomToApi(d.Room)
	isOwner := d.IsOwner
	resp.IsOwner = &isOwner
	return resp
}

func RoomsToApi(rooms []*domain.Room) []*RoomResponse {
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomToApi(r))
	}
	return out
}
