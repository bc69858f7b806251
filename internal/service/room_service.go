package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/metrics"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

type CreateRoomInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"max=100"`
	Capacity    int    `json:"capacity" validate:"gte=1,lte=500"`
}

type RoomDetails struct {
	Room    *domain.Room
	IsOwner bool
}

type RoomService struct {
	rooms   repository.RoomRepository
	members repository.MembershipRepository
	log     *slog.Logger
}

func NewRoomService(rooms repository.RoomRepository, members repository.MembershipRepository, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:   rooms,
		members: members,
		log:     log,
	}
}

// CreateRoom stores a new room together with the requester's approved membership.
func (s *RoomService) CreateRoom(ctx context.Context, requester *domain.User, in CreateRoomInput) (*domain.Room, error) {
	const op = "service.room.create"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(slog.String("op", op), slog.String("user_id", requester.ID.String()))

	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	if in.Capacity == 0 {
		in.Capacity = domain.DefaultRoomCapacity
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	room := domain.NewRoom(in.Name, in.Description, in.Subject, in.Capacity, requester.ID)
	owner := domain.NewOwnerMembership(room.ID, requester.ID)
	owner.StudentEmail = requester.Email

	if err := s.rooms.CreateWithOwner(ctx, room, owner); err != nil {
		log.Error("failed to create room", sl.Err(err))
		return nil, err
	}
	room.MemberCount = 1

	metrics.RoomsCreated.Inc()
	log.Info("room created", slog.String("room_id", room.ID.String()), slog.String("name", room.Name))
	return room, nil
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	const op = "service.room.list"

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		s.log.Error("failed to list rooms", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return rooms, nil
}

// GetRoom is visible to approved members only.
func (s *RoomService) GetRoom(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*RoomDetails, error) {
	const op = "service.room.get"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()))

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		log.Error("failed to load room", sl.Err(err))
		return nil, err
	}

	m, err := s.members.Get(ctx, roomID, requester.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return nil, ErrForbidden
		}
		log.Error("failed to load membership", sl.Err(err))
		return nil, err
	}
	if !m.IsApproved() {
		return nil, ErrForbidden
	}

	return &RoomDetails{
		Room:    room,
		IsOwner: room.IsOwner(requester.ID),
	}, nil
}
