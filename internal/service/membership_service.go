package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/metrics"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

type JoinRequestInput struct {
	StudentNumber string `json:"student_number" validate:"required,max=50"`
	StudentEmail  string `json:"student_email" validate:"required,email,max=255"`
}

// MembershipService runs the join workflow:
//
//	none -> pending -> approved | rejected
//
// Only pending rows transition. Approved and rejected are final.
type MembershipService struct {
	rooms   repository.RoomRepository
	members repository.MembershipRepository
	log     *slog.Logger
	now     func() time.Time
}

func NewMembershipService(rooms repository.RoomRepository, members repository.MembershipRepository, log *slog.Logger) *MembershipService {
	if log == nil {
		log = slog.Default()
	}
	return &MembershipService{
		rooms:   rooms,
		members: members,
		log:     log,
		now:     time.Now,
	}
}

func (s *MembershipService) RequestJoin(ctx context.Context, roomID uuid.UUID, requester *domain.User, in JoinRequestInput) (*domain.Membership, error) {
	const op = "service.membership.requestJoin"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID.String()),
		slog.String("user_id", requester.ID.String()),
	)

	in.StudentNumber = strings.TrimSpace(in.StudentNumber)
	in.StudentEmail = strings.TrimSpace(in.StudentEmail)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}

	m := domain.NewJoinRequest(roomID, requester.ID, in.StudentNumber, in.StudentEmail)
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrMembershipExists) {
			return nil, conflictError("join request already exists")
		}
		log.Error("failed to store join request", sl.Err(err))
		return nil, err
	}
	m.UserName = requester.Name

	metrics.MembershipEvents.WithLabelValues(string(domain.MembershipPending)).Inc()
	log.Info("join requested")
	return m, nil
}

func (s *MembershipService) DecideMembership(ctx context.Context, roomID, targetUserID uuid.UUID, decision domain.MembershipStatus, requester *domain.User) (*domain.Membership, error) {
	const op = "service.membership.decide"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID.String()),
		slog.String("target_user_id", targetUserID.String()),
		slog.String("decision", string(decision)),
	)

	if !decision.IsDecision() {
		return nil, validationError("status must be approved or rejected")
	}

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(requester.ID) {
		return nil, ErrForbidden
	}
	if targetUserID == room.CreatedBy {
		return nil, conflictError("the room creator's membership cannot be changed")
	}

	current, err := s.members.Get(ctx, roomID, targetUserID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return nil, ErrMembershipNotFound
		}
		log.Error("failed to load membership", sl.Err(err))
		return nil, err
	}

	switch {
	case current.Status == decision:
		return current, nil
	case current.Status != domain.MembershipPending:
		return nil, conflictError("membership is already %s", current.Status)
	}

	updated, err := s.members.Transition(ctx, roomID, targetUserID, decision, s.now(), room.Capacity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomFull):
			return nil, conflictError("room is full")
		case errors.Is(err, repository.ErrMembershipNotPending):
			return nil, conflictError("membership was decided concurrently")
		case errors.Is(err, repository.ErrMembershipNotFound):
			return nil, ErrMembershipNotFound
		}
		log.Error("failed to update membership", sl.Err(err))
		return nil, err
	}

	metrics.MembershipEvents.WithLabelValues(string(decision)).Inc()
	log.Info("membership decided")
	return updated, nil
}

// GetMembershipStatus reports the requester's row, or a MembershipNone placeholder.
func (s *MembershipService) GetMembershipStatus(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*domain.Membership, error) {
	const op = "service.membership.status"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	m, err := s.members.Get(ctx, roomID, requester.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return &domain.Membership{
				RoomID: roomID,
				UserID: requester.ID,
				Status: domain.MembershipNone,
			}, nil
		}
		s.log.Error("failed to load membership", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return m, nil
}

// ListPending is restricted to the room creator.
func (s *MembershipService) ListPending(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.Membership, error) {
	const op = "service.membership.listPending"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(requester.ID) {
		return nil, ErrForbidden
	}

	pending, err := s.members.ListByStatus(ctx, roomID, domain.MembershipPending)
	if err != nil {
		s.log.Error("failed to list pending members", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return pending, nil
}

// ListApproved is visible to approved members.
func (s *MembershipService) ListApproved(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.Membership, error) {
	const op = "service.membership.listApproved"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if err := s.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	approved, err := s.members.ListByStatus(ctx, roomID, domain.MembershipApproved)
	if err != nil {
		s.log.Error("failed to list members", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return approved, nil
}

func (s *MembershipService) IsApprovedMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	m, err := s.members.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.IsApproved(), nil
}

// RequireApproved returns ErrForbidden unless userID is an approved member of roomID.
func (s *MembershipService) RequireApproved(ctx context.Context, roomID, userID uuid.UUID) error {
	ok, err := s.IsApprovedMember(ctx, roomID, userID)
	if err != nil {
		s.log.Error("membership check failed",
			slog.String("op", "service.membership.requireApproved"),
			slog.String("room_id", roomID.String()),
			sl.Err(err),
		)
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *MembershipService) loadRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		s.log.Error("failed to load room", slog.String("room_id", roomID.String()), sl.Err(err))
		return nil, err
	}
	return room, nil
}
