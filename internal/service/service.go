package service

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
)

type UserInteractor interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
	Register(ctx context.Context, token string, in RegisterInput) (*domain.User, bool, error)
	UpdateProfile(ctx context.Context, user *domain.User, in RegisterInput) (*domain.User, error)
}

type RoomInteractor interface {
	CreateRoom(ctx context.Context, requester *domain.User, in CreateRoomInput) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	GetRoom(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*RoomDetails, error)
}

type MembershipInteractor interface {
	RequestJoin(ctx context.Context, roomID uuid.UUID, requester *domain.User, in JoinRequestInput) (*domain.Membership, error)
	DecideMembership(ctx context.Context, roomID, targetUserID uuid.UUID, decision domain.MembershipStatus, requester *domain.User) (*domain.Membership, error)
	GetMembershipStatus(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*domain.Membership, error)
	ListPending(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.Membership, error)
	ListApproved(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.Membership, error)
	IsApprovedMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

type ChatInteractor interface {
	PostMessage(ctx context.Context, roomID uuid.UUID, requester *domain.User, text string) (*domain.ChatMessage, error)
	GetRecentMessages(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.ChatMessage, error)
	Subscribe(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*domain.Peer, error)
	Unsubscribe(peer *domain.Peer)
}

type MediaInteractor interface {
	UploadMedia(ctx context.Context, roomID uuid.UUID, requester *domain.User, in UploadInput) (*domain.MediaAsset, error)
	ListMedia(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.MediaAsset, error)
	OpenMedia(ctx context.Context, mediaID uuid.UUID, requester *domain.User) (*domain.MediaAsset, *os.File, error)
}

type MindMapInteractor interface {
	GetMindMap(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*domain.MindMap, error)
	SaveMindMap(ctx context.Context, roomID uuid.UUID, requester *domain.User, payload json.RawMessage) (*domain.MindMap, error)
}

// AccessChecker is the approved-member predicate shared by the collaboration services.
type AccessChecker interface {
	RequireApproved(ctx context.Context, roomID, userID uuid.UUID) error
}

var (
	_ UserInteractor       = (*UserService)(nil)
	_ RoomInteractor       = (*RoomService)(nil)
	_ MembershipInteractor = (*MembershipService)(nil)
	_ AccessChecker        = (*MembershipService)(nil)
	_ ChatInteractor       = (*ChatService)(nil)
	_ MediaInteractor      = (*MediaService)(nil)
	_ MindMapInteractor    = (*MindMapService)(nil)
)
