package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type RoomRepository interface {
	// CreateWithOwner stores the room and its creator's approved membership atomically.
	CreateWithOwner(ctx context.Context, room *domain.Room, owner *domain.Membership) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	// ListActive returns active rooms newest first with their approved member counts.
	ListActive(ctx context.Context) ([]*domain.Room, error)
}

type MembershipRepository interface {
	Create(ctx context.Context, membership *domain.Membership) error
	Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error)
	ListByStatus(ctx context.Context, roomID uuid.UUID, status domain.MembershipStatus) ([]*domain.Membership, error)
	// Transition moves a pending membership to status. Approvals are refused
	// with ErrRoomFull once approved members reach capacity.
	Transition(ctx context.Context, roomID, userID uuid.UUID, status domain.MembershipStatus, at time.Time, capacity int) (*domain.Membership, error)
}

type MediaRepository interface {
	Create(ctx context.Context, asset *domain.MediaAsset) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaAsset, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaAsset, error)
}

type MindMapRepository interface {
	Get(ctx context.Context, roomID uuid.UUID) (*domain.MindMap, error)
	Upsert(ctx context.Context, mindMap *domain.MindMap) error
}

// ChatLog is an append-only per-room message log.
type ChatLog interface {
	// Append stamps msg.CreatedAt so that timestamps strictly increase within a room.
	Append(ctx context.Context, msg *domain.ChatMessage) error
	// Recent returns up to limit newest messages of the room in ascending order.
	Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]*domain.ChatMessage, error)
}

var (
	_ UserRepository       = (*PostgresUserRepository)(nil)
	_ RoomRepository       = (*PostgresRoomRepository)(nil)
	_ MembershipRepository = (*PostgresMembershipRepository)(nil)
	_ MediaRepository      = (*PostgresMediaRepository)(nil)
	_ MindMapRepository    = (*PostgresMindMapRepository)(nil)
	_ ChatLog              = (*BuntChatLog)(nil)

	_ UserRepository       = (*InMemoryUserRepository)(nil)
	_ RoomRepository       = (*InMemoryRoomRepository)(nil)
	_ MembershipRepository = (*InMemoryMembershipRepository)(nil)
	_ MediaRepository      = (*InMemoryMediaRepository)(nil)
	_ MindMapRepository    = (*InMemoryMindMapRepository)(nil)
	_ ChatLog              = (*InMemoryChatLog)(nil)
)
