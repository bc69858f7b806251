package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/auth"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/internal/storage"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fixture struct {
	t        *testing.T
	store    *repository.InMemoryStore
	verifier *auth.HMACVerifier
	blobDir  string

	users       *UserService
	rooms       *RoomService
	memberships *MembershipService
	chat        *ChatService
	media       *MediaService
	mindMaps    *MindMapService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewInMemoryStore()
	verifier, err := auth.NewHMACVerifier(testSecret)
	require.NoError(t, err)

	blobDir := t.TempDir()
	blobs, err := storage.NewLocalStore(blobDir)
	require.NoError(t, err)

	memberships := NewMembershipService(store.Rooms(), store.Memberships(), nil)
	return &fixture{
		t:           t,
		store:       store,
		verifier:    verifier,
		blobDir:     blobDir,
		users:       NewUserService(store.Users(), verifier, nil),
		rooms:       NewRoomService(store.Rooms(), store.Memberships(), nil),
		memberships: memberships,
		chat:        NewChatService(repository.NewInMemoryChatLog(), memberships, 50, nil),
		media: NewMediaService(store.Rooms(), store.Media(), blobs, memberships, MediaOptions{
			MaxSize:           1024,
			AllowedExtensions: []string{"pdf", "doc", "docx", "jpg", "png", "mp4", "mov", "txt"},
		}, nil),
		mindMaps: NewMindMapService(store.MindMaps(), memberships, nil),
	}
}

func (f *fixture) token(subject, name string) string {
	f.t.Helper()
	tok, err := f.verifier.Sign(auth.Identity{Subject: subject, Name: name, Email: subject + "@uni.edu"}, time.Hour)
	require.NoError(f.t, err)
	return tok
}

// user registers and returns a fresh local user.
func (f *fixture) user(name string) *domain.User {
	f.t.Helper()
	u, created, err := f.users.Register(context.Background(), f.token("uid-"+uuid.NewString(), name), RegisterInput{Name: name})
	require.NoError(f.t, err)
	require.True(f.t, created)
	return u
}

func (f *fixture) room(owner *domain.User, name string, capacity int) *domain.Room {
	f.t.Helper()
	r, err := f.rooms.CreateRoom(context.Background(), owner, CreateRoomInput{Name: name, Capacity: capacity})
	require.NoError(f.t, err)
	return r
}

// member makes u an approved member of room.
func (f *fixture) member(room *domain.Room, owner, u *domain.User) {
	f.t.Helper()
	ctx := context.Background()
	_, err := f.memberships.RequestJoin(ctx, room.ID, u, JoinRequestInput{StudentNumber: "S-" + u.Name, StudentEmail: "member@uni.edu"})
	require.NoError(f.t, err)
	_, err = f.memberships.DecideMembership(ctx, room.ID, u.ID, domain.MembershipApproved, owner)
	require.NoError(f.t, err)
}
