package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/config"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, repo *PostgresUserRepository, name string) *domain.User {
	t.Helper()
	user := domain.NewUser("ext-"+uuid.NewString(), name, name+"@uni.edu", "")
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestPostgresUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresUserRepository(newTestDB(t))

	user := domain.NewUser("firebase-uid-1", "Ann", "ann@uni.edu", "")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByExternalID(ctx, "firebase-uid-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, domain.RoleStudent, got.Role)

	dup := domain.NewUser("firebase-uid-1", "Other", "", "")
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrUserExists)

	got.Name = "Ann B."
	got.Email = ""
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", reloaded.Name)
	assert.Empty(t, reloaded.Email)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.Update(ctx, domain.NewUser("x", "x", "", "")), ErrUserNotFound)
}

func TestPostgresRoomRepositoryCreateAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewPostgresUserRepository(db)
	rooms := NewPostgresRoomRepository(db)
	members := NewPostgresMembershipRepository(db)

	owner := seedUser(t, users, "owner")
	guest := seedUser(t, users, "guest")

	older := domain.NewRoom("Physics", "", "PHYS", 5, owner.ID)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, rooms.CreateWithOwner(ctx, older, domain.NewOwnerMembership(older.ID, owner.ID)))

	newer := domain.NewRoom("Calc II", "integrals", "MATH", 0, owner.ID)
	require.NoError(t, rooms.CreateWithOwner(ctx, newer, domain.NewOwnerMembership(newer.ID, owner.ID)))

	require.NoError(t, members.Create(ctx, domain.NewJoinRequest(newer.ID, guest.ID, "S1", "g@uni.edu")))
	_, err := members.Transition(ctx, newer.ID, guest.ID, domain.MembershipApproved, time.Now(), newer.Capacity)
	require.NoError(t, err)

	list, err := rooms.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, int64(2), list[0].MemberCount)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, int64(1), list[1].MemberCount)

	ownerRow, err := members.Get(ctx, newer.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipApproved, ownerRow.Status)
	assert.NotNil(t, ownerRow.JoinedAt)

	got, err := rooms.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRoomCapacity, got.Capacity)
	assert.Equal(t, "integrals", got.Description)

	_, err = rooms.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPostgresRoomRepositoryListEmpty(t *testing.T) {
	list, err := NewPostgresRoomRepository(newTestDB(t)).ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostgresMembershipRepositoryWorkflow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewPostgresUserRepository(db)
	rooms := NewPostgresRoomRepository(db)
	members := NewPostgresMembershipRepository(db)

	owner := seedUser(t, users, "owner")
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")

	room := domain.NewRoom("Small", "", "", 2, owner.ID)
	require.NoError(t, rooms.CreateWithOwner(ctx, room, domain.NewOwnerMembership(room.ID, owner.ID)))

	require.NoError(t, members.Create(ctx, domain.NewJoinRequest(room.ID, alice.ID, "A1", "alice@uni.edu")))
	assert.ErrorIs(t,
		members.Create(ctx, domain.NewJoinRequest(room.ID, alice.ID, "A1", "alice@uni.edu")),
		ErrMembershipExists)
	require.NoError(t, members.Create(ctx, domain.NewJoinRequest(room.ID, bob.ID, "B1", "bob@uni.edu")))

	pending, err := members.ListByStatus(ctx, room.ID, domain.MembershipPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "alice", pending[0].UserName)
	assert.Equal(t, "A1", pending[0].StudentNumber)

	approved, err := members.Transition(ctx, room.ID, alice.ID, domain.MembershipApproved, time.Now(), room.Capacity)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipApproved, approved.Status)
	require.NotNil(t, approved.JoinedAt)

	_, err = members.Transition(ctx, room.ID, alice.ID, domain.MembershipRejected, time.Now(), room.Capacity)
	assert.ErrorIs(t, err, ErrMembershipNotPending)

	_, err = members.Transition(ctx, room.ID, bob.ID, domain.MembershipApproved, time.Now(), room.Capacity)
	assert.ErrorIs(t, err, ErrRoomFull)

	rejected, err := members.Transition(ctx, room.ID, bob.ID, domain.MembershipRejected, time.Now(), room.Capacity)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipRejected, rejected.Status)
	assert.Nil(t, rejected.JoinedAt)

	_, err = members.Transition(ctx, room.ID, uuid.New(), domain.MembershipApproved, time.Now(), room.Capacity)
	assert.ErrorIs(t, err, ErrMembershipNotFound)

	_, err = members.Get(ctx, room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestPostgresMembershipRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewPostgresUserRepository(db)
	rooms := NewPostgresRoomRepository(db)
	members := NewPostgresMembershipRepository(db)

	owner := seedUser(t, users, "owner")
	alice := seedUser(t, users, "alice")
	room := domain.NewRoom("Busy", "", "", 10, owner.ID)
	require.NoError(t, rooms.CreateWithOwner(ctx, room, domain.NewOwnerMembership(room.ID, owner.ID)))

	const workers = 20
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = members.Create(ctx, domain.NewJoinRequest(room.ID, alice.ID, "A1", "alice@uni.edu"))
		}(i)
	}
	wg.Wait()

	var created, exists int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrMembershipExists):
			exists++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, exists)

	pending, err := members.ListByStatus(ctx, room.ID, domain.MembershipPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPostgresMembershipRepositoryConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewPostgresUserRepository(db)
	rooms := NewPostgresRoomRepository(db)
	members := NewPostgresMembershipRepository(db)

	owner := seedUser(t, users, "owner")
	room := domain.NewRoom("Pair", "", "", 2, owner.ID)
	require.NoError(t, rooms.CreateWithOwner(ctx, room, domain.NewOwnerMembership(room.ID, owner.ID)))

	const applicants = 10
	ids := make([]uuid.UUID, applicants)
	for i := range ids {
		u := seedUser(t, users, "student")
		ids[i] = u.ID
		require.NoError(t, members.Create(ctx, domain.NewJoinRequest(room.ID, u.ID, "S", "")))
	}

	errs := make([]error, applicants)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = members.Transition(ctx, room.ID, id, domain.MembershipApproved, time.Now(), room.Capacity)
		}(i, id)
	}
	wg.Wait()

	var approved, full int
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, ErrRoomFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, applicants-1, full)

	list, err := members.ListByStatus(ctx, room.ID, domain.MembershipApproved)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOpenPinsSqliteToOneConnection(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 25,
	}, nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestGormLoggerHidesBoundValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, log)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	users := NewPostgresUserRepository(db)
	user := domain.NewUser("ext-hidden", "Hidden", "hidden.student@uni.edu", "")
	require.NoError(t, users.Create(ctx, user))
	buf.Reset()

	assert.ErrorIs(t, users.Create(ctx, domain.NewUser("ext-hidden", "Hidden", "hidden.student@uni.edu", "")), ErrUserExists)
	_, err = users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, buf.String(), "expected outcomes are not logged")

	err = db.WithContext(ctx).Exec("INSERT INTO missing_table (email) VALUES (?)", "hidden.student@uni.edu").Error
	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, "query failed")
	assert.Contains(t, out, "missing_table")
	assert.False(t, strings.Contains(out, "hidden.student@uni.edu"), "bound values must not reach the log")
}

func TestPostgresMediaRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewPostgresUserRepository(db)
	media := NewPostgresMediaRepository(db)

	uploader := seedUser(t, users, "carol")
	roomID := uuid.New()

	first := domain.NewMediaAsset(roomID, uploader.ID, "a.pdf")
	first.UploadedAt = time.Now().UTC().Add(-time.Minute)
	first.FilePath = first.FileName
	first.Size = 10
	second := domain.NewMediaAsset(roomID, uploader.ID, "b.png")
	second.FilePath = second.FileName
	require.NoError(t, media.Create(ctx, first))
	require.NoError(t, media.Create(ctx, second))
	require.NoError(t, media.Create(ctx, domain.NewMediaAsset(uuid.New(), uploader.ID, "other.txt")))

	list, err := media.ListByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "carol", list[0].UploaderName)

	got, err := media.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Size)
	assert.Equal(t, "a.pdf", got.OriginalName)

	_, err = media.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestPostgresMindMapRepositoryLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresMindMapRepository(newTestDB(t))
	roomID := uuid.New()

	_, err := repo.Get(ctx, roomID)
	assert.ErrorIs(t, err, ErrMindMapNotFound)

	a := json.RawMessage(`{"nodes":[{"id":"a"}],"connections":[]}`)
	b := json.RawMessage(`{"nodes":[{"id":"b"}],"connections":[]}`)
	require.NoError(t, repo.Upsert(ctx, domain.NewMindMap(roomID, uuid.New(), a)))
	require.NoError(t, repo.Upsert(ctx, domain.NewMindMap(roomID, uuid.New(), b)))

	got, err := repo.Get(ctx, roomID)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(got.Data))
}
