package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomMakesCreatorApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")

	room, err := f.rooms.CreateRoom(ctx, owner, CreateRoomInput{Name: "  Calc II ", Subject: "MATH"})
	require.NoError(t, err)
	assert.Equal(t, "Calc II", room.Name)
	assert.Equal(t, domain.DefaultRoomCapacity, room.Capacity)

	status, err := f.memberships.GetMembershipStatus(ctx, room.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipApproved, status.Status)
	assert.NotNil(t, status.JoinedAt)

	details, err := f.rooms.GetRoom(ctx, room.ID, owner)
	require.NoError(t, err)
	assert.True(t, details.IsOwner)
}

func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")

	cases := map[string]CreateRoomInput{
		"empty name":        {Name: "   "},
		"long name":         {Name: strings.Repeat("n", 256)},
		"long subject":      {Name: "ok", Subject: strings.Repeat("s", 101)},
		"negative capacity": {Name: "ok", Capacity: -1},
		"huge capacity":     {Name: "ok", Capacity: 501},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.rooms.CreateRoom(context.Background(), owner, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	rooms, err := f.rooms.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestGetRoomAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	stranger := f.user("stranger")
	applicant := f.user("applicant")
	room := f.room(owner, "Bio", 0)

	_, err := f.rooms.GetRoom(ctx, room.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.memberships.RequestJoin(ctx, room.ID, applicant, JoinRequestInput{StudentNumber: "1", StudentEmail: "a@uni.edu"})
	require.NoError(t, err)
	_, err = f.rooms.GetRoom(ctx, room.ID, applicant)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.rooms.GetRoom(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.memberships.DecideMembership(ctx, room.ID, applicant.ID, domain.MembershipApproved, owner)
	require.NoError(t, err)
	details, err := f.rooms.GetRoom(ctx, room.ID, applicant)
	require.NoError(t, err)
	assert.False(t, details.IsOwner)
}

func TestListRoomsCountsApprovedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	room := f.room(owner, "Chem", 0)
	f.member(room, owner, f.user("m1"))

	pending := f.user("pending")
	_, err := f.memberships.RequestJoin(ctx, room.ID, pending, JoinRequestInput{StudentNumber: "2", StudentEmail: "p@uni.edu"})
	require.NoError(t, err)

	rooms, err := f.rooms.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, int64(2), rooms[0].MemberCount)
}
