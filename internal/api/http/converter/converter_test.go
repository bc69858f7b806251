package converter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipPlaceholderHasNoID(t *testing.T) {
	resp := MembershipToApi(&domain.Membership{
		RoomID: uuid.New(),
		UserID: uuid.New(),
		Status: domain.MembershipNone,
	})
	assert.Nil(t, resp.ID)
	assert.Nil(t, resp.CreatedAt)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"joined_at":null`)
	assert.NotContains(t, string(raw), `"id"`)
}

func TestRoomDetailsCarriesOwnership(t *testing.T) {
	owner := uuid.New()
	room := domain.NewRoom("Calc II", "", "math", 0, owner)

	resp := RoomDetailsToApi(&service.RoomDetails{Room: room, IsOwner: true})
	require.NotNil(t, resp.IsOwner)
	assert.True(t, *resp.IsOwner)
	assert.Equal(t, domain.DefaultRoomCapacity, resp.Capacity)

	assert.Nil(t, RoomToApi(room).IsOwner)
}

func TestMediaURL(t *testing.T) {
	asset := domain.NewMediaAsset(uuid.New(), uuid.New(), "Lecture 1.PDF")
	resp := MediaToApi(asset)
	assert.Equal(t, "/api/media/"+asset.ID.String(), resp.URL)
	assert.Equal(t, "Lecture 1.PDF", resp.OriginalName)
}

func TestMindMapDefaultOmitsAuthor(t *testing.T) {
	resp := MindMapToApi(&domain.MindMap{RoomID: uuid.New(), Data: domain.EmptyMindMapData})
	assert.Nil(t, resp.UpdatedBy)

	saved := MindMapToApi(domain.NewMindMap(uuid.New(), uuid.New(), json.RawMessage(`{"nodes":[]}`)))
	require.NotNil(t, saved.UpdatedAt)
	assert.WithinDuration(t, time.Now(), *saved.UpdatedAt, time.Minute)
}
