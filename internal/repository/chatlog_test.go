package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryBuntLog(t *testing.T) *BuntChatLog {
	t.Helper()
	l, err := NewBuntChatLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func chatLogs(t *testing.T) map[string]ChatLog {
	return map[string]ChatLog{
		"buntdb": newMemoryBuntLog(t),
		"memory": NewInMemoryChatLog(),
	}
}

func TestChatLogRecentReturnsNewestAscending(t *testing.T) {
	for name, log := range chatLogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			room := uuid.New()
			author := domain.NewUser("ext", "Ann", "", "")

			for i := 0; i < 60; i++ {
				msg := domain.NewChatMessage(room, author, fmt.Sprintf("m%02d", i))
				require.NoError(t, log.Append(ctx, msg))
			}
			require.NoError(t, log.Append(ctx, domain.NewChatMessage(uuid.New(), author, "elsewhere")))

			recent, err := log.Recent(ctx, room, 50)
			require.NoError(t, err)
			require.Len(t, recent, 50)
			assert.Equal(t, "m10", recent[0].Content)
			assert.Equal(t, "m59", recent[49].Content)
			assert.Equal(t, "Ann", recent[0].DisplayName)

			for i := 1; i < len(recent); i++ {
				assert.True(t, recent[i].CreatedAt.After(recent[i-1].CreatedAt), "timestamps must strictly increase")
				assert.Equal(t, room, recent[i].RoomID)
			}

			empty, err := log.Recent(ctx, uuid.New(), 50)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestChatLogStrictlyIncreasingWithFrozenClock(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	bunt := newMemoryBuntLog(t)
	bunt.now = func() time.Time { return frozen }
	mem := NewInMemoryChatLog()
	mem.now = func() time.Time { return frozen }

	for name, log := range map[string]ChatLog{"buntdb": bunt, "memory": mem} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			room := uuid.New()

			var stamps []time.Time
			for i := 0; i < 5; i++ {
				msg := domain.NewChatMessage(room, nil, "tick")
				require.NoError(t, log.Append(ctx, msg))
				stamps = append(stamps, msg.CreatedAt)
			}

			assert.True(t, frozen.Equal(stamps[0]))
			for i := 1; i < len(stamps); i++ {
				assert.True(t, stamps[i-1].Add(time.Microsecond).Equal(stamps[i]))
			}
		})
	}
}

func TestBuntChatLogConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	log := newMemoryBuntLog(t)
	room := uuid.New()
	author := domain.NewUser("ext", "Ann", "", "")

	const writers = 200
	msgs := make([]*domain.ChatMessage, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := domain.NewChatMessage(room, author, fmt.Sprintf("w%03d", i))
			msg.ID = uuid.Nil
			errs[i] = log.Append(ctx, msg)
			msgs[i] = msg
		}(i)
	}
	wg.Wait()

	ids := make(map[uuid.UUID]struct{}, writers)
	for i, err := range errs {
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, msgs[i].ID)
		ids[msgs[i].ID] = struct{}{}
	}
	assert.Len(t, ids, writers)

	stored, err := log.Recent(ctx, room, writers)
	require.NoError(t, err)
	require.Len(t, stored, writers)
	for i := 1; i < len(stored); i++ {
		assert.True(t, stored[i].CreatedAt.After(stored[i-1].CreatedAt), "timestamps must strictly increase")
	}
}

func TestBuntChatLogResumesAfterReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")
	room := uuid.New()

	first, err := NewBuntChatLog(path)
	require.NoError(t, err)
	msg := domain.NewChatMessage(room, nil, "before restart")
	require.NoError(t, first.Append(ctx, msg))
	require.NoError(t, first.Close())

	second, err := NewBuntChatLog(path)
	require.NoError(t, err)
	defer second.Close()
	second.now = func() time.Time { return msg.CreatedAt.Add(-time.Hour) }

	next := domain.NewChatMessage(room, nil, "after restart")
	require.NoError(t, second.Append(ctx, next))
	assert.True(t, next.CreatedAt.After(msg.CreatedAt))

	recent, err := second.Recent(ctx, room, 50)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "before restart", recent[0].Content)
	assert.Equal(t, msg.ID, recent[0].ID)
}

func TestChatLogRejectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, log := range chatLogs(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, log.Append(ctx, domain.NewChatMessage(uuid.New(), nil, "x")), context.Canceled)
			_, err := log.Recent(ctx, uuid.New(), 10)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
