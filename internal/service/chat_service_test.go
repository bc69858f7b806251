package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequiresApprovedMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	stranger := f.user("stranger")
	room := f.room(owner, "Calc II", 0)

	_, err := f.chat.PostMessage(ctx, room.ID, stranger, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.chat.GetRecentMessages(ctx, room.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.chat.Subscribe(ctx, room.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChatValidatesText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	room := f.room(owner, "Calc II", 0)

	_, err := f.chat.PostMessage(ctx, room.ID, owner, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.chat.PostMessage(ctx, room.ID, owner, strings.Repeat("ü", maxChatMessageLength+1))
	assert.ErrorIs(t, err, ErrValidation)

	msg, err := f.chat.PostMessage(ctx, room.ID, owner, strings.Repeat("ü", maxChatMessageLength))
	require.NoError(t, err)
	assert.Equal(t, "owner", msg.DisplayName)

	trimmed, err := f.chat.PostMessage(ctx, room.ID, owner, "  hello \n")
	require.NoError(t, err)
	assert.Equal(t, "hello", trimmed.Content)
	assert.True(t, trimmed.CreatedAt.After(msg.CreatedAt))
}

func TestChatHistoryIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	room := f.room(owner, "Calc II", 0)

	for i := 0; i < 55; i++ {
		_, err := f.chat.PostMessage(ctx, room.ID, owner, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	msgs, err := f.chat.GetRecentMessages(ctx, room.ID, owner)
	require.NoError(t, err)
	require.Len(t, msgs, 50)
	assert.Equal(t, "msg 5", msgs[0].Content)
	assert.Equal(t, "msg 54", msgs[49].Content)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
	}
}

func TestChatSubscribersReceivePosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	kim := f.user("kim")
	room := f.room(owner, "Calc II", 0)
	other := f.room(owner, "Other", 0)
	f.member(room, owner, kim)

	peer, err := f.chat.Subscribe(ctx, room.ID, kim)
	require.NoError(t, err)
	assert.Equal(t, 1, f.chat.subscriberCount(room.ID))

	_, err = f.chat.PostMessage(ctx, other.ID, owner, "elsewhere")
	require.NoError(t, err)
	posted, err := f.chat.PostMessage(ctx, room.ID, owner, "hello kim")
	require.NoError(t, err)

	select {
	case got := <-peer.Events:
		assert.Equal(t, posted.ID, got.ID)
		assert.Equal(t, "hello kim", got.Content)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the message")
	}

	f.chat.Unsubscribe(peer)
	f.chat.Unsubscribe(peer)
	assert.Equal(t, 0, f.chat.subscriberCount(room.ID))

	_, open := <-peer.Events
	assert.False(t, open)

	_, err = f.chat.PostMessage(ctx, room.ID, owner, "after leave")
	require.NoError(t, err)
}

func TestChatSlowSubscriberDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user("owner")
	room := f.room(owner, "Calc II", 0)

	peer, err := f.chat.Subscribe(ctx, room.ID, owner)
	require.NoError(t, err)
	defer f.chat.Unsubscribe(peer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, err := f.chat.PostMessage(ctx, room.ID, owner, "spam")
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("posting blocked on a slow subscriber")
	}
	assert.Len(t, peer.Events, cap(peer.Events))
}
