package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry of a room's append-only chat log.
// CreatedAt is assigned by the log when the message is appended.
type ChatMessage struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Content     string
	CreatedAt   time.Time
}

func NewChatMessage(roomID uuid.UUID, author *User, content string) *ChatMessage {
	msg := &ChatMessage{
		ID:      uuid.New(),
		RoomID:  roomID,
		Content: content,
	}
	if author != nil {
		msg.UserID = author.ID
		msg.DisplayName = author.Name
	}
	return msg
}
