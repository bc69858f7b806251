package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const peerBufferSize = 16

// Peer is a live chat subscriber connected to one room.
type Peer struct {
	ID          string
	RoomID      uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	JoinedAt    time.Time

	mu     sync.Mutex
	closed bool
	Events chan ChatMessage
}

func NewPeer(roomID uuid.UUID, user *User) *Peer {
	p := &Peer{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		JoinedAt: time.Now().UTC(),
		Events:   make(chan ChatMessage, peerBufferSize),
	}
	if user != nil {
		p.UserID = user.ID
		p.DisplayName = user.Name
	}
	return p
}

// EnqueueEvent delivers msg without blocking. It reports false when the
// buffer is full or the peer is closed; the message is dropped for this peer.
func (p *Peer) EnqueueEvent(msg ChatMessage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.Events <- msg:
		return true
	default:
		return false
	}
}

func (p *Peer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.Events)
}
