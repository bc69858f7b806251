package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EmptyMindMapData is returned for rooms that never saved a mind-map.
var EmptyMindMapData = json.RawMessage(`{"nodes":[],"connections":[]}`)

// MindMap is the single shared JSON document of a room. Saves replace it whole.
type MindMap struct {
	RoomID    uuid.UUID
	Data      json.RawMessage
	UpdatedBy uuid.UUID
	UpdatedAt time.Time
}

func NewMindMap(roomID, author uuid.UUID, data json.RawMessage) *MindMap {
	return &MindMap{
		RoomID:    roomID,
		Data:      data,
		UpdatedBy: author,
		UpdatedAt: time.Now().UTC(),
	}
}
