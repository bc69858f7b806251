package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/tidwall/buntdb"
)

const chatIndex = "chat_room_ts"

// chatRecord is the stored form of a message. ts holds unix microseconds so
// it stays exact through the float64 comparisons of buntdb JSON indexes.
type chatRecord struct {
	ID     string `json:"id"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

// BuntChatLog keeps chat messages in buntdb ordered by (room_id, ts).
type BuntChatLog struct {
	db  *buntdb.DB
	now func() time.Time

	mu   sync.Mutex
	last map[uuid.UUID]int64
}

// NewBuntChatLog opens the log at path. Use ":memory:" for a non-persistent log.
func NewBuntChatLog(path string) (*BuntChatLog, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	err = db.CreateIndex(chatIndex, "chat:*", buntdb.IndexJSON("room_id"), buntdb.IndexJSON("ts"))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BuntChatLog{
		db:   db,
		now:  time.Now,
		last: make(map[uuid.UUID]int64),
	}, nil
}

func (l *BuntChatLog) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("chat message is nil")
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[msg.RoomID]
	if !ok {
		var err error
		last, err = l.lastStamp(msg.RoomID)
		if err != nil {
			return err
		}
	}

	ts := l.now().UnixMicro()
	if ts <= last {
		ts = last + 1
	}

	value, err := json.Marshal(chatRecord{
		ID:     msg.ID.String(),
		RoomID: msg.RoomID.String(),
		UserID: msg.UserID.String(),
		Name:   msg.DisplayName,
		Text:   msg.Content,
		TS:     ts,
	})
	if err != nil {
		return err
	}

	err = l.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(chatKey(msg.RoomID, msg.ID), string(value), nil)
		return err
	})
	if err != nil {
		return err
	}

	l.last[msg.RoomID] = ts
	msg.CreatedAt = time.UnixMicro(ts).UTC()
	return nil
}

func (l *BuntChatLog) Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*domain.ChatMessage{}, nil
	}

	newest := make([]*domain.ChatMessage, 0, limit)
	var decodeErr error
	err := l.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendLessOrEqual(chatIndex, roomPivot(roomID, math.MaxInt64), func(_, val string) bool {
			var rec chatRecord
			if err := json.Unmarshal([]byte(val), &rec); err != nil {
				decodeErr = err
				return false
			}
			if rec.RoomID != roomID.String() {
				return false
			}
			msg, err := rec.toDomain()
			if err != nil {
				decodeErr = err
				return false
			}
			newest = append(newest, msg)
			return len(newest) < limit
		})
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode chat record: %w", decodeErr)
	}

	for i, j := 0, len(newest)-1; i < j; i, j = i+1, j-1 {
		newest[i], newest[j] = newest[j], newest[i]
	}
	return newest, nil
}

func (l *BuntChatLog) Close() error {
	return l.db.Close()
}

// lastStamp reads the newest stored timestamp of a room, 0 when empty.
func (l *BuntChatLog) lastStamp(roomID uuid.UUID) (int64, error) {
	var last int64
	err := l.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendLessOrEqual(chatIndex, roomPivot(roomID, math.MaxInt64), func(_, val string) bool {
			var rec chatRecord
			if err := json.Unmarshal([]byte(val), &rec); err == nil && rec.RoomID == roomID.String() {
				last = rec.TS
			}
			return false
		})
	})
	return last, err
}

func chatKey(roomID, msgID uuid.UUID) string {
	return "chat:" + roomID.String() + ":" + msgID.String()
}

func roomPivot(roomID uuid.UUID, ts int64) string {
	return fmt.Sprintf(`{"room_id":%q,"ts":%d}`, roomID.String(), ts)
}

func (r chatRecord) toDomain() (*domain.ChatMessage, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	roomID, err := uuid.Parse(r.RoomID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.ChatMessage{
		ID:          id,
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: r.Name,
		Content:     r.Text,
		CreatedAt:   time.UnixMicro(r.TS).UTC(),
	}, nil
}
