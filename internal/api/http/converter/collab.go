package converter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
)

type ChatMessageResponse struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

func ChatMessageToApi(m *domain.ChatMessage) *ChatMessageResponse {
	return &ChatMessageResponse{
		ID:          m.ID,
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Text:        m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func ChatMessagesToApi(msgs []*domain.ChatMessage) []*ChatMessageResponse {
	out := make([]*ChatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessageToApi(m))
	}
	return out
}

type MediaResponse struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	UserID       uuid.UUID `json:"user_id"`
	UploaderName string    `json:"uploader_name,omitempty"`
	OriginalName string    `json:"original_name"`
	FileType     string    `json:"file_type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func MediaURL(id uuid.UUID) string {
	return "/api/media/" + id.String()
}

func MediaToApi(a *domain.MediaAsset) *MediaResponse {
	return &MediaResponse{
		ID:           a.ID,
		RoomID:       a.RoomID,
		UserID:       a.UserID,
		UploaderName: a.UploaderName,
		OriginalName: a.OriginalName,
		FileType:     a.FileType,
		Size:         a.Size,
		URL:          MediaURL(a.ID),
		UploadedAt:   a.UploadedAt,
	}
}

func MediaListToApi(assets []*domain.MediaAsset) []*MediaResponse {
	out := make([]*MediaResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, MediaToApi(a))
	}
	return out
}

type MindMapResponse struct {
	RoomID    uuid.UUID       `json:"room_id"`
	Data      json.RawMessage `json:"data"`
	UpdatedBy *uuid.UUID      `json:"updated_by,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

func MindMapToApi(m *domain.MindMap) *MindMapResponse {
	resp := &MindMapResponse{RoomID: m.RoomID, Data: m.Data}
	if m.UpdatedBy != uuid.Nil {
		by, at := m.UpdatedBy, m.UpdatedAt
		resp.UpdatedBy = &by
		resp.UpdatedAt = &at
	}
	return resp
}
