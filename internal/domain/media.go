package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaAsset is the metadata row of a file shared in a room.
type MediaAsset struct {
	ID           uuid.UUID
	RoomID       uuid.UUID
	UserID       uuid.UUID
	FileName     string
	OriginalName string
	FileType     string
	Size         int64
	FilePath     string
	UploadedAt   time.Time

	UploaderName string
}

func NewMediaAsset(roomID, userID uuid.UUID, originalName string) *MediaAsset {
	id := uuid.New()
	return &MediaAsset{
		ID:           id,
		RoomID:       roomID,
		UserID:       userID,
		FileName:     strings.ReplaceAll(id.String(), "-", "") + Extension(originalName),
		OriginalName: originalName,
		UploadedAt:   time.Now().UTC(),
	}
}

// Extension returns the lower-cased extension of name including the dot, or "".
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// SanitizeFileName strips any directory part and characters unsafe in a
// Content-Disposition header.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, r == '"', r == '/':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
