package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalID string    `gorm:"size:128;uniqueIndex;not null"`
	Name       string    `gorm:"size:255;not null"`
	Email      *string   `gorm:"size:255"`
	Role       string    `gorm:"size:32;not null;default:student"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

type StudyRoom struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Subject     string    `gorm:"size:100"`
	Capacity    int       `gorm:"not null;default:10"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
	IsActive    bool      `gorm:"not null;index"`
}

func (StudyRoom) TableName() string { return "study_rooms" }

type StudyRoomMember struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoomID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_room_member"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_room_member"`
	StudentNumber *string    `gorm:"size:50"`
	StudentEmail  *string    `gorm:"size:255"`
	Status        string     `gorm:"size:16;not null;index"`
	JoinedAt      *time.Time
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
	User          *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Room          *StudyRoom `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (StudyRoomMember) TableName() string { return "study_room_members" }

type StudyRoomMedia struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoomID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	FileName     string     `gorm:"size:255;not null;uniqueIndex"`
	OriginalName string     `gorm:"size:255"`
	FileType     string     `gorm:"size:100"`
	Size         int64      `gorm:"not null"`
	FilePath     string     `gorm:"size:512;not null"`
	UploadedAt   time.Time  `gorm:"not null;index"`
	User         *User      `gorm:"foreignKey:UserID"`
	Room         *StudyRoom `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (StudyRoomMedia) TableName() string { return "study_room_media" }

type StudyRoomMindMap struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	Data      datatypes.JSON `gorm:"not null"`
	UpdatedBy uuid.UUID      `gorm:"type:uuid"`
	UpdatedAt time.Time      `gorm:"not null"`
	Room      *StudyRoom     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (StudyRoomMindMap) TableName() string { return "study_room_mindmaps" }

// All lists every table in migration order.
func All() []any {
	return []any{
		&User{},
		&StudyRoom{},
		&StudyRoomMember{},
		&StudyRoomMedia{},
		&StudyRoomMindMap{},
	}
}
