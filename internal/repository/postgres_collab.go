package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/repository/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMediaRepository struct {
	db *gorm.DB
}

func NewPostgresMediaRepository(db *gorm.DB) *PostgresMediaRepository {
	return &PostgresMediaRepository{db: db}
}

func (r *PostgresMediaRepository) Create(ctx context.Context, asset *domain.MediaAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if asset == nil {
		return errors.New("media asset is nil")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(toModelMedia(asset)).Error
}

func (r *PostgresMediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row model.StudyRoomMedia
	err := r.db.WithContext(ctx).Preload("User").First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return toDomainMedia(&row), nil
}

func (r *PostgresMediaRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []model.StudyRoomMedia
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("uploaded_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.MediaAsset, 0, len(rows))
	for i := range rows {
		result = append(result, toDomainMedia(&rows[i]))
	}
	return result, nil
}

type PostgresMindMapRepository struct {
	db *gorm.DB
}

func NewPostgresMindMapRepository(db *gorm.DB) *PostgresMindMapRepository {
	return &PostgresMindMapRepository{db: db}
}

func (r *PostgresMindMapRepository) Get(ctx context.Context, roomID uuid.UUID) (*domain.MindMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row model.StudyRoomMindMap
	err := r.db.WithContext(ctx).First(&row, "room_id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMindMapNotFound
		}
		return nil, err
	}

	return &domain.MindMap{
		RoomID:    row.RoomID,
		Data:      []byte(row.Data),
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

// Upsert replaces the room's document. Concurrent saves resolve as last writer wins.
func (r *PostgresMindMapRepository) Upsert(ctx context.Context, mindMap *domain.MindMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mindMap == nil {
		return errors.New("mind map is nil")
	}

	row := &model.StudyRoomMindMap{
		ID:        uuid.New(),
		RoomID:    mindMap.RoomID,
		Data:      datatypes.JSON(mindMap.Data),
		UpdatedBy: mindMap.UpdatedBy,
		UpdatedAt: mindMap.UpdatedAt.UTC(),
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_by", "updated_at"}),
		}).
		Create(row).Error
}

func toModelMedia(asset *domain.MediaAsset) *model.StudyRoomMedia {
	return &model.StudyRoomMedia{
		ID:           asset.ID,
		RoomID:       asset.RoomID,
		UserID:       asset.UserID,
		FileName:     asset.FileName,
		OriginalName: asset.OriginalName,
		FileType:     asset.FileType,
		Size:         asset.Size,
		FilePath:     asset.FilePath,
		UploadedAt:   asset.UploadedAt.UTC(),
	}
}

func toDomainMedia(row *model.StudyRoomMedia) *domain.MediaAsset {
	asset := &domain.MediaAsset{
		ID:           row.ID,
		RoomID:       row.RoomID,
		UserID:       row.UserID,
		FileName:     row.FileName,
		OriginalName: row.OriginalName,
		FileType:     row.FileType,
		Size:         row.Size,
		FilePath:     row.FilePath,
		UploadedAt:   row.UploadedAt.UTC(),
	}
	if row.User != nil {
		asset.UploaderName = row.User.Name
	}
	return asset
}

