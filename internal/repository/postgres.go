package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) CreateWithOwner(ctx context.Context, room *domain.Room, owner *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil || owner == nil {
		return errors.New("room and owner membership are required")
	}

	roomModel := toModelRoom(room)
	memberModel := toModelMembership(owner)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(roomModel).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(memberModel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrMembershipExists
			}
			return err
		}
		return nil
	})
}

// GetByID returns active rooms only; inactive rooms read as missing.
func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.StudyRoom
	err := r.db.WithContext(ctx).First(&room, "id = ? AND is_active = ?", id, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rooms []model.StudyRoom
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return []*domain.Room{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rooms))
	for i := range rooms {
		ids = append(ids, rooms[i].ID)
	}

	var counts []struct {
		RoomID uuid.UUID
		Total  int64
	}
	err = r.db.WithContext(ctx).
		Model(&model.StudyRoomMember{}).
		Select("room_id, COUNT(*) AS total").
		Where("room_id IN ? AND status = ?", ids, string(domain.MembershipApproved)).
		Group("room_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byRoom := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byRoom[c.RoomID] = c.Total
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		room := toDomainRoom(&rooms[i])
		room.MemberCount = byRoom[room.ID]
		result = append(result, room)
	}

	return result, nil
}

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	userModel := toModelUser(user)

	if err := r.db.WithContext(ctx).Create(userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PostgresUserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.first(ctx, "external_id = ?", externalID)
}

func (r *PostgresUserRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toDomainUser(&user), nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	userModel := toModelUser(user)

	updateData := map[string]any{
		"name":       userModel.Name,
		"role":       userModel.Role,
		"updated_at": userModel.UpdatedAt,
	}

	if userModel.Email == nil {
		updateData["email"] = gorm.Expr("NULL")
	} else {
		updateData["email"] = userModel.Email
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userModel.ID).Updates(updateData)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func toModelRoom(room *domain.Room) *model.StudyRoom {
	return &model.StudyRoom{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		Subject:     room.Subject,
		Capacity:    room.Capacity,
		CreatedBy:   room.CreatedBy,
		CreatedAt:   room.CreatedAt.UTC(),
		IsActive:    room.IsActive,
	}
}

func toDomainRoom(room *model.StudyRoom) *domain.Room {
	return &domain.Room{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		Subject:     room.Subject,
		Capacity:    room.Capacity,
		CreatedBy:   room.CreatedBy,
		CreatedAt:   room.CreatedAt.UTC(),
		IsActive:    room.IsActive,
	}
}

func toModelUser(user *domain.User) *model.User {
	return &model.User{
		ID:         user.ID,
		ExternalID: user.ExternalID,
		Name:       user.Name,
		Email:      optionalString(user.Email),
		Role:       user.Role,
		CreatedAt:  user.CreatedAt.UTC(),
		UpdatedAt:  user.UpdatedAt.UTC(),
	}
}

func toDomainUser(user *model.User) *domain.User {
	return &domain.User{
		ID:         user.ID,
		ExternalID: user.ExternalID,
		Name:       user.Name,
		Email:      derefString(user.Email),
		Role:       user.Role,
		CreatedAt:  user.CreatedAt.UTC(),
		UpdatedAt:  user.UpdatedAt.UTC(),
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
