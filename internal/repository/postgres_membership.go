package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMembershipRepository struct {
	db *gorm.DB
}

func NewPostgresMembershipRepository(db *gorm.DB) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{db: db}
}

// Create inserts a membership row. The (room_id, user_id) unique index makes
// concurrent duplicate requests fail with ErrMembershipExists.
func (r *PostgresMembershipRepository) Create(ctx context.Context, membership *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if membership == nil {
		return errors.New("membership is nil")
	}

	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(toModelMembership(membership)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrMembershipExists
		}
		return err
	}
	return nil
}

func (r *PostgresMembershipRepository) Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return getMembership(r.db.WithContext(ctx), roomID, userID)
}

func (r *PostgresMembershipRepository) ListByStatus(ctx context.Context, roomID uuid.UUID, status domain.MembershipStatus) ([]*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []model.StudyRoomMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ? AND status = ?", roomID, string(status)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Membership, 0, len(rows))
	for i := range rows {
		result = append(result, toDomainMembership(&rows[i]))
	}
	return result, nil
}

func (r *PostgresMembershipRepository) Transition(ctx context.Context, roomID, userID uuid.UUID, status domain.MembershipStatus, at time.Time, capacity int) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *domain.Membership
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if status == domain.MembershipApproved && capacity > 0 {
			// sqlite runs on a single connection (see Open), which already
			// serializes transactions
			if tx.Dialector.Name() == "postgres" {
				// serialize approvals of one room so the capacity check holds
				var room model.StudyRoom
				err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					Select("id").
					First(&room, "id = ?", roomID).Error
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}

			var approved int64
			err := tx.Model(&model.StudyRoomMember{}).
				Where("room_id = ? AND status = ?", roomID, string(domain.MembershipApproved)).
				Count(&approved).Error
			if err != nil {
				return err
			}
			if approved >= int64(capacity) {
				return ErrRoomFull
			}
		}

		updates := map[string]any{
			"status":     string(status),
			"updated_at": at.UTC(),
		}
		if status == domain.MembershipApproved {
			updates["joined_at"] = at.UTC()
		}

		res := tx.Model(&model.StudyRoomMember{}).
			Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, string(domain.MembershipPending)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := getMembership(tx, roomID, userID); err != nil {
				return err
			}
			return ErrMembershipNotPending
		}

		m, err := getMembership(tx, roomID, userID)
		if err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func getMembership(db *gorm.DB, roomID, userID uuid.UUID) (*domain.Membership, error) {
	var row model.StudyRoomMember
	err := db.Preload("User").First(&row, "room_id = ? AND user_id = ?", roomID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return toDomainMembership(&row), nil
}

func toModelMembership(m *domain.Membership) *model.StudyRoomMember {
	var joinedAt *time.Time
	if m.JoinedAt != nil {
		t := m.JoinedAt.UTC()
		joinedAt = &t
	}
	return &model.StudyRoomMember{
		ID:            m.ID,
		RoomID:        m.RoomID,
		UserID:        m.UserID,
		StudentNumber: optionalString(m.StudentNumber),
		StudentEmail:  optionalString(m.StudentEmail),
		Status:        string(m.Status),
		JoinedAt:      joinedAt,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func toDomainMembership(row *model.StudyRoomMember) *domain.Membership {
	var joinedAt *time.Time
	if row.JoinedAt != nil {
		t := row.JoinedAt.UTC()
		joinedAt = &t
	}
	m := &domain.Membership{
		ID:            row.ID,
		RoomID:        row.RoomID,
		UserID:        row.UserID,
		StudentNumber: derefString(row.StudentNumber),
		StudentEmail:  derefString(row.StudentEmail),
		Status:        domain.MembershipStatus(row.Status),
		JoinedAt:      joinedAt,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
	if row.User != nil {
		m.UserName = row.User.Name
	}
	return m
}
