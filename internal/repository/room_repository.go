package repository

import (
	"context"
	"errors"
	"time"

	"agency-portal/internal/domain/room"
	portal_errors "agency-portal/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, rm *room.Room) error {
	res := r.db.WithContext(ctx).Create(rm)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return portal_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (room.Room, error) {
	var rm room.Room
	err := r.db.WithContext(ctx).
		Preload("Participants", "is_active = ?", true).
		Where("id = ?", id).
		First(&rm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Room{}, portal_errors.ErrNotFound
		}
		return room.Room{}, err
	}
	return rm, nil
}

func (r *PostgresRoomRepository) Update(ctx context.Context, rm room.Room) error {
	res := r.db.WithContext(ctx).Save(&rm)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return portal_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&room.Room{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": deletedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return portal_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) GetUserRooms(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	var rooms []room.Room

	subQuery := r.db.Model(&room.Participant{}).
		Select("room_id").
		Where("user_id = ? AND is_active = ?", userID, true)

	err := r.db.WithContext(ctx).
		Preload("Participants", "is_active = ?", true).
		Where("id IN (?) AND is_active = ?", subQuery, true).
		Order("last_message_at DESC NULLS LAST").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *PostgresRoomRepository) GetByEntity(ctx context.Context, kind room.EntityKind, entityID uuid.UUID) (room.Room, error) {
	var column string
	switch kind {
	case room.EntityClient:
		column = "client_id"
	case room.EntityContract:
		column = "contract_id"
	case room.EntityProposal:
		column = "proposal_id"
	default:
		return room.Room{}, portal_errors.ErrInvalidInput
	}

	var rm room.Room
	err := r.db.WithContext(ctx).
		Where(column+" = ? AND is_active = ?", entityID, true).
		First(&rm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Room{}, portal_errors.ErrNotFound
		}
		return room.Room{}, err
	}
	return rm, nil
}

func (r *PostgresRoomRepository) TouchLastMessageAt(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&room.Room{}).
		Where("id = ?", roomID).
		Update("last_message_at", at).Error
}

func (r *PostgresRoomRepository) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (room.Participant, error) {
	var p room.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Participant{}, portal_errors.ErrNotFound
		}
		return room.Participant{}, err
	}
	return p, nil
}

func (r *PostgresRoomRepository) GetParticipants(ctx context.Context, roomID uuid.UUID) ([]room.Participant, error) {
	var participants []room.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresRoomRepository) AddParticipant(ctx context.Context, p *room.Participant) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return portal_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

// ReplaceParticipants implements the full-replace membership update:
// deactivate all active rows, then insert the new set. Atomic so a failed
// insert never leaves the room without members.
func (r *PostgresRoomRepository) ReplaceParticipants(ctx context.Context, roomID uuid.UUID, next []room.Participant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&room.Participant{}).
			Where("room_id = ? AND is_active = ?", roomID, true).
			Updates(map[string]interface{}{
				"is_active":  false,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		for i := range next {
			if err := tx.Create(&next[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRoomRepository) MarkRead(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&room.Participant{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Updates(map[string]interface{}{
			"last_read_at": at,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return portal_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) CountParticipants(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&room.Participant{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&count).Error
	return count, err
}
