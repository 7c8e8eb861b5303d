package repository

import (
	"context"
	"errors"
	"time"

	"agency-portal/internal/domain/message"
	portal_errors "agency-portal/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		atts := m.Attachments
		m.Attachments = nil
		res := tx.Create(m)
		m.Attachments = atts
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return portal_errors.ErrAlreadyExists
			}
			return res.Error
		}
		for i := range atts {
			atts[i].MessageID = m.ID
			if err := tx.Create(&atts[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, portal_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, updatedBy uuid.UUID) (message.Message, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return message.Message{}, res.Error
	}
	if res.RowsAffected == 0 {
		return message.Message{}, portal_errors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) (message.Message, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"updated_by": deletedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return message.Message{}, res.Error
	}
	if res.RowsAffected == 0 {
		return message.Message{}, portal_errors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresMessageRepository) GetRoomMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("room_id = ? AND is_deleted = ?", roomID, false)

	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) GetLatestMessage(ctx context.Context, roomID uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_deleted = ?", roomID, false).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, portal_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

// CountUnread counts non-deleted messages strictly newer than since. A zero
// since means the participant has never read the room.
func (r *PostgresMessageRepository) CountUnread(ctx context.Context, roomID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("room_id = ? AND is_deleted = ?", roomID, false)
	if !since.IsZero() {
		q = q.Where("created_at > ?", since)
	}
	err := q.Count(&count).Error
	return count, err
}
