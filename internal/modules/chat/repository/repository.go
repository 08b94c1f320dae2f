package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository interface {
	WithTx(tx *gorm.DB) ChatRepository

	FindOrCreateDialog(ctx context.Context, dialog *entity.Dialog) (*entity.Dialog, bool, error)
	FindDialogByID(ctx context.Context, id uuid.UUID) (*entity.Dialog, error)
	ListDialogsForUser(ctx context.Context, userID uuid.UUID) ([]entity.Dialog, error)
	ListRecentDialogs(ctx context.Context, limit int) ([]entity.Dialog, error)
	DialogsForListing(ctx context.Context, listingID uuid.UUID) ([]entity.Dialog, error)
	TouchDialog(ctx context.Context, dialogID uuid.UUID, at time.Time) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, dialogID uuid.UUID) ([]entity.Message, error)
	MarkDialogRead(ctx context.Context, dialogID, readerID uuid.UUID) (int64, error)
	LastMessages(ctx context.Context, dialogIDs []uuid.UUID) (map[uuid.UUID]*entity.Message, error)
	CountMessages(ctx context.Context, dialogIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	CountUnreadInDialog(ctx context.Context, dialogID, userID uuid.UUID) (int64, error)
	UnreadCounts(ctx context.Context, dialogIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error)
	CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) WithTx(tx *gorm.DB) ChatRepository {
	return &chatRepository{db: tx}
}

func withParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("ParticipantLow").Preload("ParticipantHigh").Preload("Listing")
}

// FindOrCreateDialog inserts dialog unless a row with the same participants
// and listing key already exists, then returns the stored row. Concurrent
// callers race on the unique index and all read back the winner.
func (r *chatRepository) FindOrCreateDialog(ctx context.Context, dialog *entity.Dialog) (*entity.Dialog, bool, error) {
	db := r.db.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(dialog)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	var stored entity.Dialog
	err := withParticipants(db).
		Where("participant_low_id = ? AND participant_high_id = ? AND listing_key = ?",
			dialog.ParticipantLowID, dialog.ParticipantHighID, dialog.ListingKey).
		First(&stored).Error
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func (r *chatRepository) FindDialogByID(ctx context.Context, id uuid.UUID) (*entity.Dialog, error) {
	var dialog entity.Dialog
	if err := withParticipants(r.db.WithContext(ctx)).Where("id = ?", id).First(&dialog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("dialog not found")
		}
		return nil, err
	}
	return &dialog, nil
}

func (r *chatRepository) ListDialogsForUser(ctx context.Context, userID uuid.UUID) ([]entity.Dialog, error) {
	var dialogs []entity.Dialog
	err := withParticipants(r.db.WithContext(ctx)).
		Where("participant_low_id = ? OR participant_high_id = ?", userID, userID).
		Order("updated_at desc").
		Find(&dialogs).Error
	return dialogs, err
}

func (r *chatRepository) ListRecentDialogs(ctx context.Context, limit int) ([]entity.Dialog, error) {
	var dialogs []entity.Dialog
	err := withParticipants(r.db.WithContext(ctx)).
		Order("updated_at desc").
		Limit(limit).
		Find(&dialogs).Error
	return dialogs, err
}

func (r *chatRepository) DialogsForListing(ctx context.Context, listingID uuid.UUID) ([]entity.Dialog, error) {
	var dialogs []entity.Dialog
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at asc").
		Find(&dialogs).Error
	return dialogs, err
}

func (r *chatRepository) TouchDialog(ctx context.Context, dialogID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Dialog{}).
		Where("id = ?", dialogID).
		UpdateColumn("updated_at", at).Error
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

func (r *chatRepository) ListMessages(ctx context.Context, dialogID uuid.UUID) ([]entity.Message, error) {
	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("dialog_id = ?", dialogID).
		Order("created_at asc").
		Order("id asc").
		Find(&messages).Error
	return messages, err
}

// MarkDialogRead flags every unread message in the dialog not sent by
// readerID. Only rows that were unread are touched.
func (r *chatRepository) MarkDialogRead(ctx context.Context, dialogID, readerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("dialog_id = ? AND sender_id <> ? AND is_read = ?", dialogID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *chatRepository) LastMessages(ctx context.Context, dialogIDs []uuid.UUID) (map[uuid.UUID]*entity.Message, error) {
	out := make(map[uuid.UUID]*entity.Message, len(dialogIDs))
	if len(dialogIDs) == 0 {
		return out, nil
	}

	latest := r.db.Model(&entity.Message{}).
		Select("dialog_id, MAX(created_at) AS created_at").
		Where("dialog_id IN ?", dialogIDs).
		Group("dialog_id")

	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Table("messages").
		Joins("JOIN (?) AS latest ON latest.dialog_id = messages.dialog_id AND latest.created_at = messages.created_at", latest).
		Select("messages.*").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Several messages may share the newest timestamp; the larger id wins.
	for i := range messages {
		m := &messages[i]
		if cur, ok := out[m.DialogID]; !ok || m.ID.String() > cur.ID.String() {
			out[m.DialogID] = m
		}
	}
	return out, nil
}

type dialogCount struct {
	DialogID uuid.UUID
	Total    int64
}

func (r *chatRepository) CountMessages(ctx context.Context, dialogIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(dialogIDs))
	if len(dialogIDs) == 0 {
		return out, nil
	}

	var rows []dialogCount
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Select("dialog_id, COUNT(*) AS total").
		Where("dialog_id IN ?", dialogIDs).
		Group("dialog_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.DialogID] = row.Total
	}
	return out, nil
}

func (r *chatRepository) CountUnreadInDialog(ctx context.Context, dialogID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("dialog_id = ? AND sender_id <> ? AND is_read = ?", dialogID, userID, false).
		Count(&count).Error
	return count, err
}

func (r *chatRepository) UnreadCounts(ctx context.Context, dialogIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(dialogIDs))
	if len(dialogIDs) == 0 {
		return out, nil
	}

	var rows []dialogCount
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Select("dialog_id, COUNT(*) AS total").
		Where("dialog_id IN ? AND sender_id <> ? AND is_read = ?", dialogIDs, userID, false).
		Group("dialog_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.DialogID] = row.Total
	}
	return out, nil
}

// CountUnreadForUser counts inbound unread messages over all dialogs the
// user takes part in.
func (r *chatRepository) CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Joins("JOIN dialogs ON dialogs.id = messages.dialog_id").
		Where("(dialogs.participant_low_id = ? OR dialogs.participant_high_id = ?) AND messages.sender_id <> ? AND messages.is_read = ?",
			userID, userID, userID, false).
		Count(&count).Error
	return count, err
}
