package repository

import (
	"context"
	"errors"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PanelRepository interface {
	WithTx(tx *gorm.DB) PanelRepository

	ActiveAnnouncement(ctx context.Context) (*entity.GlobalAnnouncement, error)
	DeactivateAnnouncements(ctx context.Context) (int64, error)
	CreateAnnouncement(ctx context.Context, announcement *entity.GlobalAnnouncement) error

	CreateTicket(ctx context.Context, ticket *entity.SupportTicket) error
	FindTicket(ctx context.Context, id uuid.UUID) (*entity.SupportTicket, error)
	UpdateTicketStatus(ctx context.Context, id uuid.UUID, status string) error
	ListTickets(ctx context.Context) ([]entity.SupportTicket, error)
}

type panelRepository struct {
	db *gorm.DB
}

func NewPanelRepository(db *gorm.DB) PanelRepository {
	return &panelRepository{db: db}
}

func (r *panelRepository) WithTx(tx *gorm.DB) PanelRepository {
	return &panelRepository{db: tx}
}

// ActiveAnnouncement returns nil without error when no banner is active.
func (r *panelRepository) ActiveAnnouncement(ctx context.Context) (*entity.GlobalAnnouncement, error) {
	var announcement entity.GlobalAnnouncement
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at desc").
		First(&announcement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &announcement, nil
}

func (r *panelRepository) DeactivateAnnouncements(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.GlobalAnnouncement{}).
		Where("is_active = ?", true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *panelRepository) CreateAnnouncement(ctx context.Context, announcement *entity.GlobalAnnouncement) error {
	return r.db.WithContext(ctx).Create(announcement).Error
}

func (r *panelRepository) CreateTicket(ctx context.Context, ticket *entity.SupportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *panelRepository) FindTicket(ctx context.Context, id uuid.UUID) (*entity.SupportTicket, error) {
	var ticket entity.SupportTicket
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("ticket not found")
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *panelRepository) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&entity.SupportTicket{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *panelRepository) ListTickets(ctx context.Context) ([]entity.SupportTicket, error) {
	var tickets []entity.SupportTicket
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at desc").
		Find(&tickets).Error
	return tickets, err
}
