package service

import (
	"context"
	"strings"

	"anoa.com/bazaar/internal/entity"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	"anoa.com/bazaar/internal/modules/panel/dto"
	panelRepo "anoa.com/bazaar/internal/modules/panel/repository"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnnouncementService interface {
	Current(ctx context.Context) (*dto.AnnouncementResponse, error)
	// Publish swaps the active banner and broadcasts it to every active
	// user except the author. It returns how many notifications were
	// written.
	Publish(ctx context.Context, authorID uuid.UUID, text string) (int, error)
	Clear(ctx context.Context) error
}

type announcementService struct {
	repo          panelRepo.PanelRepository
	notifications notifService.NotificationService
	tx            database.Transactor
}

func NewAnnouncementService(repo panelRepo.PanelRepository, notifications notifService.NotificationService, tx database.Transactor) AnnouncementService {
	return &announcementService{
		repo:          repo,
		notifications: notifications,
		tx:            tx,
	}
}

func (s *announcementService) Current(ctx context.Context) (*dto.AnnouncementResponse, error) {
	announcement, err := s.repo.ActiveAnnouncement(ctx)
	if err != nil {
		return nil, err
	}
	if announcement == nil {
		return &dto.AnnouncementResponse{}, nil
	}
	return &dto.AnnouncementResponse{
		Text:      &announcement.Text,
		CreatedAt: &announcement.CreatedAt,
	}, nil
}

func (s *announcementService) Publish(ctx context.Context, authorID uuid.UUID, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperror.Validation("announcement text is required")
	}

	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.DeactivateAnnouncements(ctx); err != nil {
			return err
		}
		return repo.CreateAnnouncement(ctx, &entity.GlobalAnnouncement{
			Text:      text,
			IsActive:  true,
			CreatedBy: authorID,
		})
	})
	if err != nil {
		return 0, err
	}

	return s.notifications.Broadcast(ctx, "📢 "+text, &authorID)
}

func (s *announcementService) Clear(ctx context.Context) error {
	_, err := s.repo.DeactivateAnnouncements(ctx)
	return err
}
