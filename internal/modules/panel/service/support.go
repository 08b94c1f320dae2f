package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/bazaar/internal/entity"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	"anoa.com/bazaar/internal/modules/panel/dto"
	panelRepo "anoa.com/bazaar/internal/modules/panel/repository"
	search "anoa.com/bazaar/internal/modules/search/service"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type SupportService interface {
	CreateTicket(ctx context.Context, userID *uuid.UUID, req dto.CreateTicketRequest) (*entity.SupportTicket, error)
	ListTickets(ctx context.Context) ([]dto.TicketResponse, error)
	UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) error
}

type supportService struct {
	repo          panelRepo.PanelRepository
	notifRepo     notifRepo.NotificationRepository
	notifications notifService.NotificationService
	tx            database.Transactor
	sanitizer     *bluemonday.Policy
}

func NewSupportService(repo panelRepo.PanelRepository, notifs notifRepo.NotificationRepository, notifications notifService.NotificationService, tx database.Transactor) SupportService {
	return &supportService{
		repo:          repo,
		notifRepo:     notifs,
		notifications: notifications,
		tx:            tx,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

// CreateTicket files a ticket for a signed-in user or an anonymous visitor.
// Markup is stripped from subject and body.
func (s *supportService) CreateTicket(ctx context.Context, userID *uuid.UUID, req dto.CreateTicketRequest) (*entity.SupportTicket, error) {
	subject := search.CleanText(s.sanitizer, req.Subject)
	message := strings.TrimSpace(s.sanitizer.Sanitize(req.Message))
	if subject == "" || message == "" {
		return nil, apperror.Validation("subject and message are required")
	}

	ticket := &entity.SupportTicket{
		UserID:  userID,
		Email:   strings.TrimSpace(req.Email),
		Subject: subject,
		Message: message,
		Status:  entity.TicketStatusOpen,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *supportService) ListTickets(ctx context.Context) ([]dto.TicketResponse, error) {
	tickets, err := s.repo.ListTickets(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		res := dto.TicketResponse{
			ID:        t.ID,
			Subject:   t.Subject,
			Message:   t.Message,
			Status:    t.Status,
			CreatedAt: t.CreatedAt,
			UserID:    t.UserID,
			Username:  "Guest",
			Email:     t.Email,
		}
		if t.User != nil {
			res.Username = t.User.Username
			if res.Email == "" {
				res.Email = t.User.Email
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// UpdateStatus sets the ticket status. Closing a ticket that has an owner
// notifies the owner.
func (s *supportService) UpdateStatus(ctx context.Context, ticketID uuid.UUID, status string) error {
	if status != entity.TicketStatusOpen && status != entity.TicketStatusClosed {
		return apperror.Validation("status must be one of: open closed")
	}

	ticket, err := s.repo.FindTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	var notification *entity.Notification
	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateTicketStatus(ctx, ticketID, status); err != nil {
			return err
		}
		if status != entity.TicketStatusClosed || ticket.UserID == nil {
			return nil
		}

		notification = entity.NewNotification(*ticket.UserID, entity.NotificationMessage,
			fmt.Sprintf("✅ Your ticket «%s» was closed by an administrator", ticket.Subject), nil)
		return s.notifRepo.WithTx(tx).Create(ctx, notification)
	})
	if err != nil {
		return err
	}

	if notification != nil {
		s.notifications.Publish(ctx, notification)
	}
	return nil
}
