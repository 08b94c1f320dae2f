package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/internal/metrics"
	"anoa.com/bazaar/internal/modules/chat/dto"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	commonDto "anoa.com/bazaar/pkg/dto"
	"anoa.com/bazaar/pkg/ratelimiter"
	"anoa.com/bazaar/pkg/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	notificationPreviewRunes = 60
	sendAction               = "send_message"
)

type ChatService interface {
	// StartOrGet returns the dialog between callerID and recipientID about
	// listingID, creating it on first contact.
	StartOrGet(ctx context.Context, callerID, recipientID uuid.UUID, listingID *uuid.UUID) (*entity.Dialog, bool, error)
	StartDialog(ctx context.Context, callerID uuid.UUID, req dto.StartDialogRequest) (*dto.DialogResponse, bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]dto.DialogResponse, error)
	UnreadCount(ctx context.Context, dialogID, userID uuid.UUID) (int64, error)

	// Append writes a message, bumps the dialog and notifies the other
	// participant in one transaction.
	Append(ctx context.Context, dialog *entity.Dialog, senderID uuid.UUID, text string, attachmentURL *string) (*entity.Message, error)
	SendMessage(ctx context.Context, senderID, dialogID uuid.UUID, text string, image *commonDto.ImageFile) (*dto.MessageResponse, error)

	// ListForDialog returns the dialog's messages oldest first and marks what
	// the requester had not read yet.
	ListForDialog(ctx context.Context, dialogID, requesterID uuid.UUID) ([]entity.Message, error)
	ListMessages(ctx context.Context, requesterID, dialogID uuid.UUID) ([]dto.MessageResponse, error)
}

type Options struct {
	SendCooldown time.Duration
}

type chatService struct {
	repo          chatRepo.ChatRepository
	userRepo      userRepo.UserRepository
	listingRepo   listingRepo.ListingRepository
	notifRepo     notifRepo.NotificationRepository
	notifications notifService.NotificationService
	tx            database.Transactor
	imageStorage  storage.ImageStorage
	redisClient   *redis.Client
	opts          Options
	logger        zerolog.Logger
	now           func() time.Time
}

func NewChatService(
	repo chatRepo.ChatRepository,
	users userRepo.UserRepository,
	listings listingRepo.ListingRepository,
	notifs notifRepo.NotificationRepository,
	notifications notifService.NotificationService,
	tx database.Transactor,
	imageStorage storage.ImageStorage,
	redisClient *redis.Client,
	opts Options,
	logger zerolog.Logger,
) ChatService {
	return &chatService{
		repo:          repo,
		userRepo:      users,
		listingRepo:   listings,
		notifRepo:     notifs,
		notifications: notifications,
		tx:            tx,
		imageStorage:  imageStorage,
		redisClient:   redisClient,
		opts:          opts,
		logger:        logger.With().Str("component", "chat").Logger(),
		now:           time.Now,
	}
}

func (s *chatService) StartOrGet(ctx context.Context, callerID, recipientID uuid.UUID, listingID *uuid.UUID) (*entity.Dialog, bool, error) {
	if callerID == recipientID {
		return nil, false, apperror.InvalidOperation("you cannot start a dialog with yourself")
	}

	if _, err := s.userRepo.FindByID(ctx, recipientID); err != nil {
		return nil, false, err
	}

	// An unknown listing leaves the dialog unscoped.
	if listingID != nil {
		if _, err := s.listingRepo.FindByID(ctx, *listingID); err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				return nil, false, err
			}
			listingID = nil
		}
	}

	dialog, created, err := s.repo.FindOrCreateDialog(ctx, entity.NewDialog(callerID, recipientID, listingID))
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.DialogsCreated.Inc()
	}
	return dialog, created, nil
}

func (s *chatService) StartDialog(ctx context.Context, callerID uuid.UUID, req dto.StartDialogRequest) (*dto.DialogResponse, bool, error) {
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		return nil, false, apperror.Validation("recipient_id must be a valid id")
	}

	var listingID *uuid.UUID
	if req.ListingID != nil && *req.ListingID != "" {
		id, err := uuid.Parse(*req.ListingID)
		if err != nil {
			return nil, false, apperror.Validation("listing_id must be a valid id")
		}
		listingID = &id
	}

	dialog, created, err := s.StartOrGet(ctx, callerID, recipientID, listingID)
	if err != nil {
		return nil, false, err
	}

	responses, err := s.buildDialogResponses(ctx, []entity.Dialog{*dialog}, callerID)
	if err != nil {
		return nil, false, err
	}
	return &responses[0], created, nil
}

func (s *chatService) ListForUser(ctx context.Context, userID uuid.UUID) ([]dto.DialogResponse, error) {
	dialogs, err := s.repo.ListDialogsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildDialogResponses(ctx, dialogs, userID)
}

func (s *chatService) buildDialogResponses(ctx context.Context, dialogs []entity.Dialog, viewerID uuid.UUID) ([]dto.DialogResponse, error) {
	ids := make([]uuid.UUID, 0, len(dialogs))
	for i := range dialogs {
		ids = append(ids, dialogs[i].ID)
	}

	last, err := s.repo.LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCounts(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.DialogResponse, 0, len(dialogs))
	for i := range dialogs {
		d := &dialogs[i]
		res := dto.DialogResponse{
			ID:          d.ID,
			UnreadCount: unread[d.ID],
			Listing:     d.ListingID,
			UpdatedAt:   d.UpdatedAt,
		}

		if d.ParticipantLowID == viewerID {
			res.OtherUser = dto.NewUserSummary(d.ParticipantHigh)
		} else {
			res.OtherUser = dto.NewUserSummary(d.ParticipantLow)
		}

		if d.Listing != nil {
			title := d.Listing.Title
			res.ListingTitle = &title
		}

		if m, ok := last[d.ID]; ok {
			res.LastMessage = &dto.LastMessage{
				Text:      dto.Preview(m),
				CreatedAt: m.CreatedAt,
				IsMine:    m.SenderID == viewerID,
				IsRead:    m.IsRead,
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *chatService) UnreadCount(ctx context.Context, dialogID, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnreadInDialog(ctx, dialogID, userID)
}

func (s *chatService) Append(ctx context.Context, dialog *entity.Dialog, senderID uuid.UUID, text string, attachmentURL *string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if attachmentURL != nil && *attachmentURL == "" {
		attachmentURL = nil
	}
	if text == "" && attachmentURL == nil {
		return nil, apperror.Validation("message must have text or an image")
	}

	recipientID, err := dialog.OtherParticipant(senderID)
	if err != nil {
		return nil, apperror.Validation("sender is not a participant of this dialog")
	}

	sender, err := s.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	message := &entity.Message{
		DialogID:      dialog.ID,
		SenderID:      senderID,
		Sender:        sender,
		Text:          text,
		AttachmentURL: attachmentURL,
		CreatedAt:     now,
	}

	preview := dto.PhotoPlaceholder
	if text != "" {
		preview = entity.Truncate(text, notificationPreviewRunes)
	}
	notification := entity.NewNotification(recipientID, entity.NotificationMessage,
		fmt.Sprintf("%s: %s", sender.DisplayName(), preview), &dialog.ID)

	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		chat := s.repo.WithTx(tx)
		if err := chat.CreateMessage(ctx, message); err != nil {
			return err
		}
		if err := chat.TouchDialog(ctx, dialog.ID, now); err != nil {
			return err
		}
		return s.notifRepo.WithTx(tx).Create(ctx, notification)
	})
	if err != nil {
		return nil, err
	}

	dialog.UpdatedAt = now
	metrics.MessagesSent.Inc()
	s.notifications.Publish(ctx, notification)
	return message, nil
}

func (s *chatService) SendMessage(ctx context.Context, senderID, dialogID uuid.UUID, text string, image *commonDto.ImageFile) (*dto.MessageResponse, error) {
	dialog, err := s.repo.FindDialogByID(ctx, dialogID)
	if err != nil {
		return nil, err
	}
	if !dialog.HasParticipant(senderID) {
		return nil, apperror.NotFound("dialog not found")
	}
	if strings.TrimSpace(text) == "" && image == nil {
		return nil, apperror.Validation("message must have text or an image")
	}

	if err := ratelimiter.Enforce(ctx, s.redisClient, senderID, sendAction, s.opts.SendCooldown); err != nil {
		var rlErr *ratelimiter.RateLimitError
		if errors.As(err, &rlErr) {
			metrics.RateLimitHits.WithLabelValues(sendAction).Inc()
			return nil, err
		}
		// Redis trouble should not block chatting.
		s.logger.Warn().Err(err).Msg("send cooldown check failed")
	}

	var attachmentURL *string
	if image != nil {
		if s.imageStorage == nil {
			return nil, apperror.InvalidOperation("image uploads are not configured")
		}
		if !storage.IsImageFile(image.FileName) {
			return nil, apperror.Validation("attachment must be an image")
		}
		url, err := s.imageStorage.UploadImage(ctx, image.Reader, "chat", image.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		attachmentURL = &url
	}

	message, err := s.Append(ctx, dialog, senderID, text, attachmentURL)
	if err != nil {
		if attachmentURL != nil {
			if delErr := s.imageStorage.DeleteImage(ctx, *attachmentURL); delErr != nil {
				s.logger.Warn().Err(delErr).Msg("failed to delete orphan attachment")
			}
		}
		return nil, err
	}

	res := dto.NewMessageResponse(message, senderID)
	return &res, nil
}

func (s *chatService) ListForDialog(ctx context.Context, dialogID, requesterID uuid.UUID) ([]entity.Message, error) {
	dialog, err := s.repo.FindDialogByID(ctx, dialogID)
	if err != nil {
		return nil, err
	}
	if !dialog.HasParticipant(requesterID) {
		return nil, apperror.Permission("you are not a participant of this dialog")
	}

	var messages []entity.Message
	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		chat := s.repo.WithTx(tx)
		if _, err := chat.MarkDialogRead(ctx, dialogID, requesterID); err != nil {
			return err
		}
		if _, err := s.notifRepo.WithTx(tx).MarkDialogAsRead(ctx, requesterID, dialogID); err != nil {
			return err
		}

		messages, err = chat.ListMessages(ctx, dialogID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *chatService) ListMessages(ctx context.Context, requesterID, dialogID uuid.UUID) ([]dto.MessageResponse, error) {
	messages, err := s.ListForDialog(ctx, dialogID, requesterID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, dto.NewMessageResponse(&messages[i], requesterID))
	}
	return out, nil
}
