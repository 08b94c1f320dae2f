package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/internal/metrics"
	"anoa.com/bazaar/internal/modules/notification/dto"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultBatchSize = 500

// Channel is the Redis pub/sub channel carrying a user's live notifications.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

// UnreadMessageCounter counts inbound unread chat messages across every
// dialog of a user.
type UnreadMessageCounter interface {
	CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, text string, dialogID *uuid.UUID) (*entity.Notification, error)
	Publish(ctx context.Context, notifications ...*entity.Notification)
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadSummary(ctx context.Context, userID uuid.UUID) (*dto.UnreadSummary, error)
	Broadcast(ctx context.Context, text string, excluding *uuid.UUID) (int, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	userRepo    userRepo.UserRepository
	messages    UnreadMessageCounter
	redisClient *redis.Client
	batchSize   int
	logger      zerolog.Logger
}

func NewNotificationService(repo notifRepo.NotificationRepository, users userRepo.UserRepository, messages UnreadMessageCounter, redisClient *redis.Client, batchSize int, logger zerolog.Logger) NotificationService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &notificationService{
		repo:        repo,
		userRepo:    users,
		messages:    messages,
		redisClient: redisClient,
		batchSize:   batchSize,
		logger:      logger.With().Str("component", "notifications").Logger(),
	}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, kind, text string, dialogID *uuid.UUID) (*entity.Notification, error) {
	notification := entity.NewNotification(userID, kind, text, dialogID)
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.Publish(ctx, notification)
	return notification, nil
}

// Publish counts committed notifications and pushes them to live
// subscribers. Delivery is best effort.
func (s *notificationService) Publish(ctx context.Context, notifications ...*entity.Notification) {
	for _, n := range notifications {
		metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
	}

	if s.redisClient == nil || len(notifications) == 0 {
		return
	}

	pipe := s.redisClient.Pipeline()
	for _, n := range notifications {
		payload, err := json.Marshal(dto.NewNotificationResponse(n))
		if err != nil {
			continue
		}
		pipe.Publish(ctx, Channel(n.UserID), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Int("count", len(notifications)).Msg("failed to publish notifications")
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, int64, error) {
	notifications, err := s.repo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.repo.MarkAllAsRead(ctx, userID)
	return err
}

// UnreadSummary runs two independent counts. Messages are counted from the
// message log, notifications from the notification table, so a message and
// its notification both count.
func (s *notificationService) UnreadSummary(ctx context.Context, userID uuid.UUID) (*dto.UnreadSummary, error) {
	messages, err := s.messages.CountUnreadForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	notifications, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.UnreadSummary{
		UnreadMessages:      messages,
		UnreadNotifications: notifications,
		Total:               messages + notifications,
	}, nil
}

// Broadcast writes one message notification per active user except
// excluding. Batches that fail are logged and skipped; the result is the
// number of rows actually written.
func (s *notificationService) Broadcast(ctx context.Context, text string, excluding *uuid.UUID) (int, error) {
	ids, err := s.userRepo.ActiveUserIDs(ctx, excluding)
	if err != nil {
		return 0, err
	}

	sent := 0
	for start := 0; start < len(ids); start += s.batchSize {
		end := min(start+s.batchSize, len(ids))

		batch := make([]*entity.Notification, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, entity.NewNotification(id, entity.NotificationMessage, text, nil))
		}

		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			s.logger.Error().Err(err).Int("offset", start).Int("size", len(batch)).Msg("broadcast batch failed")
			continue
		}

		sent += len(batch)
		s.Publish(ctx, batch...)
	}

	metrics.BroadcastRecipients.Add(float64(sent))
	s.logger.Info().Int("recipients", len(ids)).Int("sent", sent).Msg("broadcast finished")
	return sent, nil
}
