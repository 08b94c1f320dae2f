package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/bazaar/internal/entity"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	"anoa.com/bazaar/internal/modules/listing/dto"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	search "anoa.com/bazaar/internal/modules/search/service"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ListingService interface {
	Create(ctx context.Context, sellerID uuid.UUID, req dto.CreateListingRequest) (*dto.ListingResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ListingResponse, error)
	ListActive(ctx context.Context, limit, offset int) ([]dto.ListingResponse, int64, error)
	MarkSold(ctx context.Context, sellerID, listingID uuid.UUID) (int, error)
}

type listingService struct {
	repo          listingRepo.ListingRepository
	chatRepo      chatRepo.ChatRepository
	notifRepo     notifRepo.NotificationRepository
	notifications notifService.NotificationService
	tx            database.Transactor
	meili         search.MeiliSearchService
	logger        zerolog.Logger
}

func NewListingService(
	repo listingRepo.ListingRepository,
	chats chatRepo.ChatRepository,
	notifs notifRepo.NotificationRepository,
	notifications notifService.NotificationService,
	tx database.Transactor,
	meili search.MeiliSearchService,
	logger zerolog.Logger,
) ListingService {
	return &listingService{
		repo:          repo,
		chatRepo:      chats,
		notifRepo:     notifs,
		notifications: notifications,
		tx:            tx,
		meili:         meili,
		logger:        logger.With().Str("component", "listings").Logger(),
	}
}

func (s *listingService) Create(ctx context.Context, sellerID uuid.UUID, req dto.CreateListingRequest) (*dto.ListingResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}

	listing := &entity.Listing{
		SellerID:    sellerID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		City:        strings.TrimSpace(req.City),
		Status:      entity.ListingStatusActive,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.index(listing)

	stored, err := s.repo.FindByID(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	res := dto.NewListingResponse(stored)
	return &res, nil
}

func (s *listingService) Get(ctx context.Context, id uuid.UUID) (*dto.ListingResponse, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.NewListingResponse(listing)
	return &res, nil
}

func (s *listingService) ListActive(ctx context.Context, limit, offset int) ([]dto.ListingResponse, int64, error) {
	listings, total, err := s.repo.FindActive(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, dto.NewListingResponse(&listings[i]))
	}
	return out, total, nil
}

// MarkSold closes the listing and tells everyone who asked about it. The
// seller is never notified.
func (s *listingService) MarkSold(ctx context.Context, sellerID, listingID uuid.UUID) (int, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return 0, err
	}
	if listing.SellerID != sellerID {
		return 0, apperror.Permission("only the seller can mark a listing as sold")
	}
	if listing.Status == entity.ListingStatusSold {
		return 0, apperror.InvalidOperation("listing is already sold")
	}

	var notifications []*entity.Notification
	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, listingID, entity.ListingStatusSold); err != nil {
			return err
		}

		dialogs, err := s.chatRepo.WithTx(tx).DialogsForListing(ctx, listingID)
		if err != nil {
			return err
		}

		text := fmt.Sprintf("🏷️ Listing «%s» has been sold", listing.Title)
		seen := map[uuid.UUID]bool{sellerID: true}
		for i := range dialogs {
			d := &dialogs[i]
			for _, participant := range []uuid.UUID{d.ParticipantLowID, d.ParticipantHighID} {
				if seen[participant] {
					continue
				}
				seen[participant] = true
				notifications = append(notifications,
					entity.NewNotification(participant, entity.NotificationListingSold, text, &d.ID))
			}
		}

		return s.notifRepo.WithTx(tx).CreateBatch(ctx, notifications)
	})
	if err != nil {
		return 0, err
	}

	listing.Status = entity.ListingStatusSold
	s.index(listing)
	s.notifications.Publish(ctx, notifications...)
	return len(notifications), nil
}

func (s *listingService) index(listing *entity.Listing) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexListing(listing); err != nil {
		s.logger.Warn().Err(err).Str("listing_id", listing.ID.String()).Msg("failed to index listing")
	}
}
