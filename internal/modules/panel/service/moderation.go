package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/internal/metrics"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	"anoa.com/bazaar/internal/modules/panel/dto"
	search "anoa.com/bazaar/internal/modules/search/service"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type UserAction string

const (
	ActionBan         UserAction = "ban"
	ActionUnban       UserAction = "unban"
	ActionWarn        UserAction = "warn"
	ActionMessage     UserAction = "message"
	ActionMakeAdmin   UserAction = "make_admin"
	ActionRemoveAdmin UserAction = "remove_admin"
)

type ListingAction string

const (
	ActionDelete     ListingAction = "delete"
	ActionArchive    ListingAction = "archive"
	ActionActivate   ListingAction = "activate"
	ActionWarnSeller ListingAction = "warn_seller"
)

func ParseUserAction(s string) (UserAction, error) {
	switch a := UserAction(s); a {
	case ActionBan, ActionUnban, ActionWarn, ActionMessage, ActionMakeAdmin, ActionRemoveAdmin:
		return a, nil
	}
	return "", apperror.Validation(fmt.Sprintf("unknown action %q", s))
}

func ParseListingAction(s string) (ListingAction, error) {
	switch a := ListingAction(s); a {
	case ActionDelete, ActionArchive, ActionActivate, ActionWarnSeller:
		return a, nil
	}
	return "", apperror.Validation(fmt.Sprintf("unknown action %q", s))
}

type ModerationService interface {
	ApplyUserAction(ctx context.Context, actorID, targetID uuid.UUID, action UserAction, reason string) (*dto.ActionResult, error)
	ApplyListingAction(ctx context.Context, actorID, listingID uuid.UUID, action ListingAction, reason string) (*dto.ActionResult, error)
}

// actionOutcome is what an action handler leaves behind once its writes are
// done inside the transaction.
type actionOutcome struct {
	result       dto.ActionResult
	notification *entity.Notification
}

type userActionScope struct {
	users   userRepo.UserRepository
	actorID uuid.UUID
	target  *entity.User
	reason  string
}

type listingActionScope struct {
	users    userRepo.UserRepository
	listings listingRepo.ListingRepository
	listing  *entity.Listing
	reason   string
}

type userActionFunc func(ctx context.Context, s userActionScope) (*actionOutcome, error)

type listingActionFunc func(ctx context.Context, s listingActionScope) (*actionOutcome, error)

type moderationService struct {
	users          userRepo.UserRepository
	listings       listingRepo.ListingRepository
	notifRepo      notifRepo.NotificationRepository
	notifications  notifService.NotificationService
	tx             database.Transactor
	meili          search.MeiliSearchService
	logger         zerolog.Logger
	userActions    map[UserAction]userActionFunc
	listingActions map[ListingAction]listingActionFunc
}

func NewModerationService(
	users userRepo.UserRepository,
	listings listingRepo.ListingRepository,
	notifs notifRepo.NotificationRepository,
	notifications notifService.NotificationService,
	tx database.Transactor,
	meili search.MeiliSearchService,
	logger zerolog.Logger,
) ModerationService {
	return &moderationService{
		users:         users,
		listings:      listings,
		notifRepo:     notifs,
		notifications: notifications,
		tx:            tx,
		meili:         meili,
		logger:        logger.With().Str("component", "moderation").Logger(),
		userActions: map[UserAction]userActionFunc{
			ActionBan:         banUser,
			ActionUnban:       unbanUser,
			ActionWarn:        warnUser,
			ActionMessage:     messageUser,
			ActionMakeAdmin:   makeAdmin,
			ActionRemoveAdmin: removeAdmin,
		},
		listingActions: map[ListingAction]listingActionFunc{
			ActionDelete:     deleteListing,
			ActionArchive:    archiveListing,
			ActionActivate:   activateListing,
			ActionWarnSeller: warnSeller,
		},
	}
}

func (s *moderationService) ApplyUserAction(ctx context.Context, actorID, targetID uuid.UUID, action UserAction, reason string) (*dto.ActionResult, error) {
	handle, ok := s.userActions[action]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown action %q", action))
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	var outcome *actionOutcome
	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		outcome, err = handle(ctx, userActionScope{
			users:   s.users.WithTx(tx),
			actorID: actorID,
			target:  target,
			reason:  strings.TrimSpace(reason),
		})
		if err != nil {
			return err
		}
		return s.saveNotification(ctx, tx, outcome)
	})
	if err != nil {
		return nil, err
	}

	metrics.ModerationActions.WithLabelValues("user", string(action)).Inc()
	s.logger.Info().
		Str("actor_id", actorID.String()).
		Str("user_id", targetID.String()).
		Str("action", string(action)).
		Msg("user action applied")
	s.publish(ctx, outcome)
	return &outcome.result, nil
}

func (s *moderationService) ApplyListingAction(ctx context.Context, actorID, listingID uuid.UUID, action ListingAction, reason string) (*dto.ActionResult, error) {
	handle, ok := s.listingActions[action]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown action %q", action))
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	var outcome *actionOutcome
	err = s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		outcome, err = handle(ctx, listingActionScope{
			users:    s.users.WithTx(tx),
			listings: s.listings.WithTx(tx),
			listing:  listing,
			reason:   strings.TrimSpace(reason),
		})
		if err != nil {
			return err
		}
		return s.saveNotification(ctx, tx, outcome)
	})
	if err != nil {
		return nil, err
	}

	metrics.ModerationActions.WithLabelValues("listing", string(action)).Inc()
	s.logger.Info().
		Str("actor_id", actorID.String()).
		Str("listing_id", listingID.String()).
		Str("action", string(action)).
		Msg("listing action applied")
	s.syncIndex(listing, action)
	s.publish(ctx, outcome)
	return &outcome.result, nil
}

func (s *moderationService) saveNotification(ctx context.Context, tx *gorm.DB, outcome *actionOutcome) error {
	if outcome.notification == nil {
		return nil
	}
	return s.notifRepo.WithTx(tx).Create(ctx, outcome.notification)
}

func (s *moderationService) publish(ctx context.Context, outcome *actionOutcome) {
	if outcome.notification != nil {
		s.notifications.Publish(ctx, outcome.notification)
	}
}

// syncIndex keeps the search index to active listings only.
func (s *moderationService) syncIndex(listing *entity.Listing, action ListingAction) {
	if s.meili == nil {
		return
	}

	var err error
	switch action {
	case ActionDelete, ActionArchive:
		err = s.meili.DeleteListing(listing.ID.String())
	case ActionActivate:
		listing.Status = entity.ListingStatusActive
		err = s.meili.IndexListing(listing)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("listing_id", listing.ID.String()).Msg("failed to sync search index")
	}
}

func notice(userID uuid.UUID, text string) *entity.Notification {
	return entity.NewNotification(userID, entity.NotificationMessage, strings.TrimSpace(text), nil)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func banUser(ctx context.Context, s userActionScope) (*actionOutcome, error) {
	err := s.users.UpdateFields(ctx, s.target.ID, map[string]any{
		"is_banned":  true,
		"is_active":  false,
		"ban_reason": s.reason,
	})
	if err != nil {
		return nil, err
	}

	return &actionOutcome{
		result: dto.ActionResult{
			Status:  "banned",
			Message: fmt.Sprintf("user %s has been banned", s.target.Username),
		},
		notification: notice(s.target.ID,
			"⛔ Your account has been banned. Reason: "+orDefault(s.reason, "Violation of the rules")),
	}, nil
}

func unbanUser(ctx context.Context, s userActionScope) (*actionOutcome, error) {
	err := s.users.UpdateFields(ctx, s.target.ID, map[string]any{
		"is_banned":  false,
		"is_active":  true,
		"ban_reason": "",
	})
	if err != nil {
		return nil, err
	}

	return &actionOutcome{
		result:       dto.ActionResult{Status: "unbanned"},
		notification: notice(s.target.ID, "✅ Your account has been unbanned"),
	}, nil
}

func warnUser(ctx context.Context, s userActionScope) (*actionOutcome, error) {
	count, err := s.users.IncrementWarnings(ctx, s.target.ID)
	if err != nil {
		return nil, err
	}

	return &actionOutcome{
		result: dto.ActionResult{Status: "warned", WarningsCount: &count},
		notification: notice(s.target.ID,
			fmt.Sprintf("⚠️ Warning #%d: %s", count, orDefault(s.reason, "Violation of the site rules"))),
	}, nil
}

func messageUser(_ context.Context, s userActionScope) (*actionOutcome, error) {
	if s.reason == "" {
		return nil, apperror.Validation("message text is required")
	}

	return &actionOutcome{
		result:       dto.ActionResult{Status: "sent"},
		notification: notice(s.target.ID, "📢 Message from the administration: "+s.reason),
	}, nil
}

func makeAdmin(ctx context.Context, s userActionScope) (*actionOutcome, error) {
	if err := s.users.UpdateFields(ctx, s.target.ID, map[string]any{"is_staff": true}); err != nil {
		return nil, err
	}
	return &actionOutcome{result: dto.ActionResult{Status: "promoted"}}, nil
}

func removeAdmin(ctx context.Context, s userActionScope) (*actionOutcome, error) {
	if s.target.ID == s.actorID {
		return nil, apperror.Permission("you cannot remove your own staff rights")
	}
	if err := s.users.UpdateFields(ctx, s.target.ID, map[string]any{"is_staff": false}); err != nil {
		return nil, err
	}
	return &actionOutcome{result: dto.ActionResult{Status: "demoted"}}, nil
}

func deleteListing(ctx context.Context, s listingActionScope) (*actionOutcome, error) {
	title, sellerID := s.listing.Title, s.listing.SellerID
	if err := s.listings.Delete(ctx, s.listing.ID); err != nil {
		return nil, err
	}

	return &actionOutcome{
		result: dto.ActionResult{Status: "deleted"},
		notification: notice(sellerID,
			fmt.Sprintf("🗑️ Your listing «%s» was removed by an administrator. %s", title, s.reason)),
	}, nil
}

func archiveListing(ctx context.Context, s listingActionScope) (*actionOutcome, error) {
	if err := s.listings.UpdateStatus(ctx, s.listing.ID, entity.ListingStatusArchived); err != nil {
		return nil, err
	}

	return &actionOutcome{
		result: dto.ActionResult{Status: "archived"},
		notification: notice(s.listing.SellerID,
			fmt.Sprintf("📦 Your listing «%s» was unpublished. %s", s.listing.Title, s.reason)),
	}, nil
}

func activateListing(ctx context.Context, s listingActionScope) (*actionOutcome, error) {
	if err := s.listings.UpdateStatus(ctx, s.listing.ID, entity.ListingStatusActive); err != nil {
		return nil, err
	}
	return &actionOutcome{result: dto.ActionResult{Status: "activated"}}, nil
}

func warnSeller(ctx context.Context, s listingActionScope) (*actionOutcome, error) {
	count, err := s.users.IncrementWarnings(ctx, s.listing.SellerID)
	if err != nil {
		return nil, err
	}

	return &actionOutcome{
		result: dto.ActionResult{Status: "warned", WarningsCount: &count},
		notification: notice(s.listing.SellerID,
			fmt.Sprintf("⚠️ Warning about listing «%s»: %s", s.listing.Title, s.reason)),
	}, nil
}
