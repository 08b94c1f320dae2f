package service

import (
	"context"
	"time"

	"anoa.com/bazaar/internal/entity"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	"anoa.com/bazaar/internal/modules/panel/dto"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"github.com/google/uuid"
)

const (
	userListLimit    = 100
	listingListLimit = 200
	dialogListLimit  = 100
	auditPreview     = 60
)

// DirectoryService backs the read-only staff views.
type DirectoryService interface {
	Users(ctx context.Context, search string) ([]dto.AdminUser, error)
	Listings(ctx context.Context, search, status string) ([]dto.AdminListing, error)
	Dialogs(ctx context.Context) ([]dto.AuditDialog, error)
	Dialog(ctx context.Context, dialogID uuid.UUID) (*dto.DialogAudit, error)
}

type directoryService struct {
	users        userRepo.UserRepository
	listings     listingRepo.ListingRepository
	chats        chatRepo.ChatRepository
	onlineWindow time.Duration
	now          func() time.Time
}

func NewDirectoryService(users userRepo.UserRepository, listings listingRepo.ListingRepository, chats chatRepo.ChatRepository, onlineWindow time.Duration) DirectoryService {
	if onlineWindow <= 0 {
		onlineWindow = 5 * time.Minute
	}
	return &directoryService{
		users:        users,
		listings:     listings,
		chats:        chats,
		onlineWindow: onlineWindow,
		now:          time.Now,
	}
}

func (s *directoryService) Users(ctx context.Context, search string) ([]dto.AdminUser, error) {
	users, err := s.users.Search(ctx, search, userListLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	counts, err := s.users.CountListings(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]dto.AdminUser, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, dto.AdminUser{
			ID:            u.ID,
			Username:      u.Username,
			FullName:      u.FullName,
			Email:         u.Email,
			Phone:         u.Phone,
			City:          u.City,
			AvatarURL:     u.AvatarURL,
			IsOnline:      u.IsOnline(now, s.onlineWindow),
			LastSeen:      u.LastSeen,
			IsBanned:      u.IsBanned,
			BanReason:     u.BanReason,
			WarningsCount: u.WarningsCount,
			IsStaff:       u.IsStaff,
			ListingsCount: counts[u.ID],
			DateJoined:    u.CreatedAt,
		})
	}
	return out, nil
}

func (s *directoryService) Listings(ctx context.Context, search, status string) ([]dto.AdminListing, error) {
	listings, err := s.listings.Search(ctx, search, status, listingListLimit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AdminListing, 0, len(listings))
	for _, l := range listings {
		item := dto.AdminListing{
			ID:        l.ID,
			Title:     l.Title,
			Price:     l.Price,
			City:      l.City,
			Status:    l.Status,
			CreatedAt: l.CreatedAt,
			SellerID:  l.SellerID,
		}
		if l.Seller != nil {
			item.SellerName = l.Seller.Username
			item.SellerBanned = l.Seller.IsBanned
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *directoryService) Dialogs(ctx context.Context) ([]dto.AuditDialog, error) {
	dialogs, err := s.chats.ListRecentDialogs(ctx, dialogListLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(dialogs))
	for _, d := range dialogs {
		ids = append(ids, d.ID)
	}
	last, err := s.chats.LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.chats.CountMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AuditDialog, 0, len(dialogs))
	for i := range dialogs {
		d := &dialogs[i]
		item := dto.AuditDialog{
			ID:            d.ID,
			User1:         username(d.ParticipantLow),
			User2:         username(d.ParticipantHigh),
			MessagesCount: counts[d.ID],
			UpdatedAt:     d.UpdatedAt,
		}
		if d.Listing != nil {
			title := d.Listing.Title
			item.ListingTitle = &title
		}
		if m, ok := last[d.ID]; ok {
			preview := entity.Truncate(m.Text, auditPreview)
			item.LastMessage = &preview
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *directoryService) Dialog(ctx context.Context, dialogID uuid.UUID) (*dto.DialogAudit, error) {
	dialog, err := s.chats.FindDialogByID(ctx, dialogID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chats.ListMessages(ctx, dialogID)
	if err != nil {
		return nil, err
	}

	audit := &dto.DialogAudit{
		DialogID: dialog.ID,
		User1:    username(dialog.ParticipantLow),
		User2:    username(dialog.ParticipantHigh),
		Messages: make([]dto.AuditMessage, 0, len(messages)),
	}
	for i := range messages {
		m := &messages[i]
		audit.Messages = append(audit.Messages, dto.AuditMessage{
			ID:        m.ID,
			Sender:    username(m.Sender),
			Text:      m.Text,
			ImageURL:  m.AttachmentURL,
			CreatedAt: m.CreatedAt,
		})
	}
	return audit, nil
}

func username(u *entity.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
