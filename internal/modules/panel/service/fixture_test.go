package service

import (
	"testing"

	"anoa.com/bazaar/internal/entity"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	panelRepo "anoa.com/bazaar/internal/modules/panel/repository"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/internal/testutil"
	"anoa.com/bazaar/pkg/database"
	"anoa.com/bazaar/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type panelFixture struct {
	db            *gorm.DB
	users         userRepo.UserRepository
	listings      listingRepo.ListingRepository
	chats         chatRepo.ChatRepository
	moderation    ModerationService
	announcements AnnouncementService
	support       SupportService
	directory     *directoryService
}

func newPanelFixture(t *testing.T, batchSize int) *panelFixture {
	t.Helper()

	db := testutil.NewDB(t)
	users := userRepo.NewUserRepository(db)
	listings := listingRepo.NewListingRepository(db)
	chats := chatRepo.NewChatRepository(db)
	notifs := notifRepo.NewNotificationRepository(db)
	panel := panelRepo.NewPanelRepository(db)
	tx := database.NewTransactor(db)
	notifSvc := notifService.NewNotificationService(notifs, users, chats, nil, batchSize, logger.Nop())

	return &panelFixture{
		db:            db,
		users:         users,
		listings:      listings,
		chats:         chats,
		moderation:    NewModerationService(users, listings, notifs, notifSvc, tx, nil, logger.Nop()),
		announcements: NewAnnouncementService(panel, notifSvc, tx),
		support:       NewSupportService(panel, notifs, notifSvc, tx),
		directory:     NewDirectoryService(users, listings, chats, 0).(*directoryService),
	}
}

func (f *panelFixture) notificationsFor(t *testing.T, userID uuid.UUID) []entity.Notification {
	t.Helper()

	var out []entity.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("created_at asc").Find(&out).Error)
	return out
}
