package service

import (
	"context"
	"testing"

	"anoa.com/bazaar/internal/entity"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	"anoa.com/bazaar/internal/modules/listing/dto"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/internal/testutil"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	"anoa.com/bazaar/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newListingService(t *testing.T) (*gorm.DB, ListingService) {
	t.Helper()

	db := testutil.NewDB(t)
	chats := chatRepo.NewChatRepository(db)
	notifs := notifRepo.NewNotificationRepository(db)
	notifSvc := notifService.NewNotificationService(notifs, userRepo.NewUserRepository(db), chats, nil, 0, logger.Nop())

	svc := NewListingService(listingRepo.NewListingRepository(db), chats, notifs, notifSvc, database.NewTransactor(db), nil, logger.Nop())
	return db, svc
}

func TestCreateAndListActive(t *testing.T) {
	db, svc := newListingService(t)
	ctx := context.Background()
	bob := testutil.CreateUser(t, db, "bob", func(u *entity.User) { u.FullName = "Bob Stone" })

	res, err := svc.Create(ctx, bob.ID, dto.CreateListingRequest{Title: "  Bike  ", Price: 120, City: "Lisbon"})
	require.NoError(t, err)
	assert.Equal(t, "Bike", res.Title)
	assert.Equal(t, entity.ListingStatusActive, res.Status)
	require.NotNil(t, res.Seller)
	assert.Equal(t, "Bob Stone", res.Seller.Name)

	sold := testutil.CreateListing(t, db, bob, "Lamp")
	require.NoError(t, db.Model(sold).Update("status", entity.ListingStatusSold).Error)

	list, total, err := svc.ListActive(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)

	_, err = svc.Create(ctx, bob.ID, dto.CreateListingRequest{Title: "   "})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestMarkSoldNotifiesInterestedUsers(t *testing.T) {
	db, svc := newListingService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	bike := testutil.CreateListing(t, db, bob, "Bike")

	aboutBike := entity.NewDialog(alice.ID, bob.ID, &bike.ID)
	require.NoError(t, db.Create(aboutBike).Error)
	require.NoError(t, db.Create(entity.NewDialog(bob.ID, carol.ID, &bike.ID)).Error)
	// Direct dialogs are not about the listing.
	require.NoError(t, db.Create(entity.NewDialog(alice.ID, bob.ID, nil)).Error)

	count, err := svc.MarkSold(ctx, bob.ID, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var notes []entity.Notification
	require.NoError(t, db.Where("user_id = ?", alice.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationListingSold, notes[0].Type)
	assert.Equal(t, "🏷️ Listing «Bike» has been sold", notes[0].Text)
	require.NotNil(t, notes[0].DialogID)
	assert.Equal(t, aboutBike.ID, *notes[0].DialogID)

	var sellerNotes int64
	require.NoError(t, db.Model(&entity.Notification{}).Where("user_id = ?", bob.ID).Count(&sellerNotes).Error)
	assert.Zero(t, sellerNotes)

	got, err := svc.Get(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingStatusSold, got.Status)

	_, err = svc.MarkSold(ctx, bob.ID, bike.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidOperation)
}

func TestMarkSoldOnlyBySeller(t *testing.T) {
	db, svc := newListingService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	bike := testutil.CreateListing(t, db, bob, "Bike")

	_, err := svc.MarkSold(ctx, alice.ID, bike.ID)
	require.ErrorIs(t, err, apperror.ErrPermission)

	got, err := svc.Get(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingStatusActive, got.Status)
}
