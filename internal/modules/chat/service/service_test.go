package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/bazaar/internal/entity"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/internal/testutil"
	"anoa.com/bazaar/pkg/apperror"
	"anoa.com/bazaar/pkg/database"
	commonDto "anoa.com/bazaar/pkg/dto"
	"anoa.com/bazaar/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type chatFixture struct {
	db     *gorm.DB
	svc    *chatService
	notifs notifService.NotificationService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	db := testutil.NewDB(t)
	users := userRepo.NewUserRepository(db)
	chats := chatRepo.NewChatRepository(db)
	listings := listingRepo.NewListingRepository(db)
	notifs := notifRepo.NewNotificationRepository(db)
	notifSvc := notifService.NewNotificationService(notifs, users, chats, nil, 0, logger.Nop())

	svc := NewChatService(chats, users, listings, notifs, notifSvc, database.NewTransactor(db), nil, nil, Options{}, logger.Nop()).(*chatService)

	// Every message lands one second after the previous one.
	base := time.Now()
	var tick int
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	return &chatFixture{db: db, svc: svc, notifs: notifSvc}
}

func (f *chatFixture) notificationsFor(t *testing.T, userID uuid.UUID) []entity.Notification {
	t.Helper()

	var out []entity.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("created_at asc").Find(&out).Error)
	return out
}

func TestStartOrGetIsOrderIndependent(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	first, created, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.StartOrGet(ctx, bob.ID, alice.ID, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&entity.Dialog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartOrGetScopesByListing(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	bike := testutil.CreateListing(t, f.db, bob, "Bike")

	direct, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	about, created, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, &bike.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, direct.ID, about.ID)
	require.NotNil(t, about.ListingID)
	assert.Equal(t, bike.ID, *about.ListingID)
	require.NotNil(t, about.Listing)
	assert.Equal(t, "Bike", about.Listing.Title)

	again, created, err := f.svc.StartOrGet(ctx, bob.ID, alice.ID, &bike.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, about.ID, again.ID)
}

func TestStartOrGetIgnoresUnknownListing(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	missing := uuid.New()
	dialog, created, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, &missing)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, dialog.ListingID)

	direct, created, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dialog.ID, direct.ID)
}

func TestStartOrGetRejectsBadParticipants(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	_, _, err := f.svc.StartOrGet(ctx, alice.ID, alice.ID, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))

	_, _, err = f.svc.StartOrGet(ctx, alice.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))
}

func TestStartOrGetConcurrentCallersShareOneDialog(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	const workers = 8
	ids := make([]uuid.UUID, workers)
	createdFlags := make([]bool, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, other := alice.ID, bob.ID
			if i%2 == 1 {
				caller, other = other, caller
			}
			d, created, err := f.svc.StartOrGet(ctx, caller, other, nil)
			errs[i] = err
			createdFlags[i] = created
			if d != nil {
				ids[i] = d.ID
			}
		}(i)
	}
	wg.Wait()

	createdCount := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		if createdFlags[i] {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)

	var count int64
	require.NoError(t, f.db.Model(&entity.Dialog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAppendNotifiesRecipient(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", func(u *entity.User) { u.FullName = "Alice Smith" })
	bob := testutil.CreateUser(t, f.db, "bob")

	dialog, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)
	before := dialog.UpdatedAt

	msg, err := f.svc.Append(ctx, dialog, alice.ID, "  hello there  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Text)
	assert.False(t, msg.IsRead)
	assert.True(t, dialog.UpdatedAt.After(before))

	notes := f.notificationsFor(t, bob.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationMessage, notes[0].Type)
	assert.Equal(t, "Alice Smith: hello there", notes[0].Text)
	require.NotNil(t, notes[0].DialogID)
	assert.Equal(t, dialog.ID, *notes[0].DialogID)

	assert.Empty(t, f.notificationsFor(t, alice.ID))
}

func TestAppendPhotoAndLongText(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	dialog, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	url := "https://res.cloudinary.com/demo/image/upload/v1/chat/bike.jpg"
	_, err = f.svc.Append(ctx, dialog, alice.ID, "", &url)
	require.NoError(t, err)

	long := strings.Repeat("я", 100)
	_, err = f.svc.Append(ctx, dialog, alice.ID, long, nil)
	require.NoError(t, err)

	notes := f.notificationsFor(t, bob.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, "alice: 📷 Photo", notes[0].Text)
	assert.Equal(t, "alice: "+strings.Repeat("я", 60), notes[1].Text)
}

func TestAppendValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	mallory := testutil.CreateUser(t, f.db, "mallory")

	dialog, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	empty := ""
	_, err = f.svc.Append(ctx, dialog, alice.ID, "   ", &empty)
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Append(ctx, dialog, mallory.ID, "hi", nil)
	require.ErrorIs(t, err, apperror.ErrValidation)

	var count int64
	require.NoError(t, f.db.Model(&entity.Message{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.notificationsFor(t, bob.ID))
}

func TestListForDialogMarksRead(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	dialog, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.Append(ctx, dialog, alice.ID, "first", nil)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, dialog, alice.ID, "second", nil)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, dialog, bob.ID, "reply", nil)
	require.NoError(t, err)

	unread, err := f.svc.UnreadCount(ctx, dialog.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	messages, err := f.svc.ListForDialog(ctx, dialog.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)
	assert.Equal(t, "reply", messages[2].Text)
	require.NotNil(t, messages[0].Sender)
	assert.Equal(t, "alice", messages[0].Sender.Username)

	unread, err = f.svc.UnreadCount(ctx, dialog.ID, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	// Bob's own reply stays unread for Alice.
	unread, err = f.svc.UnreadCount(ctx, dialog.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	for _, n := range f.notificationsFor(t, bob.ID) {
		assert.True(t, n.IsRead)
	}

	// Reading twice changes nothing.
	_, err = f.svc.ListForDialog(ctx, dialog.ID, bob.ID)
	require.NoError(t, err)
	unread, err = f.svc.UnreadCount(ctx, dialog.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestListForDialogRejectsOutsiders(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	mallory := testutil.CreateUser(t, f.db, "mallory")

	dialog, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, dialog, alice.ID, "private", nil)
	require.NoError(t, err)

	_, err = f.svc.ListForDialog(ctx, dialog.ID, mallory.ID)
	require.ErrorIs(t, err, apperror.ErrPermission)

	_, err = f.svc.ListForDialog(ctx, uuid.New(), alice.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	unread, err := f.svc.UnreadCount(ctx, dialog.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestListForUser(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	carol := testutil.CreateUser(t, f.db, "carol", func(u *entity.User) { u.FullName = "Carol King" })
	bike := testutil.CreateListing(t, f.db, bob, "Bike")

	withBob, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, &bike.ID)
	require.NoError(t, err)
	withCarol, _, err := f.svc.StartOrGet(ctx, carol.ID, alice.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.Append(ctx, withBob, bob.ID, "still for sale", nil)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, withCarol, carol.ID, "hi", nil)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, withCarol, carol.ID, "are you there?", nil)
	require.NoError(t, err)

	dialogs, err := f.svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, dialogs, 2)

	assert.Equal(t, withCarol.ID, dialogs[0].ID)
	require.NotNil(t, dialogs[0].OtherUser)
	assert.Equal(t, "Carol King", dialogs[0].OtherUser.Name)
	assert.EqualValues(t, 2, dialogs[0].UnreadCount)
	require.NotNil(t, dialogs[0].LastMessage)
	assert.Equal(t, "are you there?", dialogs[0].LastMessage.Text)
	assert.False(t, dialogs[0].LastMessage.IsMine)
	assert.Nil(t, dialogs[0].ListingTitle)

	assert.Equal(t, withBob.ID, dialogs[1].ID)
	assert.EqualValues(t, 1, dialogs[1].UnreadCount)
	require.NotNil(t, dialogs[1].ListingTitle)
	assert.Equal(t, "Bike", *dialogs[1].ListingTitle)

	empty, err := f.svc.ListForUser(ctx, testutil.CreateUser(t, f.db, "dave").ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSendMessage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	mallory := testutil.CreateUser(t, f.db, "mallory")

	dialog, _, err := f.svc.StartOrGet(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	res, err := f.svc.SendMessage(ctx, alice.ID, dialog.ID, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.True(t, res.IsMine)
	assert.Equal(t, "alice", res.SenderName)

	_, err = f.svc.SendMessage(ctx, mallory.ID, dialog.ID, "hello", nil)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.SendMessage(ctx, alice.ID, dialog.ID, "  ", nil)
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.SendMessage(ctx, alice.ID, dialog.ID, "", &commonDto.ImageFile{
		Reader:   strings.NewReader("png"),
		FileName: "bike.png",
	})
	require.ErrorIs(t, err, apperror.ErrInvalidOperation)

	summary, err := f.notifs.UnreadSummary(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.UnreadMessages)
	assert.EqualValues(t, 1, summary.UnreadNotifications)
	assert.EqualValues(t, 2, summary.Total)
}
