package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"anoa.com/bazaar/internal/entity"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/internal/testutil"
	"anoa.com/bazaar/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T, batchSize int) (*gorm.DB, NotificationService) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := NewNotificationService(
		notifRepo.NewNotificationRepository(db),
		userRepo.NewUserRepository(db),
		chatRepo.NewChatRepository(db),
		nil,
		batchSize,
		logger.Nop(),
	)
	return db, svc
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("0b7a3a34-5d0c-4f5e-9a39-3f1c5d1e2a10")
	assert.Equal(t, "user_notifications:0b7a3a34-5d0c-4f5e-9a39-3f1c5d1e2a10", Channel(id))
}

func TestNotifyTruncatesText(t *testing.T) {
	db, svc := newService(t, 0)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	n, err := svc.Notify(ctx, alice.ID, entity.NotificationMessage, strings.Repeat("ж", 300), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ж", entity.NotificationTextLimit), n.Text)

	list, total, err := svc.GetNotifications(ctx, alice.ID, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)
}

func TestUnreadSummaryCountsIndependently(t *testing.T) {
	db, svc := newService(t, 0)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	dialog := entity.NewDialog(alice.ID, bob.ID, nil)
	require.NoError(t, db.Create(dialog).Error)
	for i, sender := range []uuid.UUID{alice.ID, alice.ID, bob.ID} {
		require.NoError(t, db.Create(&entity.Message{
			DialogID:  dialog.ID,
			SenderID:  sender,
			Text:      "msg",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}).Error)
	}

	_, err := svc.Notify(ctx, bob.ID, entity.NotificationMessage, "alice: msg", &dialog.ID)
	require.NoError(t, err)
	_, err = svc.Notify(ctx, bob.ID, entity.NotificationListingSold, "sold", nil)
	require.NoError(t, err)

	summary, err := svc.UnreadSummary(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.UnreadMessages)
	assert.EqualValues(t, 2, summary.UnreadNotifications)
	assert.Equal(t, summary.UnreadMessages+summary.UnreadNotifications, summary.Total)

	summary, err = svc.UnreadSummary(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.UnreadMessages)
	assert.Zero(t, summary.UnreadNotifications)
	assert.EqualValues(t, 1, summary.Total)
}

func TestMarkAllAsReadIsIdempotent(t *testing.T) {
	db, svc := newService(t, 0)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	for i := 0; i < 3; i++ {
		_, err := svc.Notify(ctx, alice.ID, entity.NotificationMessage, "hi", nil)
		require.NoError(t, err)
	}
	_, err := svc.Notify(ctx, bob.ID, entity.NotificationMessage, "hi", nil)
	require.NoError(t, err)

	require.NoError(t, svc.MarkAllAsRead(ctx, alice.ID))
	require.NoError(t, svc.MarkAllAsRead(ctx, alice.ID))

	summary, err := svc.UnreadSummary(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.UnreadNotifications)

	summary, err = svc.UnreadSummary(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.UnreadNotifications)
}

func TestBroadcastSkipsAuthorAndInactiveUsers(t *testing.T) {
	db, svc := newService(t, 2)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin", testutil.Staff)
	var recipients []*entity.User
	for _, name := range []string{"u1", "u2", "u3", "u4", "u5"} {
		recipients = append(recipients, testutil.CreateUser(t, db, name))
	}
	gone := testutil.CreateUser(t, db, "gone", testutil.Inactive)

	count, err := svc.Broadcast(ctx, "📢 Maintenance tonight", &admin.ID)
	require.NoError(t, err)
	assert.Equal(t, len(recipients), count)

	for _, u := range recipients {
		list, total, err := svc.GetNotifications(ctx, u.ID, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, list, 1)
		assert.Equal(t, "📢 Maintenance tonight", list[0].Text)
		assert.Equal(t, entity.NotificationMessage, list[0].Type)
		assert.Nil(t, list[0].DialogID)
	}

	for _, id := range []uuid.UUID{admin.ID, gone.ID} {
		_, total, err := svc.GetNotifications(ctx, id, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
	}
}

func TestBroadcastWithNoRecipients(t *testing.T) {
	db, svc := newService(t, 0)
	admin := testutil.CreateUser(t, db, "admin", testutil.Staff)

	count, err := svc.Broadcast(context.Background(), "hello", &admin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
