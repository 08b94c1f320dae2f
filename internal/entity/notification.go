package entity

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationMessage     = "message"
	NotificationListingSold = "listing_sold"
	NotificationNewListing  = "new_listing"
)

// NotificationTextLimit is the column width of Notification.Text in runes.
const NotificationTextLimit = 255

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type      string     `gorm:"size:20;not null" json:"type"`
	Text      string     `gorm:"size:255;not null" json:"text"`
	DialogID  *uuid.UUID `gorm:"type:uuid;index" json:"dialog_id"`
	Dialog    *Dialog    `gorm:"foreignKey:DialogID;constraint:OnDelete:SET NULL" json:"-"`
	IsRead    bool       `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}

// NewNotification builds an unsaved notification, clipping text to the
// column width.
func NewNotification(userID uuid.UUID, kind, text string, dialogID *uuid.UUID) *Notification {
	return &Notification{
		UserID:   userID,
		Type:     kind,
		Text:     Truncate(text, NotificationTextLimit),
		DialogID: dialogID,
	}
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
