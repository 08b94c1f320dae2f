package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message belongs to exactly one dialog. Only IsRead ever changes after
// insert.
type Message struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DialogID      uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_dialog_created,priority:1" json:"dialog_id"`
	SenderID      uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	Sender        *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Text          string    `gorm:"type:text;not null;default:''" json:"text"`
	AttachmentURL *string   `gorm:"type:text" json:"attachment_url"`
	IsRead        bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt     time.Time `gorm:"index:idx_messages_dialog_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}

func (m *Message) HasAttachment() bool {
	return m.AttachmentURL != nil && *m.AttachmentURL != ""
}
