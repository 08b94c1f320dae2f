package dto

import (
	"time"

	"anoa.com/bazaar/internal/entity"
	commonDto "anoa.com/bazaar/pkg/dto"
	"github.com/google/uuid"
)

// PhotoPlaceholder stands in for the text of attachment-only messages.
const PhotoPlaceholder = "📷 Photo"

type StartDialogRequest struct {
	RecipientID string  `json:"recipient_id" binding:"required,uuid"`
	ListingID   *string `json:"listing_id" binding:"omitempty,uuid"`
}

type SendMessageRequest struct {
	Text string `form:"text" json:"text" binding:"max=4000"`
}

type LastMessage struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	IsMine    bool      `json:"is_mine"`
	IsRead    bool      `json:"is_read"`
}

type DialogResponse struct {
	ID           uuid.UUID              `json:"id"`
	OtherUser    *commonDto.UserSummary `json:"other_user"`
	LastMessage  *LastMessage           `json:"last_message"`
	UnreadCount  int64                  `json:"unread_count"`
	ListingTitle *string                `json:"listing_title"`
	Listing      *uuid.UUID             `json:"listing"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type MessageResponse struct {
	ID           uuid.UUID `json:"id"`
	Dialog       uuid.UUID `json:"dialog"`
	Sender       uuid.UUID `json:"sender"`
	SenderName   string    `json:"sender_name"`
	SenderAvatar *string   `json:"sender_avatar"`
	SenderPhone  *string   `json:"sender_phone"`
	Text         string    `json:"text"`
	ImageURL     *string   `json:"image_url"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
	IsMine       bool      `json:"is_mine"`
}

func NewUserSummary(u *entity.User) *commonDto.UserSummary {
	if u == nil {
		return nil
	}
	return &commonDto.UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.DisplayName(),
		Phone:     optional(u.Phone),
		City:      u.City,
		AvatarURL: u.AvatarURL,
	}
}

// Preview is the text shown for a message in lists and notifications.
func Preview(m *entity.Message) string {
	if m.Text == "" && m.HasAttachment() {
		return PhotoPlaceholder
	}
	return m.Text
}

func NewMessageResponse(m *entity.Message, viewerID uuid.UUID) MessageResponse {
	res := MessageResponse{
		ID:        m.ID,
		Dialog:    m.DialogID,
		Sender:    m.SenderID,
		Text:      m.Text,
		ImageURL:  m.AttachmentURL,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
		IsMine:    m.SenderID == viewerID,
	}
	if m.Sender != nil {
		res.SenderName = m.Sender.DisplayName()
		res.SenderAvatar = m.Sender.AvatarURL
		res.SenderPhone = optional(m.Sender.Phone)
	}
	return res
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
