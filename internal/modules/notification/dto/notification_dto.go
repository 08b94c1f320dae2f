package dto

import (
	"time"

	"anoa.com/bazaar/internal/entity"
	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Text      string     `json:"text"`
	Dialog    *uuid.UUID `json:"dialog"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewNotificationResponse(n *entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Text:      n.Text,
		Dialog:    n.DialogID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

type UnreadSummary struct {
	UnreadMessages      int64 `json:"unread_messages"`
	UnreadNotifications int64 `json:"unread_notifications"`
	Total               int64 `json:"total"`
}

type BroadcastResult struct {
	Sent int `json:"sent"`
}
