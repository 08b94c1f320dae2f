package dto

import (
	"time"

	"github.com/google/uuid"
)

type ActionRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason" binding:"max=1000"`
}

type ActionResult struct {
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	WarningsCount *int   `json:"warnings_count,omitempty"`
}

type AnnouncementRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

type AnnouncementResponse struct {
	Text      *string    `json:"text"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type BroadcastResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type CreateTicketRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
	Email   string `json:"email" binding:"omitempty,email"`
}

type UpdateTicketRequest struct {
	Status string `json:"status" binding:"required,oneof=open closed"`
}

type TicketResponse struct {
	ID        uuid.UUID  `json:"id"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UserID    *uuid.UUID `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
}

type AdminUser struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	City          string     `json:"city"`
	AvatarURL     *string    `json:"avatar_url"`
	IsOnline      bool       `json:"is_online"`
	LastSeen      *time.Time `json:"last_seen"`
	IsBanned      bool       `json:"is_banned"`
	BanReason     string     `json:"ban_reason"`
	WarningsCount int        `json:"warnings_count"`
	IsStaff       bool       `json:"is_staff"`
	ListingsCount int64      `json:"listings_count"`
	DateJoined    time.Time  `json:"date_joined"`
}

type AdminListing struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	City         string    `json:"city"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	SellerID     uuid.UUID `json:"seller_id"`
	SellerName   string    `json:"seller_name"`
	SellerBanned bool      `json:"seller_banned"`
}

type UserSearchQuery struct {
	Search string `form:"search"`
}

type ListingSearchQuery struct {
	Search string `form:"search"`
	Status string `form:"status" binding:"omitempty,oneof=active sold archived"`
}

type DialogAudit struct {
	DialogID uuid.UUID      `json:"dialog_id"`
	User1    string         `json:"user1"`
	User2    string         `json:"user2"`
	Messages []AuditMessage `json:"messages"`
}

type AuditMessage struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditDialog struct {
	ID            uuid.UUID `json:"id"`
	User1         string    `json:"user1"`
	User2         string    `json:"user2"`
	ListingTitle  *string   `json:"listing_title"`
	MessagesCount int64     `json:"messages_count"`
	LastMessage   *string   `json:"last_message"`
	UpdatedAt     time.Time `json:"updated_at"`
}
