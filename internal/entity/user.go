package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username      string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email         string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	FullName      string     `gorm:"size:150" json:"full_name"`
	Phone         string     `gorm:"size:20" json:"phone"`
	City          string     `gorm:"size:100" json:"city"`
	AvatarURL     *string    `gorm:"type:text" json:"avatar_url,omitempty"`
	IsStaff       bool       `gorm:"not null;default:false" json:"is_staff"`
	IsActive      bool       `gorm:"not null;index" json:"is_active"`
	IsBanned      bool       `gorm:"not null;default:false" json:"is_banned"`
	BanReason     string     `gorm:"type:text" json:"ban_reason"`
	WarningsCount int        `gorm:"not null;default:0" json:"warnings_count"`
	LastSeen      *time.Time `json:"last_seen"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName is the full name when set, the username otherwise.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}

// IsOnline reports whether the user was seen within window of now.
func (u *User) IsOnline(now time.Time, window time.Duration) bool {
	return u.LastSeen != nil && now.Sub(*u.LastSeen) < window
}
