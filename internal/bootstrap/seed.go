package bootstrap

import (
	"strings"

	"anoa.com/bazaar/internal/entity"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Listing{},
		&entity.Dialog{},
		&entity.Message{},
		&entity.Notification{},
		&entity.SupportTicket{},
		&entity.GlobalAnnouncement{},
	)
}

// SeedAdminUser creates the staff account used in development. It is a no-op
// when a user with the same email already exists.
func SeedAdminUser(db *gorm.DB, email, password string, logger zerolog.Logger) error {
	email = strings.ToLower(email)

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Debug().Msg("admin user already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := entity.User{
		Username:     "admin",
		Email:        email,
		PasswordHash: string(hashedPasswordBytes),
		FullName:     "Administrator",
		IsStaff:      true,
		IsActive:     true,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	logger.Info().Str("email", email).Msg("admin user seeded")
	return nil
}
