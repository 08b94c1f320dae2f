// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"anoa.com/bazaar/internal/bootstrap"
	"anoa.com/bazaar/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the full schema.
// The pool is pinned to one connection so goroutines in a test queue up on
// it instead of tripping over sqlite table locks.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, bootstrap.Migrate(db))
	return db
}

// CreateUser inserts an active user. Username doubles as the email local part.
func CreateUser(t *testing.T, db *gorm.DB, username string, opts ...func(*entity.User)) *entity.User {
	t.Helper()

	user := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func Staff(u *entity.User) { u.IsStaff = true }

func Inactive(u *entity.User) { u.IsActive = false }

func CreateListing(t *testing.T, db *gorm.DB, seller *entity.User, title string) *entity.Listing {
	t.Helper()

	listing := &entity.Listing{
		SellerID: seller.ID,
		Title:    title,
		Price:    100,
		Status:   entity.ListingStatusActive,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}
