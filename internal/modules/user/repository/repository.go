package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	IncrementWarnings(ctx context.Context, id uuid.UUID) (int, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
	ActiveUserIDs(ctx context.Context, excluding *uuid.UUID) ([]uuid.UUID, error)
	Search(ctx context.Context, query string, limit int) ([]entity.User, error)
	CountListings(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error) {
	out := make(map[uuid.UUID]*entity.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("username = ? OR LOWER(email) = ?", username, strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

// IncrementWarnings bumps the counter in SQL and returns the new value.
func (r *userRepository) IncrementWarnings(ctx context.Context, id uuid.UUID) (int, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&entity.User{}).Where("id = ?", id).
		UpdateColumn("warnings_count", gorm.Expr("warnings_count + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apperror.NotFound("user not found")
	}

	var count int
	if err := db.Model(&entity.User{}).Where("id = ?", id).Pluck("warnings_count", &count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).
		UpdateColumn("last_seen", at).Error
}

func (r *userRepository) ActiveUserIDs(ctx context.Context, excluding *uuid.UUID) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&entity.User{}).Where("is_active = ?", true)
	if excluding != nil {
		query = query.Where("id <> ?", *excluding)
	}

	var ids []uuid.UUID
	err := query.Order("created_at asc").Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]entity.User, error) {
	db := r.db.WithContext(ctx).Model(&entity.User{})
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		like := "%" + q + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ? OR phone LIKE ?",
			like, like, like, like)
	}

	var users []entity.User
	err := db.Order("created_at desc").Limit(limit).Find(&users).Error
	return users, err
}

func (r *userRepository) CountListings(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		SellerID uuid.UUID
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Listing{}).
		Select("seller_id, COUNT(*) AS total").
		Where("seller_id IN ?", ids).
		Group("seller_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SellerID] = row.Total
	}
	return out, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("user not found")
	}
	return err
}
