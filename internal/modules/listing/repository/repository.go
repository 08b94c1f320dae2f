package repository

import (
	"context"
	"errors"
	"strings"

	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingRepository interface {
	WithTx(tx *gorm.DB) ListingRepository
	Create(ctx context.Context, listing *entity.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	FindActive(ctx context.Context, limit, offset int) ([]entity.Listing, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query, status string, limit int) ([]entity.Listing, error)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) WithTx(tx *gorm.DB) ListingRepository {
	return &listingRepository{db: tx}
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	var listing entity.Listing
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("listing not found")
		}
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) FindActive(ctx context.Context, limit, offset int) ([]entity.Listing, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&entity.Listing{}).Where("status = ?", entity.ListingStatusActive)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []entity.Listing
	err := base().
		Preload("Seller").
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	return listings, total, err
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&entity.Listing{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("listing not found")
	}
	return nil
}

func (r *listingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("listing not found")
	}
	return nil
}

func (r *listingRepository) Search(ctx context.Context, query, status string, limit int) ([]entity.Listing, error) {
	db := r.db.WithContext(ctx).Model(&entity.Listing{}).Preload("Seller")
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+q+"%")
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	var listings []entity.Listing
	err := db.Order("created_at desc").Limit(limit).Find(&listings).Error
	return listings, err
}
