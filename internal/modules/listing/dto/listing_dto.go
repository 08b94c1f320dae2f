package dto

import (
	"time"

	"anoa.com/bazaar/internal/entity"
	"github.com/google/uuid"
)

type CreateListingRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description string  `json:"description" binding:"max=10000"`
	Price       float64 `json:"price" binding:"min=0"`
	City        string  `json:"city" binding:"max=100"`
}

type SellerSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
}

type ListingResponse struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	City        string         `json:"city"`
	Status      string         `json:"status"`
	Seller      *SellerSummary `json:"seller"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func NewListingResponse(l *entity.Listing) ListingResponse {
	res := ListingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		City:        l.City,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.Seller != nil {
		res.Seller = &SellerSummary{
			ID:       l.Seller.ID,
			Username: l.Seller.Username,
			Name:     l.Seller.DisplayName(),
		}
	}
	return res
}

type SoldResult struct {
	Notified int `json:"notified"`
}
