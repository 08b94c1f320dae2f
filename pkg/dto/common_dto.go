package dto

import (
	"io"

	"github.com/google/uuid"
)

// UserSummary is the public face of a user embedded in other responses.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	City      string    `json:"city"`
	AvatarURL *string   `json:"avatar_url"`
}

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults and returns limit and offset.
func (q PageQuery) Normalize(defaultLimit int) (limit, offset int) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	return q.Limit, (q.Page - 1) * q.Limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	if page == 0 {
		page = 1
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{CurrentPage: page, TotalPages: pages, TotalItems: total, Limit: limit}
}

// ImageFile is an uploaded image on its way to storage.
type ImageFile struct {
	Reader   io.Reader
	FileName string
}
