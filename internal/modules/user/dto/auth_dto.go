package dto

import (
	"anoa.com/bazaar/internal/entity"
)

type RegisterInput struct {
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
	FullName  string `json:"full_name" binding:"max=150"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileInput struct {
	FullName *string `form:"full_name" json:"full_name" binding:"omitempty,max=150"`
	Phone    *string `form:"phone" json:"phone" binding:"omitempty,max=20"`
	City     *string `form:"city" json:"city" binding:"omitempty,max=100"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *entity.User `json:"user"`
	SearchToken string       `json:"search_token,omitempty"`
}
