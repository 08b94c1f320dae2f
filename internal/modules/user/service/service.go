package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/bazaar/internal/entity"
	search "anoa.com/bazaar/internal/modules/search/service"
	"anoa.com/bazaar/internal/modules/user/dto"
	"anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/pkg/apperror"
	commonDto "anoa.com/bazaar/pkg/dto"
	"anoa.com/bazaar/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = apperror.New(401, "invalid credentials", apperror.ErrUnauthorized)
	errAccountBanned      = apperror.New(403, "account is banned", apperror.ErrForbidden)
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput, avatar *commonDto.ImageFile) (*entity.User, error)
	TouchLastSeen(ctx context.Context, userID uuid.UUID) error
}

type authService struct {
	repo         repository.UserRepository
	imageStorage storage.ImageStorage
	meili        search.MeiliSearchService
	secret       string
	tokenTTL     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

func NewAuthService(repo repository.UserRepository, imageStorage storage.ImageStorage, meili search.MeiliSearchService, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &authService{
		repo:         repo,
		imageStorage: imageStorage,
		meili:        meili,
		secret:       secret,
		tokenTTL:     ttl,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	if input.Password != input.Password2 {
		return nil, apperror.Validation("passwords do not match")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Validation("username or email is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		Username:     input.Username,
		Email:        strings.ToLower(input.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(input.FullName),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	if user.IsBanned || !user.IsActive {
		return nil, errAccountBanned
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput, avatar *commonDto.ImageFile) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.City != nil {
		user.City = strings.TrimSpace(*input.City)
	}

	if avatar != nil {
		if s.imageStorage == nil {
			return nil, apperror.InvalidOperation("image uploads are not configured")
		}
		if !storage.IsImageFile(avatar.FileName) {
			return nil, apperror.Validation("avatar must be an image")
		}
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, "avatars", avatar.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		if user.AvatarURL != nil {
			if err := s.imageStorage.DeleteImage(ctx, *user.AvatarURL); err != nil {
				s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to delete old avatar")
			}
		}
		user.AvatarURL = &url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) TouchLastSeen(ctx context.Context, userID uuid.UUID) error {
	return s.repo.TouchLastSeen(ctx, userID, s.now())
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	var searchToken string
	if s.meili != nil {
		st, err := s.meili.GenerateSearchToken()
		if err != nil {
			s.logger.Warn().Err(err).Str("username", user.Username).Msg("failed to generate search token")
		} else {
			searchToken = st
		}
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
		SearchToken: searchToken,
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
