package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"anoa.com/bazaar/internal/modules/user/dto"
	"anoa.com/bazaar/internal/modules/user/repository"
	"anoa.com/bazaar/internal/testutil"
	"anoa.com/bazaar/pkg/apperror"
	commonDto "anoa.com/bazaar/pkg/dto"
	"anoa.com/bazaar/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) (*gorm.DB, repository.UserRepository, AuthService) {
	t.Helper()

	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	return db, repo, NewAuthService(repo, nil, nil, testSecret, time.Hour, logger.Nop())
}

func register(t *testing.T, svc AuthService, username string) *dto.AuthResponse {
	t.Helper()

	res, err := svc.Register(context.Background(), dto.RegisterInput{
		Username:  username,
		Email:     strings.ToUpper(username) + "@Example.com",
		Password:  "correct horse",
		Password2: "correct horse",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	_, _, svc := newAuthService(t)
	ctx := context.Background()

	reg := register(t, svc, "alice")
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.True(t, reg.User.IsActive)
	assert.Equal(t, "Bearer", reg.TokenType)

	res, err := svc.Login(ctx, dto.LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims.Subject)

	_, err = svc.Login(ctx, dto.LoginInput{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))

	_, err = svc.Login(ctx, dto.LoginInput{Username: "nobody", Password: "correct horse"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))
}

func TestRegisterValidation(t *testing.T) {
	_, _, svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "password1", Password2: "password2",
	})
	require.ErrorIs(t, err, apperror.ErrValidation)

	register(t, svc, "bob")
	_, err = svc.Register(ctx, dto.RegisterInput{
		Username: "bob", Email: "other@example.com", Password: "password1", Password2: "password1",
	})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLoginRejectsBannedUser(t *testing.T) {
	_, repo, svc := newAuthService(t)
	ctx := context.Background()

	reg := register(t, svc, "carol")
	require.NoError(t, repo.UpdateFields(ctx, reg.User.ID, map[string]any{
		"is_banned":  true,
		"is_active":  false,
		"ban_reason": "spam",
	}))

	_, err := svc.Login(ctx, dto.LoginInput{Username: "carol", Password: "correct horse"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperror.MapErrorToStatus(err))
	assert.Equal(t, "account is banned", err.Error())

	// The password is checked first so a wrong guess learns nothing.
	_, err = svc.Login(ctx, dto.LoginInput{Username: "carol", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))
}

func TestUpdateProfileAndLastSeen(t *testing.T) {
	_, repo, svc := newAuthService(t)
	ctx := context.Background()

	reg := register(t, svc, "dave")
	name, city := "  Dave Grohl ", "Porto"

	user, err := svc.UpdateProfile(ctx, reg.User.ID, dto.UpdateProfileInput{FullName: &name, City: &city}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dave Grohl", user.FullName)
	assert.Equal(t, "Porto", user.City)

	_, err = svc.UpdateProfile(ctx, reg.User.ID, dto.UpdateProfileInput{}, &commonDto.ImageFile{
		Reader: strings.NewReader("img"), FileName: "me.png",
	})
	require.ErrorIs(t, err, apperror.ErrInvalidOperation)

	require.NoError(t, svc.TouchLastSeen(ctx, reg.User.ID))
	stored, err := repo.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSeen)
	assert.WithinDuration(t, time.Now(), *stored.LastSeen, time.Minute)
}
