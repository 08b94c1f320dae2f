package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/bazaar/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNilClientAlwaysAllows(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	allowed, err := CheckAndSetRateLimit(ctx, nil, userID, "message", time.Second)
	assert.NoError(t, err)
	assert.True(t, allowed)

	assert.NoError(t, Enforce(ctx, nil, userID, "message", time.Second))
	assert.NoError(t, ClearRateLimit(ctx, nil, userID, "message"))
}

func TestRateLimitErrorUnwrapsToSentinel(t *testing.T) {
	err := &RateLimitError{Message: "slow down", RetryAfter: time.Second}

	assert.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))
	assert.Equal(t, 429, apperror.MapErrorToStatus(err))
}
