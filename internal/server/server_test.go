package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/bazaar/internal/config"
	"anoa.com/bazaar/internal/entity"
	"anoa.com/bazaar/internal/testutil"
	"anoa.com/bazaar/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{
		AppEnv:             "test",
		JWTSecret:          "test-secret",
		JWTTTL:             time.Hour,
		RateLimitAuthRPS:   100,
		RateLimitAuthBurst: 100,
		BroadcastBatchSize: 10,
		OnlineWindow:       5 * time.Minute,
	}

	srv, err := NewServer(cfg, db, nil, logger.Nop())
	require.NoError(t, err)
	return srv.Handler(), db
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type authBody struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

func registerClient(t *testing.T, h http.Handler, username string) (*client, string) {
	t.Helper()

	anon := &client{t: t, handler: h}
	w := anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "password123",
		"password2": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode[authBody](t, w)
	return &client{t: t, handler: h, token: body.AccessToken}, body.User.ID
}

func TestPublicRoutes(t *testing.T) {
	h, _ := newTestServer(t)
	anon := &client{t: t, handler: h}

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/api/listings", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/chat/dialogs", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/panel/announcement", nil).Code)

	w := anon.do(http.MethodPost, "/api/support/tickets", map[string]string{
		"subject": "Hello",
		"message": "Anonymous question",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestConversationAndModerationFlow(t *testing.T) {
	h, db := newTestServer(t)

	alice, aliceID := registerClient(t, h, "alice")
	bob, bobID := registerClient(t, h, "bob")
	admin, adminID := registerClient(t, h, "admin")
	require.NoError(t, db.Model(&entity.User{}).Where("id = ?", adminID).Update("is_staff", true).Error)

	// Regular users stay out of the panel.
	assert.Equal(t, http.StatusForbidden, alice.do(http.MethodGet, "/api/panel/users", nil).Code)

	w := alice.do(http.MethodPost, "/api/chat/dialogs/start", map[string]string{"recipient_id": bobID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dialog := decode[struct {
		ID string `json:"id"`
	}](t, w)

	w = bob.do(http.MethodPost, "/api/chat/dialogs/start", map[string]string{"recipient_id": aliceID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, dialog.ID, decode[struct {
		ID string `json:"id"`
	}](t, w).ID)

	w = alice.do(http.MethodPost, "/api/chat/dialogs/"+dialog.ID+"/send", map[string]string{"text": "Is the bike still available?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	type unread struct {
		UnreadMessages      int64 `json:"unread_messages"`
		UnreadNotifications int64 `json:"unread_notifications"`
		Total               int64 `json:"total"`
	}
	summary := decode[unread](t, bob.do(http.MethodGet, "/api/chat/unread", nil))
	assert.EqualValues(t, 1, summary.UnreadMessages)
	assert.EqualValues(t, 1, summary.UnreadNotifications)
	assert.EqualValues(t, 2, summary.Total)

	w = bob.do(http.MethodGet, "/api/chat/dialogs/"+dialog.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	summary = decode[unread](t, bob.do(http.MethodGet, "/api/chat/unread", nil))
	assert.Zero(t, summary.Total)

	w = admin.do(http.MethodPost, "/api/panel/users/"+bobID+"/action", map[string]string{"action": "ban", "reason": "spam"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The banned user's token stops working and so does logging in again.
	assert.Equal(t, http.StatusUnauthorized, bob.do(http.MethodGet, "/api/chat/dialogs", nil).Code)
	anon := &client{t: t, handler: h}
	w = anon.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "bob", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = admin.do(http.MethodPost, "/api/panel/announcement", map[string]string{"text": "New rules"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"sent","count":1}`, w.Body.String())
}
