package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"boatcatalog/internal/pkg/jwt"
)

func newTestService(t *testing.T) (*Service, *jwt.Service) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("harbour"), bcrypt.MinCost)
	require.NoError(t, err)

	j := jwt.New("secret", time.Hour)
	return NewService("editor", string(hash), j), j
}

func TestLogin_Success(t *testing.T) {
	s, j := newTestService(t)

	resp, err := s.Login(context.Background(), LoginRequest{Username: "editor", Password: "harbour"}, "127.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := j.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "editor", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Login(context.Background(), LoginRequest{Username: "editor", Password: "wrong"}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(context.Background(), LoginRequest{Username: "someone", Password: "harbour"}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	bad := LoginRequest{Username: "editor", Password: "wrong"}

	for i := 1; i < maxFailedLoginAttempts; i++ {
		_, err := s.Login(ctx, bad, "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := s.Login(ctx, bad, "10.0.0.1")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// The right password does not help while locked.
	_, err = s.Login(ctx, LoginRequest{Username: "editor", Password: "harbour"}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// Other clients are unaffected.
	_, err = s.Login(ctx, LoginRequest{Username: "editor", Password: "harbour"}, "10.0.0.2")
	assert.NoError(t, err)
}

func TestLogin_Disabled(t *testing.T) {
	s := NewService("editor", "", jwt.New("secret", time.Hour))

	_, err := s.Login(context.Background(), LoginRequest{Username: "editor", Password: "x"}, "127.0.0.1")

	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, _ := newTestService(t)
	r := gin.New()
	NewHandler(s).RegisterRoutes(r.Group("/api/v1/admin"))

	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"ok", LoginRequest{Username: "editor", Password: "harbour"}, http.StatusOK},
		{"wrong password", LoginRequest{Username: "editor", Password: "nope"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"username": "editor"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}
