package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedream1831-collab/threads/internal/config"
)

func authTestApp(t *testing.T) *fiber.App {
	t.Helper()
	InitMiddleware(&config.Config{SessionSecret: "test-secret"})

	app := fiber.New()
	app.Get("/protected", SessionRequired, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sessionId": c.Locals("sessionID")})
	})
	return app
}

func TestSessionRequired(t *testing.T) {
	app := authTestApp(t)

	token, err := IssueSessionToken("session-123", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}
}

func TestSessionRequiredInjectsContextValue(t *testing.T) {
	InitMiddleware(&config.Config{SessionSecret: "test-secret"})

	app := fiber.New()
	app.Get("/protected", SessionRequired, func(c *fiber.Ctx) error {
		sid, _ := c.UserContext().Value(SessionIDKey).(string)
		return c.SendString(sid)
	})

	token, err := IssueSessionToken("session-ctx", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// The log handler reads the session id off the request context.
	assert.Equal(t, "session-ctx", string(body))
}

func TestSessionRequiredRejectsExpiredToken(t *testing.T) {
	app := authTestApp(t)

	token, err := IssueSessionToken("session-123", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSessionRequiredRejectsWrongSigningKey(t *testing.T) {
	app := authTestApp(t)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "session-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}
