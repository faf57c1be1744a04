package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"inventory-keeper/internal/auth"
)

// brokenRevoker fails every lookup, like an unreachable redis.
type brokenRevoker struct{}

func (brokenRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return errors.New("connection refused")
}

func (brokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return false, errors.New("connection refused")
}

func newIdentifyRouter(t *testing.T, tokens *auth.TokenManager) (*gin.Engine, *logtest.Hook) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := NewHandler(Config{Tokens: tokens, Logger: logger})
	router := gin.New()
	router.Use(h.identify())
	router.GET("/whoami", h.requireAPIAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, h.currentUser(c).Username)
	})
	return router, hook
}

func sessionLogLevel(hook *logtest.Hook) (logrus.Level, bool) {
	for _, entry := range hook.AllEntries() {
		if entry.Message == "ignoring session" || entry.Message == "session check failed, treating request as anonymous" {
			return entry.Level, true
		}
	}
	return 0, false
}

func TestIdentify_BackendFailureLogsWarning(t *testing.T) {
	tokens, err := auth.NewTokenManager("test-secret", time.Hour, brokenRevoker{})
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	router, hook := newIdentifyRouter(t, tokens)

	token, _, err := tokens.Issue("1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	level, ok := sessionLogLevel(hook)
	if !ok || level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got level=%v logged=%v", level, ok)
	}
}

func TestIdentify_InvalidTokenLogsDebug(t *testing.T) {
	tokens, err := auth.NewTokenManager("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	router, hook := newIdentifyRouter(t, tokens)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	level, ok := sessionLogLevel(hook)
	if !ok || level != logrus.DebugLevel {
		t.Fatalf("expected a debug entry, got level=%v logged=%v", level, ok)
	}
}
