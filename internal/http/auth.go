package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"inventory-keeper/internal/auth"
	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/service"
)

type registerRequest struct {
	Username         string `json:"username" binding:"required"`
	Password         string `json:"password" binding:"required"`
	RegisterPassword string `json:"register_password"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// identify installs the caller's identity on the request context when a
// valid session is presented. It never rejects a request.
func (h *Handler) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := sessionToken(c, h.cookieName)
		if raw == "" || h.tokens == nil {
			c.Next()
			return
		}

		id, err := h.tokens.Verify(c.Request.Context(), raw)
		if err != nil {
			entry := h.requestLog(c).WithError(err)
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevokedToken) {
				entry.Debug("ignoring session")
			} else {
				entry.Warn("session check failed, treating request as anonymous")
			}
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (h *Handler) requireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.FromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func (h *Handler) requirePageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.FromContext(c.Request.Context()); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser is only called behind one of the require* gates.
func (h *Handler) currentUser(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}

func sessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.RegisterPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistration):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidRegistrationPassword), errors.Is(err, service.ErrRegistrationDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.fail(c, err)
		}
		return
	}

	h.requestLog(c).WithField("username", user.Username).Info("user registered")
	c.JSON(http.StatusCreated, UserResponse{ID: user.ID, Username: user.Username})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}

	token, expiresAt, err := h.startSession(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User:      UserResponse{ID: user.ID, Username: user.Username},
	})
}

// me reports the signed in account. A valid session for a deleted account
// is answered with 401.
func (h *Handler) me(c *gin.Context) {
	id, err := strconv.ParseInt(h.currentUser(c).Subject, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Username: user.Username})
}

func (h *Handler) logoutAPI(c *gin.Context) {
	h.endSession(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) startSession(c *gin.Context, user *domain.User) (string, time.Time, error) {
	token, expiresAt, err := h.tokens.Issue(user.Subject(), user.Username)
	if err != nil {
		return "", time.Time{}, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.tokens.TTL().Seconds()), "/", "", h.secureCookie, true)
	return token, expiresAt, nil
}

func (h *Handler) endSession(c *gin.Context) {
	if id, ok := auth.FromContext(c.Request.Context()); ok {
		if err := h.tokens.Revoke(c.Request.Context(), id); err != nil {
			h.requestLog(c).WithError(err).Warn("revoke session")
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookie, true)
}
