package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inventory-keeper/internal/auth"
	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/service"
	"inventory-keeper/internal/storage"
)

// Config carries the collaborators the HTTP layer is wired to.
type Config struct {
	Items   service.ItemService
	Users   service.UserService
	Exports service.ExportService
	Tokens  *auth.TokenManager
	Logger  *logrus.Logger

	CookieName   string
	SecureCookie bool
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	items   service.ItemService
	users   service.UserService
	exports service.ExportService
	tokens  *auth.TokenManager
	log     *logrus.Logger

	cookieName   string
	secureCookie bool
	ready        func(ctx context.Context) error
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	return &Handler{
		items:        cfg.Items,
		users:        cfg.Users,
		exports:      cfg.Exports,
		tokens:       cfg.Tokens,
		log:          cfg.Logger,
		cookieName:   cfg.CookieName,
		secureCookie: cfg.SecureCookie,
		ready:        cfg.Ready,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	// Route on the escaped path so an encoded "/" stays inside :search.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(requestLogger(h.log), h.identify())
	h.registerPages(router)

	router.GET("/readyz", h.readyz)

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.requireAPIAuth(), h.logoutAPI)
		api.GET("/auth/me", h.requireAPIAuth(), h.me)
	}

	inventory := api.Group("/inventory", h.requireAPIAuth())
	{
		inventory.GET("/all", h.listItems)
		inventory.GET("/total", h.totalItems)
		inventory.GET("/find/:search", h.findItems)
		inventory.POST("/add", h.addItem)
		inventory.POST("/update", h.updateItem)
		inventory.DELETE("/remove/:id", h.removeItem)
		inventory.POST("/export", h.exportItems)
		inventory.GET("/exports", h.listExports)
		inventory.DELETE("/exports", h.deleteExports)
		inventory.GET("/exports/link", h.exportLink)
	}
}

// yearText accepts either a JSON string or number.
type yearText string

func (y *yearText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = yearText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("year must be a string or number")
	}
	*y = yearText(n.String())
	return nil
}

type itemRequest struct {
	Brand string   `json:"brand"`
	Model string   `json:"model"`
	Year  yearText `json:"year"`
	Color string   `json:"color"`
}

func (r itemRequest) input() service.ItemInput {
	return service.ItemInput{
		Brand: r.Brand,
		Model: r.Model,
		Year:  string(r.Year),
		Color: r.Color,
	}
}

type updateItemRequest struct {
	ID int64 `json:"id" binding:"required"`
	itemRequest
}

type ItemResponse struct {
	ID    int64  `json:"id"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Color string `json:"color"`
}

type ExportResponse struct {
	Key        string `json:"key"`
	Location   string `json:"location"`
	Total      int    `json:"total"`
	ExportedAt string `json:"exported_at"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func (h *Handler) listItems(c *gin.Context) {
	user := h.currentUser(c)
	items, err := h.items.List(c.Request.Context(), user.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, itemsToResponse(items))
}

func (h *Handler) totalItems(c *gin.Context) {
	user := h.currentUser(c)
	total, err := h.items.Total(c.Request.Context(), user.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (h *Handler) findItems(c *gin.Context) {
	user := h.currentUser(c)
	items, err := h.items.Find(c.Request.Context(), user.Subject, c.Param("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, itemsToResponse(items))
}

func (h *Handler) addItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := h.currentUser(c)
	id, err := h.items.Add(c.Request.Context(), user.Subject, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := h.currentUser(c)
	id, matched, err := h.items.Update(c.Request.Context(), user.Subject, req.ID, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !matched {
		c.JSON(http.StatusOK, gin.H{"id": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) removeItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	user := h.currentUser(c)
	deleted, err := h.items.Remove(c.Request.Context(), user.Subject, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": deleted})
}

func (h *Handler) exportItems(c *gin.Context) {
	if h.exports == nil {
		h.fail(c, service.ErrStorageNotConfigured)
		return
	}
	user := h.currentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	export, err := h.exports.Export(ctx, user.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ExportResponse{
		Key:        export.Key,
		Location:   export.Location,
		Total:      export.Total,
		ExportedAt: export.ExportedAt.Format(time.RFC3339),
	})
}

func (h *Handler) listExports(c *gin.Context) {
	if h.exports == nil {
		h.fail(c, service.ErrStorageNotConfigured)
		return
	}
	user := h.currentUser(c)
	objects, err := h.exports.ListExports(c.Request.Context(), user.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deleteExports(c *gin.Context) {
	if h.exports == nil {
		h.fail(c, service.ErrStorageNotConfigured)
		return
	}
	user := h.currentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	if err := h.exports.DeleteExports(ctx, user.Subject); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) exportLink(c *gin.Context) {
	if h.exports == nil {
		h.fail(c, service.ErrStorageNotConfigured)
		return
	}
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	user := h.currentUser(c)
	url, err := h.exports.DownloadURL(c.Request.Context(), user.Subject, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) readyz(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.log.WithError(err).Warn("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not ready"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": "ready"})
}

// fail maps service errors to explicit error responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrMissingUser):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStorageNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.requestLog(c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func itemsToResponse(items []domain.Item) []ItemResponse {
	resp := make([]ItemResponse, len(items))
	for i, item := range items {
		resp[i] = ItemResponse{
			ID:    item.ID,
			Brand: item.Brand,
			Model: item.Model,
			Year:  item.Year,
			Color: item.Color,
		}
	}
	return resp
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
