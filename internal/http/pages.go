package http

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-keeper/internal/auth"
	"inventory-keeper/internal/service"
)

//go:embed web/templates/*.html web/static
var webFS embed.FS

type pageUser struct {
	Name    string
	Subject string
}

func (h *Handler) registerPages(router *gin.Engine) {
	tmpl := template.Must(template.New("").ParseFS(webFS, "web/templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	router.StaticFS("/static", http.FS(static))

	router.GET("/", h.indexPage)
	router.GET("/login", h.loginPage)
	router.POST("/login", h.loginForm)
	router.GET("/logout", h.logoutPage)
	router.GET("/inventory", h.requirePageAuth(), h.inventoryPage)
}

// pageData carries the variables every shell page renders with.
func pageData(c *gin.Context, extra gin.H) gin.H {
	data := gin.H{"isAuthenticated": false, "user": nil}
	if id, ok := auth.FromContext(c.Request.Context()); ok {
		data["isAuthenticated"] = true
		data["user"] = &pageUser{Name: id.Username, Subject: id.Subject}
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func (h *Handler) indexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData(c, nil))
}

func (h *Handler) loginPage(c *gin.Context) {
	if _, ok := auth.FromContext(c.Request.Context()); ok {
		c.Redirect(http.StatusFound, "/inventory")
		return
	}
	c.HTML(http.StatusOK, "login.html", pageData(c, nil))
}

func (h *Handler) loginForm(c *gin.Context) {
	username := c.PostForm("username")
	user, err := h.users.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		status := http.StatusUnauthorized
		message := "Invalid username or password."
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.requestLog(c).WithError(err).Error("form login failed")
			status = http.StatusInternalServerError
			message = "Sign in is temporarily unavailable."
		}
		c.HTML(status, "login.html", pageData(c, gin.H{"error": message, "username": username}))
		return
	}

	if _, _, err := h.startSession(c, user); err != nil {
		h.requestLog(c).WithError(err).Error("start session")
		c.HTML(http.StatusInternalServerError, "login.html", pageData(c, gin.H{"error": "Sign in is temporarily unavailable."}))
		return
	}
	c.Redirect(http.StatusSeeOther, "/inventory")
}

func (h *Handler) logoutPage(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) inventoryPage(c *gin.Context) {
	c.HTML(http.StatusOK, "inventory.html", pageData(c, nil))
}
