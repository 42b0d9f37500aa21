package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"safesphere/internal/access"
	"safesphere/internal/app"
	"safesphere/internal/apperr"
	"safesphere/internal/auth"
	"safesphere/internal/httpmiddleware"
	"safesphere/internal/model"
	"safesphere/internal/qr"
	"safesphere/internal/registry"
)

// Config carries the token and rendering settings the handlers need.
type Config struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	QRSize        int
}

type Handler struct {
	ctrl    *app.Controller
	cfg     Config
	limiter *httpmiddleware.TokenBucket
	log     zerolog.Logger
}

func New(ctrl *app.Controller, cfg Config, limiter *httpmiddleware.TokenBucket, log zerolog.Logger) *Handler {
	return &Handler{ctrl: ctrl, cfg: cfg, limiter: limiter, log: log.With().Str("component", "http").Logger()}
}

// Register mounts the API under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	public := api.Group("")
	if h.limiter != nil {
		public.Use(h.limiter.Middleware())
	}
	public.POST("/signup", h.Signup)
	public.POST("/login", h.Login)

	authed := api.Group("", auth.SessionAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer, h.ctrl.Current))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.GET("/me/areas", h.Areas)
	authed.GET("/me/qr", access.RequireArea(access.AreaMyQR), h.QRCode)
	authed.GET("/me/attendance", access.RequireArea(access.AreaAttendance), h.MyAttendance)
	authed.POST("/incidents", access.RequireArea(access.AreaIncidents), h.SubmitIncident)
	authed.GET("/incidents", access.RequireArea(access.AreaIncidents), h.RecentIncidents)
	authed.POST("/sos", h.SOS)
	authed.GET("/notifications", access.RequireArea(access.AreaNotifications), h.Notifications)

	authed.POST("/scan/entry", access.RequireArea(access.AreaScan), h.scan(h.ctrl.RecordEntry))
	authed.POST("/scan/exit", access.RequireArea(access.AreaScan), h.scan(h.ctrl.RecordExit))
	authed.GET("/logs", access.RequireArea(access.AreaLogs), h.Logs)
	authed.POST("/visitors", access.RequireArea(access.AreaVisitors), h.RegisterVisitor)
	authed.GET("/visitors/today", access.RequireArea(access.AreaVisitors), h.TodaysVisitors)
	authed.GET("/reports/daily", access.RequireArea(access.AreaReports), h.DailyReport)
	authed.GET("/reports/summary", access.RequireArea(access.AreaReports), h.SummaryReport)
}

// ---------- Errors ----------

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrAuth):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

// confirmation reads {"confirm": bool}; an empty body counts as declined.
func confirmation(c *gin.Context) auth.Confirm {
	var req confirmRequest
	_ = c.ShouldBindJSON(&req)
	return func(string) bool { return req.Confirm }
}

// ---------- Session ----------

func (h *Handler) Signup(c *gin.Context) {
	var req auth.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.ctrl.Signup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully! Please login.",
		"userId":  user.UserID,
	})
}

type loginRequest struct {
	EmailOrID string `json:"emailOrId"`
	Password  string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.ctrl.Login(c.Request.Context(), req.EmailOrID, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := auth.Issue(user.Email, string(user.Role), h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful! Welcome to SafeSphere.",
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt.Unix(),
		"user":         publicUser(user),
		"areas":        access.Areas(user.Role),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	done, err := h.ctrl.Logout(c.Request.Context(), confirmation(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": done})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, publicUser(sessionUser(c)))
}

func (h *Handler) Areas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"areas": access.Areas(sessionUser(c).Role)})
}

func (h *Handler) QRCode(c *gin.Context) {
	png, err := qr.PNG(sessionUser(c).UserID, h.cfg.QRSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) MyAttendance(c *gin.Context) {
	sum, records, err := h.ctrl.MyAttendance()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum, "records": records})
}

// ---------- Scanning & logs ----------

type scanRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) scan(record func(ctx context.Context, id string) (model.LogEntry, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := record(c.Request.Context(), req.UserID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func (h *Handler) Logs(c *gin.Context) {
	var date *time.Time
	if v := c.Query("date"); v != "" {
		d, err := time.ParseInLocation(model.DateLayout, v, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = &d
	}
	c.JSON(http.StatusOK, gin.H{"logs": h.ctrl.Logs(date)})
}

// ---------- Visitors & incidents ----------

func (h *Handler) RegisterVisitor(c *gin.Context) {
	var req registry.VisitorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.ctrl.RegisterVisitor(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) TodaysVisitors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visitors": h.ctrl.TodaysVisitors()})
}

func (h *Handler) SubmitIncident(c *gin.Context) {
	var req registry.IncidentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inc, err := h.ctrl.SubmitIncident(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Incident reported successfully. Authorities have been notified.",
		"incident": inc,
	})
}

func (h *Handler) RecentIncidents(c *gin.Context) {
	limit := registry.DefaultIncidentLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	c.JSON(http.StatusOK, gin.H{"incidents": h.ctrl.RecentIncidents(limit)})
}

func (h *Handler) SOS(c *gin.Context) {
	inc, err := h.ctrl.TriggerSOS(c.Request.Context(), confirmation(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if inc == nil {
		c.JSON(http.StatusOK, gin.H{"sent": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sent": true, "incident": inc})
}

func (h *Handler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.ctrl.Notifications()})
}

// ---------- Reports ----------

func (h *Handler) DailyReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.DailyCounts())
}

func (h *Handler) SummaryReport(c *gin.Context) {
	sum, err := h.ctrl.SummaryReport()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ---------- helpers ----------

func sessionUser(c *gin.Context) model.User {
	u, _ := c.Get("user")
	user, _ := u.(model.User)
	return user
}

func publicUser(u model.User) gin.H {
	return gin.H{
		"userId":   u.UserID,
		"name":     u.Name,
		"email":    u.Email,
		"role":     u.Role,
		"idNumber": u.IDNumber,
	}
}
