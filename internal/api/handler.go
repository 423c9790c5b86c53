package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/estudorank/estudorank/internal/catalog"
	"github.com/estudorank/estudorank/internal/chat"
	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/internal/progress"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/gin-gonic/gin"
)

type LeaderboardService interface {
	Resolve(ctx context.Context, p leaderboard.Params) (*leaderboard.Page, error)
}

type CatalogService interface {
	ListCourses(ctx context.Context) ([]catalog.Course, error)
	CreateCourse(ctx context.Context, in catalog.CourseInput) (*catalog.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	ListModules(ctx context.Context, courseID string) ([]catalog.Module, error)
	CreateModule(ctx context.Context, courseID string, in catalog.ModuleInput) (*catalog.Module, error)
	DeleteModule(ctx context.Context, id string) error
}

type ProgressService interface {
	CompleteModule(ctx context.Context, userID, moduleID string) (*progress.Completion, error)
	Summary(ctx context.Context, userID string) (*progress.Summary, error)
}

type ChatService interface {
	Post(ctx context.Context, userID, content string) (*chat.Message, error)
	Recent(ctx context.Context, limit int) ([]chat.Message, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RealtimeHandler interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// Services groups the Handler's collaborators. Health and Realtime are optional.
type Services struct {
	Leaderboard LeaderboardService
	Catalog     CatalogService
	Progress    ProgressService
	Chat        ChatService
	Health      HealthChecker
	Realtime    RealtimeHandler
}

type Handler struct {
	leaderboard LeaderboardService
	catalog     CatalogService
	progress    ProgressService
	chat        ChatService
	health      HealthChecker
	realtime    RealtimeHandler
}

func NewHandler(s Services) *Handler {
	return &Handler{
		leaderboard: s.Leaderboard,
		catalog:     s.Catalog,
		progress:    s.Progress,
		chat:        s.Chat,
		health:      s.Health,
		realtime:    s.Realtime,
	}
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			logger.Error("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetLeaderboard serves one page of the ranking. Failures are reported in
// the body as {ok:false} rather than through ErrorMiddleware.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	params := leaderboard.ParseParams(c.Query("page"), c.Query("pageSize"))
	page, err := h.leaderboard.Resolve(c.Request.Context(), params)
	if err != nil {
		logger.Error("Failed to resolve leaderboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"leaderboard": page.Entries,
		"page":        page.Page,
		"pageSize":    page.PageSize,
		"total":       page.Total,
		"pages":       page.Pages,
	})
}

func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.catalog.ListCourses(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *Handler) ListModules(c *gin.Context) {
	modules, err := h.catalog.ListModules(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": modules})
}

func (h *Handler) CreateCourse(c *gin.Context) {
	var in catalog.CourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(&errors.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) DeleteCourse(c *gin.Context) {
	if err := h.catalog.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateModule(c *gin.Context) {
	var in catalog.ModuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(&errors.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	module, err := h.catalog.CreateModule(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, module)
}

func (h *Handler) DeleteModule(c *gin.Context) {
	if err := h.catalog.DeleteModule(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CompleteModule answers 201 for a new completion and 200 for a repeat.
func (h *Handler) CompleteModule(c *gin.Context) {
	claims := currentClaims(c)
	completion, err := h.progress.CompleteModule(c.Request.Context(), claims.UserID(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	status := http.StatusCreated
	if completion.AlreadyCompleted {
		status = http.StatusOK
	}
	c.JSON(status, completion)
}

func (h *Handler) GetMyProgress(c *gin.Context) {
	claims := currentClaims(c)
	summary, err := h.progress.Summary(c.Request.Context(), claims.UserID())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.chat.Recent(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(&errors.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	claims := currentClaims(c)
	msg, err := h.chat.Post(c.Request.Context(), claims.UserID(), req.Content)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) WebSocket(c *gin.Context) {
	if h.realtime == nil {
		c.Error(&errors.APIError{StatusCode: http.StatusServiceUnavailable, Message: "Realtime updates are unavailable"})
		return
	}
	h.realtime.HandleWebSocket(c.Writer, c.Request)
}
