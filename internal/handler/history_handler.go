package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/service"
	"github.com/jengzang/drk-backend-go/pkg/response"
)

// HistoryHandler handles HTTP requests for stored sessions and progression
type HistoryHandler struct {
	historyService *service.HistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// ListSessions handles GET /api/v1/sessions
func (h *HistoryHandler) ListSessions(c *gin.Context) {
	var filter models.SessionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.historyService.ListSessions(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, page)
}

// GetSession handles GET /api/v1/sessions/:id
func (h *HistoryHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.historyService.GetSession(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Session not found")
		return
	}

	response.Success(c, session)
}

// GetSessionPoints handles GET /api/v1/sessions/:id/points
func (h *HistoryHandler) GetSessionPoints(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var filter models.TrackPointFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter.SessionID = id

	points, err := h.historyService.GetSessionPoints(c.Request.Context(), filter)
	if err != nil {
		serviceError(c, err, "Session not found")
		return
	}

	response.Success(c, points)
}

// GetSessionSummary handles GET /api/v1/sessions/:id/summary
func (h *HistoryHandler) GetSessionSummary(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	summary, err := h.historyService.SessionSummary(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Session not found")
		return
	}

	response.Success(c, summary)
}

// GetDailyStats handles GET /api/v1/stats/daily
func (h *HistoryHandler) GetDailyStats(c *gin.Context) {
	var filter models.DailyStatFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	stats, err := h.historyService.DailyRange(c.Request.Context(), filter)
	if err != nil {
		serviceError(c, err, "")
		return
	}

	response.Success(c, stats)
}

// GetPlayer handles GET /api/v1/player
func (h *HistoryHandler) GetPlayer(c *gin.Context) {
	player, err := h.historyService.Player(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, player)
}

// GetTitles handles GET /api/v1/titles
func (h *HistoryHandler) GetTitles(c *gin.Context) {
	titles, err := h.historyService.Titles(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, titles)
}

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "Invalid session ID")
		return 0, false
	}
	return id, true
}

func serviceError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, notFound)
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}
