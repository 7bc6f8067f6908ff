package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jengzang/drk-backend-go/internal/models"
	"github.com/jengzang/drk-backend-go/internal/service"
	"github.com/jengzang/drk-backend-go/internal/stream"
	"github.com/jengzang/drk-backend-go/internal/tracking"
	"github.com/jengzang/drk-backend-go/pkg/response"
)

const (
	maxFixesPerRequest = 500
	wsWriteWait        = 10 * time.Second
)

// LiveTracker is the part of tracking.Tracker the HTTP layer drives
type LiveTracker interface {
	Start(ctx context.Context) (models.TrackingState, error)
	OnFix(ctx context.Context, fix models.LocationFix) (bool, error)
	Stop(ctx context.Context) (*models.ResultEvent, error)
	State() models.TrackingState
	SubscribeState() *stream.Subscription[models.TrackingState]
	SubscribeResults() *stream.Subscription[models.ResultEvent]
}

// FixBatchResult reports how a batch of fixes was handled
type FixBatchResult struct {
	Accepted int                  `json:"accepted"`
	Rejected int                  `json:"rejected"`
	State    models.TrackingState `json:"state"`
}

type fixBatch struct {
	Fixes *[]models.LocationFix `json:"fixes"`
}

type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// TrackingHandler handles HTTP requests that drive the live session
type TrackingHandler struct {
	tracker LiveTracker
	now     func() time.Time
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(tracker LiveTracker) *TrackingHandler {
	return &TrackingHandler{
		tracker: tracker,
		now:     time.Now,
	}
}

// Start handles POST /api/v1/tracking/start
func (h *TrackingHandler) Start(c *gin.Context) {
	state, err := h.tracker.Start(c.Request.Context())
	if err != nil {
		trackerError(c, err)
		return
	}

	response.Success(c, state)
}

// Stop handles POST /api/v1/tracking/stop
func (h *TrackingHandler) Stop(c *gin.Context) {
	event, err := h.tracker.Stop(c.Request.Context())
	if err != nil {
		trackerError(c, err)
		return
	}

	// nil when nothing was being tracked
	response.Success(c, event)
}

// PostFixes handles POST /api/v1/tracking/fixes.
// The body is either a single fix or {"fixes": [...]}, ingested in order.
func (h *TrackingHandler) PostFixes(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		response.BadRequest(c, "Request body is required")
		return
	}

	fixes, err := decodeFixes(body)
	if err != nil {
		response.BadRequest(c, "Invalid fix payload")
		return
	}
	if len(fixes) > maxFixesPerRequest {
		response.BadRequest(c, "Too many fixes in one request")
		return
	}

	result := FixBatchResult{}
	for _, fix := range fixes {
		accepted, err := h.tracker.OnFix(c.Request.Context(), fix)
		if err != nil {
			trackerError(c, err)
			return
		}
		if accepted {
			result.Accepted++
		} else {
			result.Rejected++
		}
	}

	result.State = h.tracker.State()
	response.Success(c, result)
}

// State handles GET /api/v1/tracking/state
func (h *TrackingHandler) State(c *gin.Context) {
	unit := service.ParseUnit(c.Query("unit"))
	response.Success(c, service.BuildView(h.tracker.State(), h.now(), unit))
}

// StreamState handles GET /api/v1/tracking/state/stream (SSE)
func (h *TrackingHandler) StreamState(c *gin.Context) {
	sub := h.tracker.SubscribeState()
	defer sub.Close()
	serveSSE(c, "state", sub.C)
}

// StreamResults handles GET /api/v1/tracking/results/stream (SSE)
func (h *TrackingHandler) StreamResults(c *gin.Context) {
	sub := h.tracker.SubscribeResults()
	defer sub.Close()
	serveSSE(c, "result", sub.C)
}

func serveSSE[T any](c *gin.Context, event string, ch <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case v, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event, v)
			return true
		}
	})
}

// Socket handles GET /api/v1/tracking/ws, pushing both streams over one connection
func (h *TrackingHandler) Socket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[TrackingHandler] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	states := h.tracker.SubscribeState()
	defer states.Close()
	results := h.tracker.SubscribeResults()
	defer results.Close()

	// Inbound frames are ignored; reading only detects the close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var msg streamMessage
		select {
		case <-gone:
			return
		case s, ok := <-states.C:
			if !ok {
				return
			}
			msg = streamMessage{Type: "state", Data: s}
		case r, ok := <-results.C:
			if !ok {
				return
			}
			msg = streamMessage{Type: "result", Data: r}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[TrackingHandler] WebSocket write failed: %v", err)
			return
		}
	}
}

func decodeFixes(body []byte) ([]models.LocationFix, error) {
	var batch fixBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, err
	}
	if batch.Fixes != nil {
		return *batch.Fixes, nil
	}

	var fix models.LocationFix
	if err := json.Unmarshal(body, &fix); err != nil {
		return nil, err
	}
	return []models.LocationFix{fix}, nil
}

func trackerError(c *gin.Context, err error) {
	if errors.Is(err, tracking.ErrClosed) {
		response.ServiceUnavailable(c, "Tracker is shutting down")
		return
	}
	log.Printf("[TrackingHandler] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	response.InternalError(c, err.Error())
}
