package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/drk-backend-go/internal/config"
	"github.com/jengzang/drk-backend-go/internal/database"
	"github.com/jengzang/drk-backend-go/internal/handler"
	"github.com/jengzang/drk-backend-go/internal/middleware"
	"github.com/jengzang/drk-backend-go/internal/progression"
	"github.com/jengzang/drk-backend-go/internal/repository"
	"github.com/jengzang/drk-backend-go/internal/service"
	"github.com/jengzang/drk-backend-go/internal/tracking"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T, cfg *config.Config, fixLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "drk.db")})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := repository.NewStore(db)
	store.Titles.Seed(context.Background(), progression.DefaultTitles())

	tracker := tracking.NewTracker(store, tracking.Options{})
	t.Cleanup(tracker.Close)

	limiter := middleware.NewRateLimiter(fixLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	return SetupRouter(cfg, Handlers{
		Tracking:   handler.NewTrackingHandler(tracker),
		History:    handler.NewHistoryHandler(service.NewHistoryService(store)),
		FixLimiter: limiter,
	})
}

func token(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "runner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func serve(r *gin.Engine, method, path, body, bearer string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, &config.Config{}, 10)
	if code := serve(r, http.MethodGet, "/health", "", ""); code != http.StatusOK {
		t.Errorf("health = %d", code)
	}
	if code := serve(r, http.MethodOptions, "/api/v1/player", "", ""); code != http.StatusNoContent {
		t.Errorf("preflight = %d", code)
	}
}

func TestRouter_MutationsRequireToken(t *testing.T) {
	r := newTestRouter(t, &config.Config{JWTSecret: testSecret}, 10)

	if code := serve(r, http.MethodPost, "/api/v1/tracking/start", "", ""); code != http.StatusUnauthorized {
		t.Errorf("start without token = %d, want 401", code)
	}
	if code := serve(r, http.MethodPost, "/api/v1/tracking/start", "", token(t)); code != http.StatusOK {
		t.Errorf("start with token = %d, want 200", code)
	}
	if code := serve(r, http.MethodGet, "/api/v1/tracking/state", "", ""); code != http.StatusOK {
		t.Errorf("state is public, got %d", code)
	}
	if code := serve(r, http.MethodPost, "/api/v1/tracking/stop", "", token(t)); code != http.StatusOK {
		t.Errorf("stop with token = %d, want 200", code)
	}
}

func TestRouter_FixesRateLimited(t *testing.T) {
	r := newTestRouter(t, &config.Config{}, 2)
	fix := `{"latitude": 1, "longitude": 1}`

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, http.MethodPost, "/api/v1/tracking/fixes", fix, ""))
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}
