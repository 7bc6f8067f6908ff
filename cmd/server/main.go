package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jengzang/drk-backend-go/internal/api"
	"github.com/jengzang/drk-backend-go/internal/config"
	"github.com/jengzang/drk-backend-go/internal/database"
	"github.com/jengzang/drk-backend-go/internal/handler"
	"github.com/jengzang/drk-backend-go/internal/jobs"
	"github.com/jengzang/drk-backend-go/internal/middleware"
	"github.com/jengzang/drk-backend-go/internal/progression"
	"github.com/jengzang/drk-backend-go/internal/repository"
	"github.com/jengzang/drk-backend-go/internal/service"
	"github.com/jengzang/drk-backend-go/internal/stream"
	"github.com/jengzang/drk-backend-go/internal/tracking"
)

type app struct {
	cfg     *config.Config
	db      *sql.DB
	redis   *redis.Client
	tracker *tracking.Tracker
	sweeper *jobs.Sweeper
	limiter *middleware.RateLimiter
	server  *http.Server

	// cancels request contexts so stream handlers return on shutdown
	cancelRequests context.CancelFunc
}

func main() {
	// 加载配置
	cfg := config.Load()

	a := &app{cfg: cfg}
	if err := a.init(); err != nil {
		log.Fatal("Failed to initialize:", err)
	}
	a.start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	a.stop()
}

func (a *app) init() error {
	ctx := context.Background()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: a.cfg.DBPath})
	if err != nil {
		return err
	}
	a.db = db

	store := repository.NewStore(db)
	seeded, err := store.Titles.Seed(ctx, progression.DefaultTitles())
	if err != nil {
		return err
	}
	if seeded > 0 {
		log.Printf("Seeded %d titles", seeded)
	}

	opts := tracking.Options{
		Location: a.cfg.Location,
		Retries:  a.cfg.PersistRetries,
		Backoff:  a.cfg.PersistBackoff,
	}
	if a.cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable at %s, streams stay local: %v", a.cfg.RedisAddr, err)
			a.redis.Close()
			a.redis = nil
		} else {
			opts.StateMirror = stream.NewRedisMirror(a.redis, stream.ChannelName("state"))
			opts.ResultMirror = stream.NewRedisMirror(a.redis, stream.ChannelName("results"))
			log.Printf("Mirroring streams to Redis at %s", a.cfg.RedisAddr)
		}
	}
	a.tracker = tracking.NewTracker(store, opts)

	// Sessions left open by a previous run
	a.sweeper = jobs.NewSweeper(store, a.tracker.ActiveSessionID)
	if n, err := a.sweeper.Sweep(ctx); err != nil {
		log.Printf("Startup sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("Recovered %d orphaned sessions", n)
	}

	a.limiter = middleware.NewRateLimiter(a.cfg.FixRateLimit, time.Minute)

	router := api.SetupRouter(a.cfg, api.Handlers{
		Tracking:   handler.NewTrackingHandler(a.tracker),
		History:    handler.NewHistoryHandler(service.NewHistoryService(store)),
		FixLimiter: a.limiter,
	})

	baseCtx, cancel := context.WithCancel(context.Background())
	a.cancelRequests = cancel
	a.server = &http.Server{
		Addr:        a.cfg.Port,
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	return nil
}

func (a *app) start() {
	if err := a.sweeper.Start(a.cfg.SweepSchedule); err != nil {
		log.Printf("Sweeper not scheduled: %v", err)
	}

	go func() {
		log.Printf("Server starting on port %s", a.cfg.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()
}

func (a *app) stop() {
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.cancelRequests()
	if err := a.server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// An active session stays open; the next start sweeps it
	a.tracker.Close()
	a.sweeper.Stop()
	a.limiter.Stop()

	if a.redis != nil {
		a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}
}
