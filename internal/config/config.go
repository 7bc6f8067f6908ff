package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string // 为空时不校验 token

	Location *time.Location // 每日统计与连续天数使用的时区
	RedisAddr string        // 为空时不镜像到 Redis

	SweepSchedule  string // cron 表达式，为空时禁用定时清理
	FixRateLimit   int    // 每个 IP 每分钟最多提交的定位请求数
	PersistRetries int
	PersistBackoff time.Duration
}

// Load 加载配置
func Load() *Config {
	// .env 可选
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/drk.db"
	}

	loc := time.Local
	if name := os.Getenv("TZ_NAME"); name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			log.Printf("[Config] Unknown TZ_NAME %q, using local time: %v", name, err)
		} else {
			loc = l
		}
	}

	sweep, ok := os.LookupEnv("SWEEP_SCHEDULE")
	if !ok {
		sweep = "@every 15m"
	}

	return &Config{
		Port:           port,
		DBPath:         dbPath,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Location:       loc,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		SweepSchedule:  sweep,
		FixRateLimit:   envInt("FIX_RATE_LIMIT", 120),
		PersistRetries: envInt("PERSIST_RETRIES", 3),
		PersistBackoff: time.Duration(envInt("PERSIST_BACKOFF_MS", 200)) * time.Millisecond,
	}
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("[Config] Invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}
