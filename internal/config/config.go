package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"storefront/internal/cache"
	applog "storefront/internal/log"
)

type Config struct {
	Port             string
	DBDSN            string
	LogFile          string
	AdminKeyHash     string
	CategoryTTL      time.Duration
	ReassignWorkers  int
	ReassignSchedule string
	WarmSchedule     string
	ShopsFile        string
}

func Load() Config {
	// .env is optional
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "storefront.db"
	} // sqlite file in project root
	logFile, ok := os.LookupEnv("LOG_FILE")
	if !ok {
		logFile = "./storefront.log"
	}
	ttl := cache.DefaultTTL
	if v := os.Getenv("CATEGORY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	workers := 4
	if v := os.Getenv("REASSIGN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}
	schedule := os.Getenv("REASSIGN_SCHEDULE")
	if schedule == "" {
		schedule = "0 30 3 * * *" // 03:30 daily, seconds field first
	}
	warm := os.Getenv("CATEGORY_WARM_SCHEDULE")
	if warm == "" {
		warm = "@every 5m"
	}

	cfg := Config{
		Port:             port,
		DBDSN:            dsn,
		LogFile:          logFile,
		AdminKeyHash:     os.Getenv("ADMIN_KEY_HASH"),
		CategoryTTL:      ttl,
		ReassignWorkers:  workers,
		ReassignSchedule: schedule,
		WarmSchedule:     warm,
		ShopsFile:        os.Getenv("SHOPS_FILE"),
	}
	applog.Info(nil, "config.loaded", map[string]any{
		"port":              cfg.Port,
		"db_dsn":            cfg.DBDSN,
		"log_file":          cfg.LogFile,
		"admin_enabled":     cfg.AdminKeyHash != "",
		"category_ttl":      cfg.CategoryTTL.String(),
		"reassign_workers":  cfg.ReassignWorkers,
		"reassign_schedule": cfg.ReassignSchedule,
		"warm_schedule":     cfg.WarmSchedule,
		"shops_file":        cfg.ShopsFile,
	})
	return cfg
}
