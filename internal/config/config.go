package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config centralizes runtime settings for the orchestrator process.
type Config struct {
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LockPath string

	ReconcileInterval time.Duration
	FailureCooldown   time.Duration

	StartRetries    int
	StartRetryDelay time.Duration

	PollTimeout     time.Duration
	SendRetries     int
	SendRetryDelay  time.Duration
	SendRateRPS     float64
	SendRateBurst   int
	DispatchWorkers int

	HealthInterval  time.Duration
	UpdateRecency   time.Duration
	ConflictWindow  time.Duration
	LoopAlertWindow time.Duration

	DuplicateLookbackRows int
	RequestDedupeWindow   time.Duration
	SessionIdle           time.Duration
}

func Load() Config {
	return Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LockPath: getEnv("LOCK_PATH", filepath.Join(os.TempDir(), "nowab-botd.lock")),

		ReconcileInterval: getEnvSeconds("RECONCILE_INTERVAL_SECONDS", 10),
		FailureCooldown:   getEnvSeconds("FAILURE_COOLDOWN_SECONDS", 300),

		StartRetries:    getEnvInt("START_RETRIES", 3),
		StartRetryDelay: getEnvSeconds("START_RETRY_DELAY_SECONDS", 8),

		PollTimeout:     getEnvSeconds("POLL_TIMEOUT_SECONDS", 25),
		SendRetries:     getEnvInt("SEND_RETRIES", 3),
		SendRetryDelay:  time.Duration(getEnvInt("SEND_RETRY_DELAY_MS", 1500)) * time.Millisecond,
		SendRateRPS:     getEnvFloat("SEND_RATE_RPS", 25),
		SendRateBurst:   getEnvInt("SEND_RATE_BURST", 30),
		DispatchWorkers: getEnvInt("DISPATCH_WORKERS_PER_TENANT", 8),

		HealthInterval:  getEnvSeconds("HEALTH_INTERVAL_SECONDS", 120),
		UpdateRecency:   getEnvSeconds("UPDATE_RECENCY_SECONDS", 1800),
		ConflictWindow:  getEnvSeconds("CONFLICT_ALERT_WINDOW_SECONDS", 600),
		LoopAlertWindow: getEnvSeconds("LOOP_ALERT_WINDOW_SECONDS", 600),

		DuplicateLookbackRows: getEnvInt("DUPLICATE_LOOKBACK_ROWS", 100),
		RequestDedupeWindow:   time.Duration(getEnvInt("REQUEST_DEDUPE_WINDOW_MINUTES", 60)) * time.Minute,
		SessionIdle:           time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 360)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
