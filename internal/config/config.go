package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	MediaDir string

	AuthSecret      string
	EnableLocalAuth bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// empty RedisURL logs notifications instead of publishing them
	RedisURL      string
	NotifyChannel string
	SiteID        string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		MediaDir:           envOr("MEDIA_DIR", "./data/media"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", true),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://quiz.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
		RedisURL:           os.Getenv("REDIS_URL"),
		NotifyChannel:      envOr("NOTIFY_CHANNEL", "quiz.attempt.passed"),
		SiteID:             envOr("SITE_ID", "local"),
		RequestTimeout:     time.Duration(envInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout:    time.Duration(envInt("SHUTDOWN_TIMEOUT_SEC", 15)) * time.Second,
	}
}

// CORSOrigins returns the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
