package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	LogFile      string
	MaxUploadMB  int

	// внешний бэкенд расчёта цены
	PricingURL       string
	PricingTimeout   time.Duration
	PricingDebounce  time.Duration
	PricingCacheSize int
	SessionTTL       time.Duration // брошенная сессия закрывается после простоя
	MaxSessions      int

	SearchMinScore float64
	CatalogFile    string // необязательная предзагрузка каталога при старте
}

func Load() Config {
	origins := strings.Split(getenv("ALLOW_ORIGINS", "*"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		Host:             getenv("HOST", "127.0.0.1"),
		Port:             getint("PORT", 8082),
		AllowOrigins:     origins,
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogFile:          getenv("LOG_FILE", "logs/pos-catalog.log"),
		MaxUploadMB:      getint("MAX_UPLOAD_MB", 64),
		PricingURL:       getenv("PRICING_API_URL", "http://127.0.0.1:8080/api"),
		PricingTimeout:   getduration("PRICING_TIMEOUT", 10*time.Second),
		PricingDebounce:  getduration("PRICING_DEBOUNCE", 300*time.Millisecond),
		PricingCacheSize: getint("PRICING_CACHE_SIZE", 50),
		SessionTTL:       getduration("PRICING_SESSION_TTL", 30*time.Minute),
		MaxSessions:      getint("PRICING_MAX_SESSIONS", 1000),
		SearchMinScore:   getfloat("SEARCH_MIN_SCORE", 0.1),
		CatalogFile:      getenv("CATALOG_FILE", ""),
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	n, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return n
}

func getfloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(k, ""), 64)
	if err != nil {
		return def
	}
	return f
}

// getduration принимает "300ms", "10s" и т.п.
func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, ""))
	if err != nil || d < 0 {
		return def
	}
	return d
}
