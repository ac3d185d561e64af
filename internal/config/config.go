package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"vendor-map-service/internal/domain"
)

// Geolocation modes.
const (
	GeoModeStatic = "static"
	GeoModeIP     = "ip"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port           string
	LogLevel       string
	Categories     []string
	DefaultRangeKm float64
	GeoMode        string
	StaticOrigin   domain.Coordinates
	IPGeoURL       string
	GeoCacheTTL    time.Duration
	GeoTimeout     time.Duration
	DetailsPage    string
}

// Get returns the value of key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s=%q: %w", key, v, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s=%q: %w", key, v, err)
	}
	return d, nil
}

func getList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// FromEnv reads and validates the configuration. Call godotenv.Load first
// to pick up a local .env file.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:        Get("PORT", "8080"),
		LogLevel:    Get("LOG_LEVEL", "info"),
		Categories:  getList("CATEGORIES", domain.DefaultCategories),
		GeoMode:     strings.ToLower(Get("GEO_MODE", GeoModeStatic)),
		IPGeoURL:    Get("IP_GEO_URL", "https://ipapi.co/json/"),
		DetailsPage: Get("DETAILS_PAGE", "vendor-details.html"),
	}

	var err error
	if cfg.DefaultRangeKm, err = getFloat("DEFAULT_RANGE_KM", domain.DefaultRangeKm); err != nil {
		return Config{}, err
	}
	if cfg.DefaultRangeKm <= 0 || math.IsInf(cfg.DefaultRangeKm, 0) || math.IsNaN(cfg.DefaultRangeKm) {
		return Config{}, fmt.Errorf("config: DEFAULT_RANGE_KM must be a positive number, got %v", cfg.DefaultRangeKm)
	}

	if cfg.StaticOrigin.Lat, err = getFloat("STATIC_LAT", 28.6); err != nil {
		return Config{}, err
	}
	if cfg.StaticOrigin.Lon, err = getFloat("STATIC_LON", 77.2); err != nil {
		return Config{}, err
	}
	if err := cfg.StaticOrigin.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: static origin: %w", err)
	}

	// Zero disables caching of IP lookups.
	if cfg.GeoCacheTTL, err = getDuration("GEO_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.GeoCacheTTL < 0 {
		return Config{}, fmt.Errorf("config: GEO_CACHE_TTL must not be negative, got %v", cfg.GeoCacheTTL)
	}

	if cfg.GeoTimeout, err = getDuration("GEO_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GeoTimeout <= 0 {
		return Config{}, fmt.Errorf("config: GEO_TIMEOUT must be positive, got %v", cfg.GeoTimeout)
	}

	if len(cfg.Categories) == 0 {
		return Config{}, fmt.Errorf("config: CATEGORIES must list at least one category")
	}

	switch cfg.GeoMode {
	case GeoModeStatic, GeoModeIP:
	default:
		return Config{}, fmt.Errorf("config: unknown GEO_MODE %q", cfg.GeoMode)
	}

	return cfg, nil
}
