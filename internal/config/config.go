package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"boatcatalog/internal/media"
)

const (
	defaultPort            = "8080"
	defaultBackendTimeout  = "15s"
	defaultBackendCacheTTL = "30s"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTTTL          = "12h"
	defaultAdminUsername   = "admin"
	defaultCloudFolder     = "boat-catalog"
	defaultMaxDimension    = "2400"
	defaultJPEGQuality     = "85"
	defaultCORSOrigins     = "http://localhost:3000,http://localhost:5173"
	defaultSnapshotDSN     = "catalog_snapshots.db"
)

type Config struct {
	AppEnv string
	Port   string

	BackendURL      string
	BackendEmail    string
	BackendPassword string
	BackendTimeout  time.Duration
	BackendCacheTTL time.Duration

	ImageBasePrefix   string
	CatalogTablesFile string

	JWTSecret         string
	JWTTTL            time.Duration
	AdminUsername     string
	AdminPasswordHash string

	CloudinaryURL      string
	CloudinaryFolder   string
	UploadMaxDimension int
	UploadJPEGQuality  int

	CORSAllowedOrigins []string
	SnapshotDSN        string
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/")
	cfg.BackendEmail = strings.TrimSpace(os.Getenv("BACKEND_EMAIL"))
	cfg.BackendPassword = os.Getenv("BACKEND_PASSWORD")

	var err error
	cfg.BackendTimeout, err = parseDurationEnv("BACKEND_TIMEOUT", defaultBackendTimeout)
	if err != nil {
		return nil, err
	}
	cfg.BackendCacheTTL, err = parseDurationEnv("BACKEND_CACHE_TTL", defaultBackendCacheTTL)
	if err != nil {
		return nil, err
	}

	cfg.ImageBasePrefix = strings.TrimSpace(getEnv("IMAGE_BASE_PREFIX", media.DefaultBasePrefix))
	cfg.CatalogTablesFile = strings.TrimSpace(os.Getenv("CATALOG_TABLES_FILE"))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}
	cfg.AdminUsername = strings.TrimSpace(getEnv("ADMIN_USERNAME", defaultAdminUsername))
	cfg.AdminPasswordHash = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))

	cfg.CloudinaryURL = strings.TrimSpace(os.Getenv("CLOUDINARY_URL"))
	cfg.CloudinaryFolder = strings.TrimSpace(getEnv("CLOUDINARY_FOLDER", defaultCloudFolder))
	cfg.UploadMaxDimension, err = parseIntEnv("UPLOAD_MAX_DIMENSION", defaultMaxDimension)
	if err != nil {
		return nil, err
	}
	cfg.UploadJPEGQuality, err = parseIntEnv("UPLOAD_JPEG_QUALITY", defaultJPEGQuality)
	if err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins))
	cfg.SnapshotDSN = strings.TrimSpace(getEnv("SNAPSHOT_DSN", defaultSnapshotDSN))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s backend=%s image_base=%s cloudinary=%t", cfg.AppEnv, cfg.BackendURL, cfg.ImageBasePrefix, cfg.CloudinaryURL != "")

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL must be set")
	}
	if !strings.HasPrefix(cfg.BackendURL, "http://") && !strings.HasPrefix(cfg.BackendURL, "https://") {
		return fmt.Errorf("BACKEND_URL must be an http(s) URL")
	}
	if cfg.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.UploadMaxDimension <= 0 {
		return fmt.Errorf("UPLOAD_MAX_DIMENSION must be > 0")
	}
	if cfg.UploadJPEGQuality < 1 || cfg.UploadJPEGQuality > 100 {
		return fmt.Errorf("UPLOAD_JPEG_QUALITY must be between 1 and 100")
	}
	if cfg.CloudinaryURL != "" && !strings.HasPrefix(cfg.CloudinaryURL, "cloudinary://") {
		return fmt.Errorf("CLOUDINARY_URL must start with cloudinary://")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.AdminPasswordHash == "" {
			return fmt.Errorf("in prod/release ADMIN_PASSWORD_HASH must be set")
		}
		if cfg.BackendEmail == "" || cfg.BackendPassword == "" {
			return fmt.Errorf("in prod/release BACKEND_EMAIL and BACKEND_PASSWORD must be set")
		}
	}

	return nil
}

// IsProdLike reports whether the config targets a production environment.
func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
