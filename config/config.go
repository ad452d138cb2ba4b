package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string

	UploadDir  string
	OutputDir  string
	ArchiveDir string

	MaxUploadBytes int64

	// SessionTTL is how long an idle session survives before the
	// retention sweeper reclaims it.
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// ArchiveGrace is how long a served batch archive stays on disk
	// before its deferred deletion fires.
	ArchiveGrace time.Duration

	MaxConcurrentConversions int

	AllowedOrigins []string

	// Engine binary overrides; empty means PATH lookup.
	LibreOfficePath string
	PandocPath      string
	PDFToTextPath   string
	PDFToPPMPath    string
	ImageMagickPath string
	TesseractPath   string
}

func Load() *Config {
	// A missing .env is fine; env vars still apply.
	_ = godotenv.Load()

	return &Config{
		ListenAddr:               getEnv("LISTEN_ADDR", ":8080"),
		UploadDir:                getEnv("UPLOAD_DIR", "uploads"),
		OutputDir:                getEnv("OUTPUT_DIR", "outputs"),
		ArchiveDir:               getEnv("ARCHIVE_DIR", "archives"),
		MaxUploadBytes:           getEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20),
		SessionTTL:               getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval:            getEnvAsDuration("SWEEP_INTERVAL", time.Hour),
		ArchiveGrace:             getEnvAsDuration("ARCHIVE_GRACE", time.Minute),
		MaxConcurrentConversions: getEnvAsInt("MAX_CONCURRENT_CONVERSIONS", 4),
		AllowedOrigins:           []string{getEnv("ALLOWED_ORIGIN", "*")},
		LibreOfficePath:          getEnv("LIBREOFFICE_PATH", ""),
		PandocPath:               getEnv("PANDOC_PATH", ""),
		PDFToTextPath:            getEnv("PDFTOTEXT_PATH", ""),
		PDFToPPMPath:             getEnv("PDFTOPPM_PATH", ""),
		ImageMagickPath:          getEnv("IMAGEMAGICK_PATH", ""),
		TesseractPath:            getEnv("TESSERACT_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
