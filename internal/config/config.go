package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Enrollment EnrollmentConfig
	Extractor  ExtractorConfig
	Matching   MatchingConfig
	Web        WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

// EnrollmentConfig points at an optional external roster database.
// When DatabaseURL is empty, rosters and signatures are read from PostgreSQL.
type EnrollmentConfig struct {
	DatabaseURL string // MariaDB DSN (e.g., sis:sis@tcp(mariadb:3306)/sis?parseTime=true)
}

type ExtractorConfig struct {
	URL            string  `yaml:"url"`
	Model          string  `yaml:"model"`
	Dim            int     `yaml:"dim"`
	ResizeScale    float64 `yaml:"resize_scale"`   // detection scale forwarded to the extractor
	MaxImageSize   int     `yaml:"max_image_size"` // frames larger than this are downscaled before upload
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the per-request extractor timeout.
func (c *ExtractorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MatchingConfig holds the two independent acceptance thresholds.
// Tolerance is the geometric cutoff used by the matcher (max Euclidean distance),
// MinConfidence is the business floor applied before a match is recorded.
type MatchingConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type WebConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowedOrigins []string
}

type defaults struct {
	Database  DatabaseConfig  `yaml:"database"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Matching  MatchingConfig  `yaml:"matching"`
	Web       WebConfig       `yaml:"web"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Enrollment: EnrollmentConfig{
			DatabaseURL: os.Getenv("ENROLLMENT_DATABASE_URL"),
		},
		Extractor: ExtractorConfig{
			URL:            envString("EXTRACTOR_URL", d.Extractor.URL),
			Model:          envString("EXTRACTOR_MODEL", d.Extractor.Model),
			Dim:            envInt("SIGNATURE_DIM", d.Extractor.Dim),
			ResizeScale:    envFloat("FRAME_RESIZE_SCALE", d.Extractor.ResizeScale),
			MaxImageSize:   envInt("MAX_IMAGE_SIZE", d.Extractor.MaxImageSize),
			TimeoutSeconds: envInt("EXTRACTOR_TIMEOUT_SECONDS", d.Extractor.TimeoutSeconds),
		},
		Matching: MatchingConfig{
			Tolerance:     envFloat("FACE_RECOGNITION_TOLERANCE", d.Matching.Tolerance),
			MinConfidence: envFloat("MIN_CONFIDENCE_SCORE", d.Matching.MinConfidence),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
