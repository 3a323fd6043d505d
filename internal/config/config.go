// Package config reads server and CLI settings from the environment.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/crestle/internal/similarity"
)

type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string // "json" or "console"
	DBPath         string
	CatalogFile    string
	ClientOrigins  []string
	SnapshotSecret string
	SnapshotQuota  int // bytes, 0 = unlimited

	SimilarityMode   string
	RGBThreshold     float64
	LabThreshold     float64
	HSLDH            float64
	HSLDS            float64
	HSLDL            float64
	HSLHueWeight     float64
	IgnoreAlphaBelow int
	OverridesFile    string

	MaxGuesses   int
	NameStyle    string // "plain" or "country"
	Caching      string // "precache" or "lazy"
	MaxCanvas    int
	ImageTimeout time.Duration
	ImageRetries int
	DailyTZ      string
}

// Load reads the environment. Unset or unparsable values take defaults.
func Load() *Config {
	def := similarity.Default()
	return &Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DBPath:         getEnv("DB_PATH", "./data/crestle.db"),
		CatalogFile:    getEnv("CATALOG_FILE", "./data/catalog.json"),
		ClientOrigins:  getEnvList("CLIENT_ORIGIN", []string{"http://localhost:5173"}),
		SnapshotSecret: getEnv("SNAPSHOT_SECRET", ""),
		SnapshotQuota:  getEnvInt("SNAPSHOT_QUOTA_BYTES", 0),

		SimilarityMode:   getEnv("SIMILARITY_MODE", string(def.Mode)),
		RGBThreshold:     getEnvFloat("RGB_THRESHOLD", def.RGBThreshold),
		LabThreshold:     getEnvFloat("LAB_THRESHOLD", def.LabThreshold),
		HSLDH:            getEnvFloat("HSL_DH", def.HSL.DH),
		HSLDS:            getEnvFloat("HSL_DS", def.HSL.DS),
		HSLDL:            getEnvFloat("HSL_DL", def.HSL.DL),
		HSLHueWeight:     getEnvFloat("HSL_HUE_WEIGHT", def.HSL.HueWeight),
		IgnoreAlphaBelow: getEnvInt("IGNORE_ALPHA_BELOW", int(def.IgnoreAlphaBelow)),
		OverridesFile:    getEnv("SIMILARITY_OVERRIDES_FILE", ""),

		MaxGuesses:   getEnvInt("MAX_GUESSES", 4),
		NameStyle:    getEnv("NAME_STYLE", "plain"),
		Caching:      getEnv("CACHING", "lazy"),
		MaxCanvas:    getEnvInt("MAX_CANVAS", 512),
		ImageTimeout: getEnvDuration("IMAGE_TIMEOUT", 10*time.Second),
		ImageRetries: getEnvInt("IMAGE_RETRIES", 2),
		DailyTZ:      getEnv("DAILY_TZ", "UTC"),
	}
}

// Similarity builds and validates the comparator configuration.
func (c *Config) Similarity() (similarity.Config, error) {
	mode, err := similarity.ParseMode(c.SimilarityMode)
	if err != nil {
		return similarity.Config{}, err
	}
	if c.IgnoreAlphaBelow < 0 || c.IgnoreAlphaBelow > 255 {
		return similarity.Config{}, fmt.Errorf("IGNORE_ALPHA_BELOW out of range: %d", c.IgnoreAlphaBelow)
	}
	cfg := similarity.Config{
		Mode:         mode,
		RGBThreshold: c.RGBThreshold,
		LabThreshold: c.LabThreshold,
		HSL: similarity.HSLTolerance{
			DH: c.HSLDH, DS: c.HSLDS, DL: c.HSLDL, HueWeight: c.HSLHueWeight,
		},
		IgnoreAlphaBelow: uint8(c.IgnoreAlphaBelow),
	}
	return cfg, cfg.Validate()
}

// Location resolves DailyTZ.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DailyTZ)
	if err != nil {
		return nil, fmt.Errorf("DAILY_TZ: %w", err)
	}
	return loc, nil
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxGuesses < 1 {
		errs = append(errs, fmt.Errorf("MAX_GUESSES must be positive, got %d", c.MaxGuesses))
	}
	switch c.NameStyle {
	case "plain", "country":
	default:
		errs = append(errs, fmt.Errorf("NAME_STYLE must be plain or country, got %q", c.NameStyle))
	}
	switch c.Caching {
	case "precache", "lazy":
	default:
		errs = append(errs, fmt.Errorf("CACHING must be precache or lazy, got %q", c.Caching))
	}
	if _, err := c.Similarity(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Secret returns the snapshot signing key. An unset secret yields a random
// per-process key, so tokens do not survive a restart.
func (c *Config) Secret() (key []byte, ephemeral bool) {
	if c.SnapshotSecret != "" {
		return []byte(c.SnapshotSecret), false
	}
	key = make([]byte, 32)
	_, _ = rand.Read(key)
	return key, true
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
