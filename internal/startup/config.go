package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"isl-announcer/internal/database"
	"isl-announcer/internal/logging"
)

// Config holds all application configuration
type Config struct {
	MediaDir    string
	WorkDir     string
	OutputDir   string
	DatabaseDir string
	Port        string
	MetricsPort string

	MetricsEnabled  bool
	AuthEnabled     bool
	LogStaticFiles  bool
	LogHealthChecks bool

	Retention       time.Duration
	SessionDuration time.Duration
	MaxUploadBytes  int64

	SpeechAPIKey        string
	SpeechEndpoint      string
	SpeechLanguage      string
	SpeechRatePerMinute int

	CaptionPrefix       string
	ImageSegmentSeconds float64
	EncoderThreads      int

	// Derived paths
	DatabasePath string
	UploadDir    string
	ThumbnailDir string

	ThumbnailsEnabled bool
}

// settings resolves a key from the environment first, then from the
// optional config file, then the built-in default.
type settings struct {
	file map[string]string
}

func (s settings) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s settings) getBool(key string, defaultValue bool) bool {
	return parseBool(key, s.get(key, ""), defaultValue)
}

func (s settings) getDuration(key string, defaultValue time.Duration) time.Duration {
	return parseDuration(key, s.get(key, ""), defaultValue)
}

func (s settings) getInt(key string, defaultValue int) int {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s settings) getFloat(key string, defaultValue float64) float64 {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// loadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	logging.Info("  Loaded environment from %s", path)
	return nil
}

// loadConfigFile reads a flat TOML file. Keys are matched case-insensitively
// against the environment variable names, so media_dir and MEDIA_DIR are
// the same setting.
func loadConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: key %q must be a scalar", path, k)
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

// LoadConfig loads and validates configuration from a .env file, an optional
// TOML file named by CONFIG_FILE, and environment variables, in increasing
// order of precedence.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")

	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	s := settings{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		s.file = file
		logging.Info("  Loaded %d settings from %s", len(file), path)
	}

	config := &Config{
		MediaDir:            s.get("MEDIA_DIR", "/media"),
		WorkDir:             s.get("WORK_DIR", "/work"),
		OutputDir:           s.get("OUTPUT_DIR", "/output"),
		DatabaseDir:         s.get("DATABASE_DIR", "/database"),
		Port:                s.get("PORT", "8080"),
		MetricsPort:         s.get("METRICS_PORT", "9090"),
		MetricsEnabled:      s.getBool("METRICS_ENABLED", true),
		AuthEnabled:         s.getBool("AUTH_ENABLED", true),
		LogStaticFiles:      s.getBool("LOG_STATIC_FILES", false),
		LogHealthChecks:     s.getBool("LOG_HEALTH_CHECKS", true),
		Retention:           s.getDuration("RETENTION", 24*time.Hour),
		SessionDuration:     s.getDuration("SESSION_DURATION", 12*time.Hour),
		MaxUploadBytes:      int64(s.getInt("MAX_UPLOAD_MB", 50)) << 20,
		SpeechAPIKey:        s.get("SPEECH_API_KEY", ""),
		SpeechEndpoint:      s.get("SPEECH_ENDPOINT", ""),
		SpeechLanguage:      s.get("SPEECH_LANGUAGE", "en-IN"),
		SpeechRatePerMinute: s.getInt("SPEECH_RATE_PER_MINUTE", 30),
		CaptionPrefix:       s.get("CAPTION_PREFIX", "English: "),
		ImageSegmentSeconds: s.getFloat("IMAGE_SEGMENT_SECONDS", 2),
		EncoderThreads:      s.getInt("ENCODER_THREADS", 0),
	}
	if level := s.get("LOG_LEVEL", ""); level != "" && os.Getenv("LOG_LEVEL") == "" {
		if parsed, ok := logging.ParseLevel(level); ok {
			logging.SetLevel(parsed)
		}
	}

	logging.Info("  MEDIA_DIR:              %s", config.MediaDir)
	logging.Info("  WORK_DIR:               %s", config.WorkDir)
	logging.Info("  OUTPUT_DIR:             %s", config.OutputDir)
	logging.Info("  DATABASE_DIR:           %s", config.DatabaseDir)
	logging.Info("  PORT:                   %s", config.Port)
	logging.Info("  METRICS_PORT:           %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:        %v", config.MetricsEnabled)
	logging.Info("  AUTH_ENABLED:           %v", config.AuthEnabled)
	logging.Info("  RETENTION:              %v", config.Retention)
	logging.Info("  SESSION_DURATION:       %v", config.SessionDuration)
	logging.Info("  MAX_UPLOAD_MB:          %d", config.MaxUploadBytes>>20)
	logging.Info("  SPEECH_API_KEY:         %s", redact(config.SpeechAPIKey))
	logging.Info("  SPEECH_LANGUAGE:        %s", config.SpeechLanguage)
	logging.Info("  SPEECH_RATE_PER_MINUTE: %d", config.SpeechRatePerMinute)
	logging.Info("  CAPTION_PREFIX:         %q", config.CaptionPrefix)
	logging.Info("  IMAGE_SEGMENT_SECONDS:  %v", config.ImageSegmentSeconds)
	logging.Info("  ENCODER_THREADS:        %s", autoString(config.EncoderThreads))
	logging.Info("  LOG_STATIC_FILES:       %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:      %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())

	if err := setupDirectories(config); err != nil {
		return nil, err
	}

	return config, nil
}

func setupDirectories(config *Config) error {
	section("DIRECTORY SETUP")

	for _, dir := range []*string{&config.MediaDir, &config.WorkDir, &config.OutputDir, &config.DatabaseDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *dir, err)
		}
		*dir = abs
	}
	logging.Info("  Media directory (absolute):    %s", config.MediaDir)
	logging.Info("  Work directory (absolute):     %s", config.WorkDir)
	logging.Info("  Output directory (absolute):   %s", config.OutputDir)
	logging.Info("  Database directory (absolute): %s", config.DatabaseDir)

	config.DatabasePath = filepath.Join(config.DatabaseDir, database.FileName)
	config.UploadDir = filepath.Join(config.WorkDir, "uploads")
	config.ThumbnailDir = filepath.Join(config.WorkDir, "thumbnails")

	// The media library is mounted, never created. Generation reports a
	// missing directory per request.
	if err := checkMediaDirectory(config.MediaDir); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	required := []struct{ path, name string }{
		{config.DatabaseDir, "database"},
		{config.WorkDir, "work"},
		{config.UploadDir, "upload"},
		{config.OutputDir, "output"},
	}
	for _, dir := range required {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	config.ThumbnailsEnabled = setupOptionalDir(config.ThumbnailDir, "thumbnails")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Thumbnails:  %s", enabledString(config.ThumbnailsEnabled))
	logging.Info("    Auth:        %s", enabledString(config.AuthEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return nil
}

func checkMediaDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("    Contents: %d entries (top level)", len(entries))
		}
	}
	return nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func autoString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(key, value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func parseDuration(key, value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
