package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"MEDIA_DIR", "WORK_DIR", "OUTPUT_DIR", "DATABASE_DIR", "PORT", "METRICS_PORT",
	"METRICS_ENABLED", "AUTH_ENABLED", "LOG_STATIC_FILES", "LOG_HEALTH_CHECKS",
	"RETENTION", "SESSION_DURATION", "MAX_UPLOAD_MB", "SPEECH_API_KEY",
	"SPEECH_ENDPOINT", "SPEECH_LANGUAGE", "SPEECH_RATE_PER_MINUTE", "CAPTION_PREFIX",
	"IMAGE_SEGMENT_SECONDS", "ENCODER_THREADS", "CONFIG_FILE", "LOG_LEVEL",
}

// isolateEnv clears every config variable and points all directories into
// a fresh temp tree.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
	root := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(root, "missing.env"))
	t.Setenv("MEDIA_DIR", filepath.Join(root, "media"))
	t.Setenv("WORK_DIR", filepath.Join(root, "work"))
	t.Setenv("OUTPUT_DIR", filepath.Join(root, "output"))
	t.Setenv("DATABASE_DIR", filepath.Join(root, "db"))
	return root
}

func TestLoadConfigDefaults(t *testing.T) {
	root := isolateEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("ports = %s/%s, want 8080/9090", cfg.Port, cfg.MetricsPort)
	}
	if !cfg.MetricsEnabled || !cfg.AuthEnabled || !cfg.LogHealthChecks || cfg.LogStaticFiles {
		t.Errorf("unexpected boolean defaults: %+v", cfg)
	}
	if cfg.Retention != 24*time.Hour {
		t.Errorf("Retention = %v, want 24h", cfg.Retention)
	}
	if cfg.CaptionPrefix != "English: " {
		t.Errorf("CaptionPrefix = %q, want %q", cfg.CaptionPrefix, "English: ")
	}
	if cfg.ImageSegmentSeconds != 2 {
		t.Errorf("ImageSegmentSeconds = %v, want 2", cfg.ImageSegmentSeconds)
	}
	if cfg.SpeechLanguage != "en-IN" || cfg.SpeechRatePerMinute != 30 {
		t.Errorf("speech defaults = %s/%d", cfg.SpeechLanguage, cfg.SpeechRatePerMinute)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 50<<20)
	}
	if cfg.EncoderThreads != 0 {
		t.Errorf("EncoderThreads = %d, want 0 (auto)", cfg.EncoderThreads)
	}

	if cfg.DatabasePath != filepath.Join(root, "db", "announcer.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	for _, dir := range []string{cfg.WorkDir, cfg.UploadDir, cfg.OutputDir, cfg.DatabaseDir, cfg.ThumbnailDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
	if !cfg.ThumbnailsEnabled {
		t.Error("ThumbnailsEnabled = false for writable work dir")
	}

	// The media library is never created
	if _, err := os.Stat(cfg.MediaDir); !os.IsNotExist(err) {
		t.Errorf("media directory should not be created, stat err = %v", err)
	}
}

func TestLoadConfigFileAndOverrides(t *testing.T) {
	root := isolateEnv(t)

	configPath := filepath.Join(root, "announcer.toml")
	content := `
caption_prefix = "Hindi: "
image_segment_seconds = 3.5
retention = "48h"
encoder_threads = 4
AUTH_ENABLED = false
port = "9000"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("PORT", "7000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.CaptionPrefix != "Hindi: " {
		t.Errorf("CaptionPrefix = %q, want file value", cfg.CaptionPrefix)
	}
	if cfg.ImageSegmentSeconds != 3.5 {
		t.Errorf("ImageSegmentSeconds = %v, want 3.5", cfg.ImageSegmentSeconds)
	}
	if cfg.Retention != 48*time.Hour {
		t.Errorf("Retention = %v, want 48h", cfg.Retention)
	}
	if cfg.EncoderThreads != 4 {
		t.Errorf("EncoderThreads = %d, want 4", cfg.EncoderThreads)
	}
	if cfg.AuthEnabled {
		t.Error("AuthEnabled = true, want false from file")
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %s, environment should override file", cfg.Port)
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	root := isolateEnv(t)

	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "invalid toml", content: "port = = 1"},
		{name: "nested table", content: "[speech]\nkey = \"x\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(root, tt.name+".toml")
			if !tt.missing {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			t.Setenv("CONFIG_FILE", path)

			if _, err := LoadConfig(); err == nil {
				t.Error("LoadConfig() expected error")
			}
		})
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	root := isolateEnv(t)

	const key = "SPEECH_ENDPOINT"
	// godotenv only fills unset variables
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	envPath := filepath.Join(root, "test.env")
	if err := os.WriteFile(envPath, []byte(key+"=http://speech.local/v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envPath)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.SpeechEndpoint != "http://speech.local/v1" {
		t.Errorf("SpeechEndpoint = %q, want value from .env", cfg.SpeechEndpoint)
	}
}

func TestLoadConfigDatabaseDirNotDirectory(t *testing.T) {
	root := isolateEnv(t)

	file := filepath.Join(root, "db-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_DIR", file)

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() expected error when DATABASE_DIR is a file")
	}
}

func TestSettingsPrecedence(t *testing.T) {
	t.Setenv("TEST_SETTING_ENV", "env")
	t.Setenv("TEST_SETTING_EMPTY", "")

	s := settings{file: map[string]string{
		"TEST_SETTING_ENV":   "file",
		"TEST_SETTING_FILE":  "file",
		"TEST_SETTING_EMPTY": "file",
	}}

	tests := []struct {
		key  string
		want string
	}{
		{"TEST_SETTING_ENV", "env"},
		{"TEST_SETTING_FILE", "file"},
		{"TEST_SETTING_EMPTY", "file"},
		{"TEST_SETTING_NONE", "default"},
	}
	for _, tt := range tests {
		if got := s.get(tt.key, "default"); got != tt.want {
			t.Errorf("get(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"T", false, true},
		{"false", true, false},
		{"0", true, false},
		{"yes", true, true},
		{"nope", false, false},
	}

	for _, tt := range tests {
		if got := parseBool("KEY", tt.value, tt.defaultValue); got != tt.want {
			t.Errorf("parseBool(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Hour},
		{"30m", 30 * time.Minute},
		{"bogus", time.Hour},
		{"-5m", time.Hour},
		{"0s", time.Hour},
	}

	for _, tt := range tests {
		if got := parseDuration("KEY", tt.value, time.Hour); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSettingsNumbers(t *testing.T) {
	s := settings{file: map[string]string{
		"TEST_INT":       "12",
		"TEST_INT_BAD":   "twelve",
		"TEST_FLOAT":     "2.5",
		"TEST_FLOAT_NEG": "-1",
	}}

	if got := s.getInt("TEST_INT", 1); got != 12 {
		t.Errorf("getInt = %d, want 12", got)
	}
	if got := s.getInt("TEST_INT_BAD", 1); got != 1 {
		t.Errorf("getInt bad = %d, want default 1", got)
	}
	if got := s.getFloat("TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("getFloat = %v, want 2.5", got)
	}
	if got := s.getFloat("TEST_FLOAT_NEG", 1); got != 1 {
		t.Errorf("getFloat negative = %v, want default 1", got)
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"":              "(not set)",
		"abc":           "****",
		"AIzaSyXYZ1234": "****1234",
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}
