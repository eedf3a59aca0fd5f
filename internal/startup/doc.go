// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads settings from three layers, lowest precedence first:
// a .env file (path from ENV_FILE, default ./.env), a flat TOML file named
// by CONFIG_FILE, and the process environment. TOML keys match the variable
// names case-insensitively.
//
//   - MEDIA_DIR: sign clip library, never created (default: /media)
//   - WORK_DIR: uploads, thumbnails, scratch space and the generation lock (default: /work)
//   - OUTPUT_DIR: generated videos (default: /output)
//   - DATABASE_DIR: SQLite database directory (default: /database)
//   - PORT, METRICS_PORT, METRICS_ENABLED, AUTH_ENABLED
//   - RETENTION: how long announcements and their files are kept (default: 24h)
//   - SESSION_DURATION: operator session lifetime (default: 12h)
//   - MAX_UPLOAD_MB: upload size limit (default: 50)
//   - SPEECH_API_KEY, SPEECH_ENDPOINT, SPEECH_LANGUAGE (default: en-IN), SPEECH_RATE_PER_MINUTE (default: 30)
//   - CAPTION_PREFIX: text before each caption (default: "English: ")
//   - IMAGE_SEGMENT_SECONDS: still image duration (default: 2)
//   - ENCODER_THREADS: ffmpeg threads, 0 for automatic
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
//
// # Lifecycle Logging
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogDatabaseInit(time.Since(dbStart))
//	startup.LogEncoderInit(threads)
//	...
//	startup.LogServerStarted(startup.ServerConfig{Port: config.Port})
package startup
