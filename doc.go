// Package main runs the ISL announcer server.
//
// The server accepts recorded railway announcements, transcribes them and
// renders an Indian Sign Language video: one sign clip per word (digits
// signed one by one) placed beside an English caption, with the original
// narration as the soundtrack.
//
// # Application Lifecycle
//
//  1. Configuration Loading: environment, optional .env and TOML file
//  2. Database Initialization: SQLite with WAL; interrupted generations are
//     marked as failed
//  3. Component Initialization:
//     - Encoder: ffmpeg/ffprobe with a thread count sized to the host
//     - Sign library: catalog of MEDIA_DIR, cached by directory mtime
//     - Speech: Google Speech-to-Text when SPEECH_API_KEY is set
//     - Thumbnails: libvips with a pure Go fallback
//     - Retention sweeper and metrics collector
//  4. HTTP Server Setup: routes, auth, access log, metrics, gzip
//  5. Graceful Shutdown on SIGINT/SIGTERM
//
// # HTTP Server
//
// The main server (PORT, default 8080) serves the JSON API. A second server
// on METRICS_PORT (default 9090) exposes Prometheus metrics when
// METRICS_ENABLED is true.
//
// Generation requests hold the connection open until the video is written;
// progress is available on the announcement's websocket event stream.
//
// # Build Requirements
//
// CGO is required for SQLite and libvips. ffmpeg and ffprobe must be on PATH
// at runtime.
package main
