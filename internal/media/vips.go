package media

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"isl-announcer/internal/logging"
)

// libvips is process-global; started guards Startup and Shutdown.
var vipsState struct {
	sync.Mutex
	started bool
}

// vipsThreshold maps the application log level to the quietest vips level
// worth forwarding.
func vipsThreshold(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	}
	return vips.LogLevelWarning
}

func forwardVipsLog(threshold vips.LogLevel) func(string, vips.LogLevel, string) {
	return func(domain string, level vips.LogLevel, msg string) {
		if level > threshold {
			return
		}
		switch {
		case level <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// InitVips starts libvips once. Without it thumbnails are decoded in Go.
func InitVips() {
	vipsState.Lock()
	defer vipsState.Unlock()
	if vipsState.started {
		return
	}

	threshold := vipsThreshold(logging.GetLevel())
	vips.LoggingSettings(forwardVipsLog(threshold), threshold)

	// library clips are small, so is the cache
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      32 << 20,
		MaxCacheSize:     64,
	})
	vipsState.started = true
	logging.Info("libvips %s started", vips.Version)
}

// ShutdownVips releases libvips. Later thumbnails use the Go decoder.
func ShutdownVips() {
	vipsState.Lock()
	defer vipsState.Unlock()
	if !vipsState.started {
		return
	}
	vips.Shutdown()
	vipsState.started = false
	logging.Debug("libvips stopped")
}

// IsVipsAvailable reports whether InitVips has run and ShutdownVips has not.
func IsVipsAvailable() bool {
	vipsState.Lock()
	defer vipsState.Unlock()
	return vipsState.started
}

// thumbnailWithVips shrinks the image at path to fit size x size and returns
// JPEG bytes. libvips shrinks JPEGs during decode.
func thumbnailWithVips(path string, size int) ([]byte, error) {
	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	logging.Debug("vips loaded %s: %dx%d", filepath.Base(path), ref.Width(), ref.Height())

	if err := ref.Thumbnail(size, size, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	data, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        80,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return data, nil
}
