package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"isl-announcer/internal/logging"
	"isl-announcer/internal/mediatypes"
	"isl-announcer/internal/metrics"
)

// ThumbnailSize bounds both thumbnail dimensions.
const ThumbnailSize = 200

var (
	// ErrDisabled is returned when the thumbnail cache directory is unusable.
	ErrDisabled = errors.New("thumbnails disabled")
	// ErrUnsupported is returned for files that are neither images nor videos.
	ErrUnsupported = errors.New("unsupported file type")
)

// FrameExtractor grabs a single PNG frame from a video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, path string, offset float64) ([]byte, error)
}

// ThumbnailGenerator renders and caches library thumbnails.
type ThumbnailGenerator struct {
	cacheDir string
	enabled  bool
	frames   FrameExtractor
	slots    chan struct{}
	group    singleflight.Group
}

// NewThumbnailGenerator creates a generator writing to cacheDir. At most
// concurrency thumbnails render at once.
func NewThumbnailGenerator(cacheDir string, enabled bool, frames FrameExtractor, concurrency int) *ThumbnailGenerator {
	if concurrency < 1 {
		concurrency = 1
	}
	if enabled {
		logging.Debug("ThumbnailGenerator: enabled, cache dir: %s, concurrency: %d", cacheDir, concurrency)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			logging.Warn("ThumbnailGenerator: failed to create cache dir: %v", err)
			enabled = false
		}
	} else {
		logging.Debug("ThumbnailGenerator: disabled")
	}
	return &ThumbnailGenerator{
		cacheDir: cacheDir,
		enabled:  enabled,
		frames:   frames,
		slots:    make(chan struct{}, concurrency),
	}
}

// IsEnabled reports whether thumbnails can be served.
func (t *ThumbnailGenerator) IsEnabled() bool {
	return t.enabled
}

func (t *ThumbnailGenerator) cachePath(filePath string, info os.FileInfo) string {
	key := fmt.Sprintf("%s|%d|%d", filePath, info.Size(), info.ModTime().UnixNano())
	return filepath.Join(t.cacheDir, fmt.Sprintf("%x.jpg", md5.Sum([]byte(key))))
}

// GetThumbnail returns JPEG bytes for the library file at filePath.
func (t *ThumbnailGenerator) GetThumbnail(ctx context.Context, filePath string) ([]byte, error) {
	if !t.enabled {
		return nil, ErrDisabled
	}

	fileType := mediatypes.GetFileType(mediatypes.Ext(filePath))
	if fileType != mediatypes.FileTypeImage && fileType != mediatypes.FileTypeVideo {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(filePath))
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not accessible: %w", err)
	}

	cachePath := t.cachePath(filePath, info)
	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return data, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	// Concurrent requests for the same file share one render
	v, err, _ := t.group.Do(cachePath, func() (any, error) {
		return t.generate(ctx, filePath, fileType, cachePath)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (t *ThumbnailGenerator) generate(ctx context.Context, filePath string, fileType mediatypes.FileType, cachePath string) ([]byte, error) {
	select {
	case t.slots <- struct{}{}:
		defer func() { <-t.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	logging.Debug("Thumbnail generating: %s (type: %s)", filePath, fileType)

	var data []byte
	var err error
	if fileType == mediatypes.FileTypeVideo {
		data, err = t.videoThumbnail(ctx, filePath)
	} else {
		data, err = imageThumbnail(filePath)
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(string(fileType), statusLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("thumbnail generation failed: %w", err)
	}

	tmp := cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
		return data, nil
	}
	if err := os.Rename(tmp, cachePath); err != nil {
		logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
		_ = os.Remove(tmp)
	}
	return data, nil
}

func imageThumbnail(filePath string) ([]byte, error) {
	if IsVipsAvailable() {
		data, err := thumbnailWithVips(filePath, ThumbnailSize)
		if err == nil {
			return data, nil
		}
		logging.Debug("vips thumbnail failed for %s: %v, falling back to imaging", filePath, err)
	}

	img, err := LoadImageConstrained(filePath, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, err
	}
	return encodeThumbnail(img)
}

func (t *ThumbnailGenerator) videoThumbnail(ctx context.Context, filePath string) ([]byte, error) {
	if t.frames == nil {
		return nil, errors.New("no frame extractor configured")
	}

	// Sign clips are often shorter than a second
	frame, err := t.frames.ExtractFrame(ctx, filePath, 1)
	if err != nil || len(frame) == 0 {
		logging.Debug("Frame at 1s failed for %s: %v, retrying at start", filePath, err)
		frame, err = t.frames.ExtractFrame(ctx, filePath, 0)
		if err != nil {
			return nil, err
		}
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", filePath)
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return encodeThumbnail(img)
}

func encodeThumbnail(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
