package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize int
	// Level is a compress/gzip level.
	Level int
	// Types are the media types that are compressed. A trailing "/" matches
	// a whole family, e.g. "text/".
	Types []string
}

// DefaultCompressionConfig compresses API JSON and text. Announcement videos,
// thumbnails and sign clips are already compressed and pass through.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		Types:   []string{"application/json", "text/"},
	}
}

func (c CompressionConfig) compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(c.Types, func(t string) bool {
		if strings.HasSuffix(t, "/") {
			return strings.HasPrefix(mediaType, t)
		}
		return mediaType == t
	})
}

// Compression gzips responses for clients that accept it. Websocket
// upgrades and Range requests are passed through untouched.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	pool := &sync.Pool{New: func() any {
		w, err := gzip.NewWriterLevel(io.Discard, config.Level)
		if err != nil {
			w = gzip.NewWriter(io.Discard)
		}
		return w
	}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsGzip(r) || r.Header.Get("Upgrade") != "" || r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, config: config, pool: pool, status: http.StatusOK}
			defer cw.close()
			next.ServeHTTP(cw, r)
		})
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			return true
		}
	}
	return false
}

// compressWriter holds the body back until MinSize bytes have been written
// or the handler returns, then commits to gzip or identity.
type compressWriter struct {
	http.ResponseWriter
	config CompressionConfig
	pool   *sync.Pool

	status    int
	buf       []byte
	committed bool
	gz        *gzip.Writer
}

func (c *compressWriter) WriteHeader(status int) {
	if !c.committed {
		c.status = status
	}
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if c.committed {
		return c.out().Write(p)
	}
	c.buf = append(c.buf, p...)
	if len(c.buf) >= c.config.MinSize {
		if err := c.commit(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (c *compressWriter) out() io.Writer {
	if c.gz != nil {
		return c.gz
	}
	return c.ResponseWriter
}

func (c *compressWriter) commit() error {
	c.committed = true

	if len(c.buf) >= c.config.MinSize && c.config.compressible(c.Header().Get("Content-Type")) {
		h := c.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		c.gz = c.pool.Get().(*gzip.Writer)
		c.gz.Reset(c.ResponseWriter)
	}

	c.ResponseWriter.WriteHeader(c.status)
	buf := c.buf
	c.buf = nil
	if len(buf) == 0 {
		return nil
	}
	_, err := c.out().Write(buf)
	return err
}

func (c *compressWriter) Flush() {
	if !c.committed {
		_ = c.commit()
	}
	if c.gz != nil {
		_ = c.gz.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (c *compressWriter) close() {
	if !c.committed {
		_ = c.commit()
	}
	if c.gz != nil {
		_ = c.gz.Close()
		c.pool.Put(c.gz)
		c.gz = nil
	}
}
