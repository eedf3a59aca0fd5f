package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"isl-announcer/internal/compositor"
	"isl-announcer/internal/speech"
	"isl-announcer/internal/transcoder"
)

// commandContext carries the global flags and the pieces commands share.
type commandContext struct {
	mediaDir      string
	workDir       string
	captionPrefix string
	imageSeconds  float64
	threads       int
	jsonOutput    bool
	verbose       bool

	speechKey      string
	speechEndpoint string
	speechLanguage string

	// runner replaces ffmpeg and ffprobe when set.
	runner transcoder.Runner
}

func newCommandContext() *commandContext {
	imageSeconds, err := strconv.ParseFloat(os.Getenv("IMAGE_SEGMENT_SECONDS"), 64)
	if err != nil || imageSeconds <= 0 {
		imageSeconds = 2
	}
	return &commandContext{
		mediaDir:       envOr("MEDIA_DIR", "/media"),
		workDir:        envOr("WORK_DIR", filepath.Join(os.TempDir(), "isl-announcer")),
		captionPrefix:  envOr("CAPTION_PREFIX", "English: "),
		imageSeconds:   imageSeconds,
		speechKey:      os.Getenv("SPEECH_API_KEY"),
		speechEndpoint: os.Getenv("SPEECH_ENDPOINT"),
		speechLanguage: envOr("SPEECH_LANGUAGE", "en-IN"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *commandContext) transcoder() *transcoder.Transcoder {
	if c.runner != nil {
		return transcoder.New(c.threads, transcoder.WithRunner(c.runner))
	}
	return transcoder.New(c.threads)
}

func (c *commandContext) generator(enc compositor.Encoder) *compositor.Generator {
	return compositor.NewGenerator(compositor.Config{
		MediaDir:      c.mediaDir,
		WorkDir:       c.workDir,
		CaptionPrefix: c.captionPrefix,
		ImageSeconds:  c.imageSeconds,
	}, enc)
}

func (c *commandContext) recognizer(conv speech.WAVConverter) (speech.Transcriber, error) {
	if c.speechKey == "" {
		return nil, errors.New("no speech API key, set SPEECH_API_KEY or pass --transcript")
	}
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return nil, err
	}
	return speech.NewGoogleRecognizer(speech.GoogleConfig{
		Endpoint: c.speechEndpoint,
		APIKey:   c.speechKey,
		Language: c.speechLanguage,
		WorkDir:  c.workDir,
	}, conv), nil
}
