package speech

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnintelligible means the audio was received but no speech was recognized.
	ErrUnintelligible = errors.New("speech could not be recognized")
	// ErrServiceUnreachable means the recognition service could not be used.
	ErrServiceUnreachable = errors.New("speech service unreachable")
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Name() string
}

// Code returns a stable identifier for err, for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnintelligible):
		return "unintelligible_audio"
	case errors.Is(err, ErrServiceUnreachable):
		return "speech_unreachable"
	}
	return "internal_error"
}

// Static returns a fixed transcript. It is used when the operator supplies
// the announcement text directly.
type Static string

// Transcribe returns s, or ErrUnintelligible when s is blank.
func (s Static) Transcribe(_ context.Context, _ string) (string, error) {
	text := strings.TrimSpace(string(s))
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}

// Name implements Transcriber.
func (s Static) Name() string {
	return "static"
}
