package compositor

import (
	"errors"
	"fmt"

	"isl-announcer/internal/catalog"
)

// Stage is a step of the generation state machine.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageCatalogBuilt  Stage = "catalog_built"
	StageResolving     Stage = "resolving"
	StageConcatenating Stage = "concatenating"
	StageMuxingAudio   Stage = "muxing_audio"
	StageEncoding      Stage = "encoding"
	StageDone          Stage = "done"
	StageFailed        Stage = "failed"
)

var (
	// ErrDirNotFound means the sign library directory is missing.
	ErrDirNotFound = catalog.ErrDirNotFound
	// ErrNoSegments means no token produced a usable segment.
	ErrNoSegments = errors.New("no valid segments")
	// ErrNoAudio means the narration audio could not be read.
	ErrNoAudio = errors.New("narration audio not found")
	// ErrEncode means ffmpeg failed to produce the output.
	ErrEncode = errors.New("encode failed")
)

// Error is a fatal generation failure and the stage it happened in.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns a stable identifier for the failure, for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrDirNotFound):
		return "media_dir_not_found"
	case errors.Is(err, ErrNoSegments):
		return "no_segments"
	case errors.Is(err, ErrNoAudio):
		return "no_audio"
	case errors.Is(err, ErrEncode):
		return "encode_failed"
	}
	return "internal_error"
}
