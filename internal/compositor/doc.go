// Package compositor builds an announcement video from a transcript.
//
// Plan resolves every transcript part to a sign asset (or the default clip)
// without touching ffmpeg. Generator.Generate then runs the pipeline
//
//	idle -> catalog_built -> resolving -> concatenating -> muxing_audio -> encoding -> done | failed
//
// Each segment puts the sign on the left of a 960x480 canvas and an English
// caption on the right. Segments carry no audio; the narration is attached
// once to the concatenated timeline, padded or cut to the video length.
//
// Results are typed: Outcome is success, partial (warnings were recorded) or
// failed, and fatal errors are *Error values wrapping ErrDirNotFound,
// ErrNoSegments, ErrNoAudio or ErrEncode.
package compositor
