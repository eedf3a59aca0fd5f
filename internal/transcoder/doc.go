// Package transcoder wraps the FFmpeg invocations used to build announcement
// videos.
//
// It supports:
//   - Probing clip duration, codec and dimensions with ffprobe
//   - Encoding one side-by-side segment (sign left, caption right, no audio)
//   - Joining segments with the concat demuxer without re-encoding
//   - Attaching narration audio fitted to the video length
//   - Converting uploads to 16 kHz mono WAV for speech recognition
//   - Grabbing a single frame for library thumbnails
//
// FFmpeg and ffprobe must be installed and available in the system PATH.
// Command execution can be replaced with WithRunner.
package transcoder
