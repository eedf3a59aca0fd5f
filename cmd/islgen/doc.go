// Command islgen works with the sign library and the generation pipeline
// from the command line, without the web service.
//
//	islgen catalog [--filter word]
//	islgen plan <transcript>
//	islgen transcribe --audio call.wav
//	islgen generate --audio call.wav --out call.mp4 [--transcript text]
//
// Directories and speech settings default to the same environment
// variables the server reads (MEDIA_DIR, WORK_DIR, CAPTION_PREFIX,
// SPEECH_API_KEY, ...). Generation takes the same lock as the server, so
// the two never encode at the same time.
package main
