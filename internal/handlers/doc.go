// Package handlers provides the HTTP API of the announcer.
//
// It includes handlers for:
//   - Uploading announcement audio and transcribing it
//   - Generating, streaming and deleting announcement videos
//   - Live generation progress over websockets
//   - Previewing the sign plan for a transcript
//   - Browsing the sign library and its thumbnails
//   - Operator authentication and sessions
//   - Health checks, version and stats
package handlers
