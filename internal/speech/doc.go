// Package speech is the boundary to the hosted speech recognition service.
//
// A Transcriber either returns text or fails with ErrUnintelligible (audio
// was processed but nothing was recognized) or ErrServiceUnreachable
// (the request failed or its response was unusable). Callers treat both as "no transcript" and stop. Requests are
// never retried automatically.
package speech
