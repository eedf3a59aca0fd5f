// Package middleware provides HTTP middleware for the announcement server:
// W3C Extended Log Format access logging, Prometheus request metrics and
// gzip compression of JSON responses.
//
// All response wrappers support http.Hijacker so websocket upgrades on the
// progress endpoint pass through the chain.
package middleware
