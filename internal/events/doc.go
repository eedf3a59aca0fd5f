// Package events streams generation progress to browsers over websockets.
package events
