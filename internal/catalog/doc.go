// Package catalog indexes the sign library directory and resolves transcript
// words and digits to media assets.
//
// The library is a flat directory of files named <word>.<ext> or <digit>.<ext>
// plus a default_video.mp4 fallback. Lookups are case-insensitive because
// transcript words are lower-cased before resolution.
//
// Resolution tries .mp4, .png, .jpg and .jpeg in that order; the first file
// present wins. Build reads the directory once; Cache keeps the result until
// the directory modification time changes.
package catalog
