package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType classifies a file by extension.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	// FileTypeAudio is an uploaded announcement recording.
	FileTypeAudio FileType = "audio"
	FileTypeOther FileType = "other"
)

// DefaultAssetName is the clip substituted for tokens with no sign of their own.
const DefaultAssetName = "default_video.mp4"

// ResolveExtensions is the lookup order used when resolving a token to an
// asset. The first extension present in the catalog wins.
var ResolveExtensions = []string{".mp4", ".png", ".jpg", ".jpeg"}

type extInfo struct {
	fileType FileType
	mime     string
	// listed in the library browser
	library bool
}

var extensions = map[string]extInfo{
	".mp4":  {FileTypeVideo, "video/mp4", true},
	".png":  {FileTypeImage, "image/png", true},
	".jpg":  {FileTypeImage, "image/jpeg", true},
	".jpeg": {FileTypeImage, "image/jpeg", true},
	".gif":  {FileTypeImage, "image/gif", true},
	".webp": {FileTypeImage, "image/webp", false},
	".wav":  {FileTypeAudio, "audio/wav", false},
	".mp3":  {FileTypeAudio, "audio/mpeg", false},
	".m4a":  {FileTypeAudio, "audio/mp4", false},
}

// Ext returns the lower-cased extension of name including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GetFileType classifies a lower-case extension such as ".jpg".
func GetFileType(ext string) FileType {
	if info, ok := extensions[ext]; ok {
		return info.fileType
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for ext, or application/octet-stream.
func GetMimeType(ext string) string {
	if info, ok := extensions[ext]; ok {
		return info.mime
	}
	return "application/octet-stream"
}

// IsLibraryFile reports whether name should appear in the sign library listing.
func IsLibraryFile(name string) bool {
	return extensions[Ext(name)].library
}

// IsAudioUpload reports whether name has an accepted announcement audio extension.
func IsAudioUpload(name string) bool {
	return GetFileType(Ext(name)) == FileTypeAudio
}
