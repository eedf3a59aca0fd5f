package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "MP4 video", ext: ".mp4", want: FileTypeVideo},
		{name: "PNG image", ext: ".png", want: FileTypeImage},
		{name: "JPEG image", ext: ".jpeg", want: FileTypeImage},
		{name: "WAV audio", ext: ".wav", want: FileTypeAudio},
		{name: "M4A audio", ext: ".m4a", want: FileTypeAudio},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".png", "image/png"},
		{".mp4", "video/mp4"},
		{".mp3", "audio/mpeg"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestResolveExtensionsOrder(t *testing.T) {
	want := []string{".mp4", ".png", ".jpg", ".jpeg"}
	if len(ResolveExtensions) != len(want) {
		t.Fatalf("ResolveExtensions = %v, want %v", ResolveExtensions, want)
	}
	for i := range want {
		if ResolveExtensions[i] != want[i] {
			t.Errorf("ResolveExtensions[%d] = %q, want %q", i, ResolveExtensions[i], want[i])
		}
	}
}

func TestIsLibraryFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"train.mp4", true},
		{"Train.MP4", true},
		{"4.png", true},
		{"wave.gif", true},
		{"notes.txt", false},
		{"announcement.wav", false},
		{"noext", false},
	}

	for _, tt := range tests {
		if got := IsLibraryFile(tt.name); got != tt.want {
			t.Errorf("IsLibraryFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsAudioUpload(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"announcement.wav", true},
		{"ANNOUNCEMENT.MP3", true},
		{"clip.m4a", true},
		{"clip.flac", false},
		{"clip.mp4", false},
	}

	for _, tt := range tests {
		if got := IsAudioUpload(tt.name); got != tt.want {
			t.Errorf("IsAudioUpload(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDefaultAssetName(t *testing.T) {
	if DefaultAssetName != "default_video.mp4" {
		t.Errorf("DefaultAssetName = %q", DefaultAssetName)
	}
}
