package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"isl-announcer/internal/mediatypes"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Train.MP4", "4.png", "2.jpg", ".Dot.png")
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	cat, err := Build(dir)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cat.Len() != 4 {
		t.Errorf("Len() = %d, want 4", cat.Len())
	}
	if cat.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cat.Dir(), dir)
	}

	tests := []struct {
		name   string
		lookup string
		want   string
		found  bool
	}{
		{"exact lower", "train.mp4", "Train.MP4", true},
		{"upper query", "TRAIN.MP4", "Train.MP4", true},
		{"digit", "4.png", "4.png", true},
		{"directory ignored", "sub.mp4", "", false},
		{"dot-file indexed", ".dot.png", ".Dot.png", true},
		{"missing", "arrives.mp4", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cat.Lookup(tt.lookup)
			if ok != tt.found || got != tt.want {
				t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.lookup, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestBuildMissingDir(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrDirNotFound) {
		t.Errorf("Build() error = %v, want ErrDirNotFound", err)
	}
}

func TestBuildNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "file.txt")

	_, err := Build(filepath.Join(dir, "file.txt"))
	if !errors.Is(err, ErrDirNotFound) {
		t.Errorf("Build() error = %v, want ErrDirNotFound", err)
	}
}

func TestEntries(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "platform.mp4", "plate.png", "train.gif", "notes.txt", "default_video.mp4")

	cat, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	all := cat.Entries("")
	if len(all) != 4 {
		t.Fatalf("Entries(\"\") returned %d entries, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Errorf("entries not sorted: %q before %q", all[i-1].Name, all[i].Name)
		}
	}

	filtered := cat.Entries("PLAT")
	if len(filtered) != 2 {
		t.Fatalf("Entries(PLAT) returned %d entries, want 2", len(filtered))
	}
	if filtered[0].Word != "plate" || filtered[0].Type != mediatypes.FileTypeImage {
		t.Errorf("first entry = %+v, want plate image", filtered[0])
	}
	if filtered[1].Type != mediatypes.FileTypeVideo || filtered[1].MimeType != "video/mp4" {
		t.Errorf("second entry = %+v, want mp4 video", filtered[1])
	}
	if filtered[1].Size != 1 {
		t.Errorf("Size = %d, want 1", filtered[1].Size)
	}

	videos, images := cat.Counts()
	if videos != 2 || images != 2 {
		t.Errorf("Counts() = (%d, %d), want (2, 2)", videos, images)
	}
}

func TestCacheInvalidatesOnModTime(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "train.mp4")

	cache := NewCache()
	first, err := cache.Get(dir)
	if err != nil {
		t.Fatal(err)
	}

	again, err := cache.Get(dir)
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Error("expected cached catalog for unchanged directory")
	}

	writeFiles(t, dir, "arrives.mp4")
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := cache.Get(dir)
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt == first {
		t.Error("expected rebuild after directory mtime changed")
	}
	if _, ok := rebuilt.Lookup("arrives.mp4"); !ok {
		t.Error("rebuilt catalog missing new file")
	}
}

func TestCacheMissingDir(t *testing.T) {
	cache := NewCache()
	_, err := cache.Get(filepath.Join(t.TempDir(), "gone"))
	if !errors.Is(err, ErrDirNotFound) {
		t.Errorf("Get() error = %v, want ErrDirNotFound", err)
	}
}
