package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"isl-announcer/internal/filesystem"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/mediatypes"
)

// ErrDirNotFound is returned when the media directory does not exist or is not a directory.
var ErrDirNotFound = errors.New("media directory not found")

// Catalog is a case-insensitive index of the files in one media directory.
type Catalog struct {
	dir     string
	modTime time.Time
	names   map[string]string // lower-case name -> on-disk name
}

// Entry describes one file exposed by the library browser.
type Entry struct {
	Name     string              `json:"name"`
	Word     string              `json:"word"`
	Type     mediatypes.FileType `json:"type"`
	Size     int64               `json:"size"`
	MimeType string              `json:"mimeType"`
	ModTime  time.Time           `json:"modTime"`
}

// Build lists dir once and indexes every file by its lower-cased name,
// dot-files included. Subdirectories are skipped.
func Build(dir string) (*Catalog, error) {
	info, err := filesystem.StatWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat media directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirNotFound, dir)
	}

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory %s: %w", dir, err)
	}

	c := &Catalog{
		dir:     dir,
		modTime: info.ModTime(),
		names:   make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := strings.ToLower(e.Name())
		if existing, ok := c.names[key]; ok {
			logging.Warn("Catalog: %q and %q differ only by case, keeping %q", existing, e.Name(), existing)
			continue
		}
		c.names[key] = e.Name()
	}

	logging.Debug("Catalog: indexed %d files in %s", len(c.names), dir)
	return c, nil
}

// Dir returns the directory the catalog was built from.
func (c *Catalog) Dir() string {
	return c.dir
}

// ModTime returns the directory modification time observed at build.
func (c *Catalog) ModTime() time.Time {
	return c.modTime
}

// Len returns the number of indexed files.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Lookup returns the on-disk name for name, ignoring case.
func (c *Catalog) Lookup(name string) (string, bool) {
	actual, ok := c.names[strings.ToLower(name)]
	return actual, ok
}

// Path joins an on-disk name with the catalog directory.
func (c *Catalog) Path(actual string) string {
	return filepath.Join(c.dir, actual)
}

// Entries lists library files whose word contains filter (case-insensitive),
// sorted by name. An empty filter matches everything.
func (c *Catalog) Entries(filter string) []Entry {
	filter = strings.ToLower(strings.TrimSpace(filter))

	result := make([]Entry, 0, len(c.names))
	for key, actual := range c.names {
		if !mediatypes.IsLibraryFile(actual) {
			continue
		}
		word := strings.TrimSuffix(key, filepath.Ext(key))
		if filter != "" && !strings.Contains(word, filter) {
			continue
		}

		ext := mediatypes.Ext(actual)
		entry := Entry{
			Name:     actual,
			Word:     word,
			Type:     mediatypes.GetFileType(ext),
			MimeType: mediatypes.GetMimeType(ext),
		}
		if info, err := filesystem.StatWithRetry(c.Path(actual), filesystem.DefaultRetryConfig()); err == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result
}

// Counts returns the number of library videos and images.
func (c *Catalog) Counts() (videos, images int) {
	for _, actual := range c.names {
		if !mediatypes.IsLibraryFile(actual) {
			continue
		}
		switch mediatypes.GetFileType(mediatypes.Ext(actual)) {
		case mediatypes.FileTypeVideo:
			videos++
		case mediatypes.FileTypeImage:
			images++
		}
	}
	return videos, images
}
