package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"isl-announcer/internal/catalog"
	"isl-announcer/internal/compositor"
	"isl-announcer/internal/filesystem"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/media"
	"isl-announcer/internal/mediatypes"
)

// LibraryResponse lists sign library files.
type LibraryResponse struct {
	Entries        []catalog.Entry `json:"entries"`
	Total          int             `json:"total"`
	Videos         int             `json:"videos"`
	Images         int             `json:"images"`
	HasDefaultClip bool            `json:"hasDefaultClip"`
}

// PreviewRequest asks for the sign plan of a transcript.
type PreviewRequest struct {
	Transcript string `json:"transcript"`
}

func writeLibraryError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrDirNotFound) {
		writeJSONError(w, "Sign library not found", "media_dir_not_found", http.StatusServiceUnavailable)
		return
	}
	logging.Error("Failed to read sign library: %v", err)
	writeJSONError(w, "Failed to read sign library", codeInternal, http.StatusInternalServerError)
}

// libraryFile resolves {name} to a library file path, writing an error
// response and returning "" when it is not one.
func (h *Handlers) libraryFile(w http.ResponseWriter, r *http.Request) string {
	name := mux.Vars(r)["name"]
	if name == "" || strings.ContainsAny(name, `/\`) || !mediatypes.IsLibraryFile(name) {
		writeJSONError(w, "Invalid library file name", codeInvalidRequest, http.StatusBadRequest)
		return ""
	}

	cat, err := h.library()
	if err != nil {
		writeLibraryError(w, err)
		return ""
	}

	actual, ok := cat.Lookup(name)
	if !ok {
		writeJSONError(w, "Library file not found", codeNotFound, http.StatusNotFound)
		return ""
	}
	return cat.Path(actual)
}

// ListLibrary lists the sign library. ?q= filters by word.
func (h *Handlers) ListLibrary(w http.ResponseWriter, r *http.Request) {
	cat, err := h.library()
	if err != nil {
		writeLibraryError(w, err)
		return
	}

	entries := cat.Entries(r.URL.Query().Get("q"))
	videos, images := cat.Counts()
	_, hasDefault := catalog.NewResolver(cat).Default()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, LibraryResponse{
		Entries:        entries,
		Total:          len(entries),
		Videos:         videos,
		Images:         images,
		HasDefaultClip: hasDefault,
	})
}

// GetLibraryFile serves one library file.
func (h *Handlers) GetLibraryFile(w http.ResponseWriter, r *http.Request) {
	path := h.libraryFile(w, r)
	if path == "" {
		return
	}

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		writeJSONError(w, "Library file not found", codeNotFound, http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, "Failed to read library file", codeInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(mediatypes.Ext(path)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// GetLibraryThumbnail returns a JPEG thumbnail of a library file.
func (h *Handlers) GetLibraryThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.thumbGen == nil || !h.thumbGen.IsEnabled() {
		writeJSONError(w, "Thumbnails disabled", codeUnavailable, http.StatusServiceUnavailable)
		return
	}

	path := h.libraryFile(w, r)
	if path == "" {
		return
	}

	thumb, err := h.thumbGen.GetThumbnail(r.Context(), path)
	switch {
	case errors.Is(err, media.ErrDisabled):
		writeJSONError(w, "Thumbnails disabled", codeUnavailable, http.StatusServiceUnavailable)
		return
	case errors.Is(err, media.ErrUnsupported):
		writeJSONError(w, "Unsupported file type", codeInvalidRequest, http.StatusBadRequest)
		return
	case err != nil:
		logging.Error("Thumbnail: generation failed for %s: %v", path, err)
		writeJSONError(w, "Failed to generate thumbnail", codeInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(thumb); err != nil {
		logging.Debug("Thumbnail: write failed: %v", err)
	}
}

// Preview plans a transcript against the library without encoding
// anything, showing which clips would be used and what falls back.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", codeInvalidRequest, http.StatusBadRequest)
		return
	}

	tl, err := h.generator.Preview(req.Transcript)
	if err != nil {
		writeLibraryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, struct {
		*compositor.Timeline
		Fallbacks int `json:"fallbacks"`
		Omitted   int `json:"omitted"`
	}{
		Timeline:  tl,
		Fallbacks: compositor.CountWarnings(tl.Warnings, compositor.WarningFallback),
		Omitted:   compositor.CountWarnings(tl.Warnings, compositor.WarningOmitted),
	})
}
