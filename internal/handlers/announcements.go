package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"isl-announcer/internal/database"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/mediatypes"
	"isl-announcer/internal/retention"
	"isl-announcer/internal/speech"
)

const (
	// multipart parts beyond this are spooled to disk
	multipartMemory = 8 << 20

	defaultListLimit = 50
	maxListLimit     = 500
)

// UploadResponse is returned by a failed transcription: the announcement is
// stored so the operator can type the transcript in, but the error code
// says why speech recognition gave nothing.
type UploadResponse struct {
	errorResponse
	Announcement *database.Announcement `json:"announcement"`
}

// TranscriptRequest replaces the transcript of an announcement.
type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

func speechStatus(err error) int {
	switch {
	case errors.Is(err, speech.ErrUnintelligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, speech.ErrServiceUnreachable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// lookupAnnouncement writes a 404 and returns nil when id is unknown.
func (h *Handlers) lookupAnnouncement(w http.ResponseWriter, r *http.Request) *database.Announcement {
	id := mux.Vars(r)["id"]
	a, err := h.db.GetAnnouncement(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "Announcement not found", codeNotFound, http.StatusNotFound)
		return nil
	}
	if err != nil {
		logging.Error("Failed to load announcement %s: %v", id, err)
		writeJSONError(w, "Failed to load announcement", codeInternal, http.StatusInternalServerError)
		return nil
	}
	return a
}

// saveUpload copies src into the upload directory under id.
func (h *Handlers) saveUpload(src io.Reader, id, ext string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(h.uploadDir, id+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// transcriberFor picks the transcriber for an upload. A non-empty
// "transcript" form field is used verbatim instead of speech recognition.
func (h *Handlers) transcriberFor(r *http.Request) speech.Transcriber {
	if text := strings.TrimSpace(r.FormValue("transcript")); text != "" {
		return speech.Static(text)
	}
	return h.transcriber
}

// UploadAnnouncement stores a multipart "audio" upload and transcribes it.
// The announcement is created whether or not transcription succeeds.
func (h *Handlers) UploadAnnouncement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), codeInvalidUpload, http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Expected a multipart form with an audio file", codeInvalidUpload, http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSONError(w, "Missing audio file", codeInvalidUpload, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !mediatypes.IsAudioUpload(header.Filename) {
		writeJSONError(w, "Unsupported audio format, expected wav, mp3 or m4a", codeInvalidUpload, http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	audioPath, err := h.saveUpload(file, id, mediatypes.Ext(header.Filename))
	if err != nil {
		logging.Error("Upload %s: %v", id, err)
		writeJSONError(w, "Failed to store upload", codeInternal, http.StatusInternalServerError)
		return
	}

	a := &database.Announcement{
		ID:           id,
		OriginalName: filepath.Base(header.Filename),
		AudioPath:    audioPath,
		Status:       database.StatusTranscribed,
	}

	var transcribeErr error
	if tr := h.transcriberFor(r); tr == nil {
		transcribeErr = fmt.Errorf("%w: no speech backend configured", speech.ErrServiceUnreachable)
	} else {
		a.Transcript, transcribeErr = tr.Transcribe(ctx, audioPath)
	}
	if transcribeErr != nil {
		logging.Warn("Upload %s: transcription failed: %v", id, transcribeErr)
		a.Status = database.StatusTranscriptionFailed
		a.Error = transcribeErr.Error()
		a.ErrorCode = speech.Code(transcribeErr)
	}

	if err := h.db.CreateAnnouncement(ctx, a); err != nil {
		logging.Error("Upload %s: %v", id, err)
		_ = os.Remove(audioPath)
		writeJSONError(w, "Failed to save announcement", codeInternal, http.StatusInternalServerError)
		return
	}

	logging.Info("Upload %s: %s (%d bytes), status %s", id, a.OriginalName, header.Size, a.Status)

	if transcribeErr != nil {
		writeJSONStatusCode(w, speechStatus(transcribeErr), UploadResponse{
			errorResponse: errorResponse{Error: transcribeErr.Error(), Code: a.ErrorCode},
			Announcement:  a,
		})
		return
	}
	writeJSONStatusCode(w, http.StatusCreated, a)
}

// ListAnnouncements returns announcements newest first. ?limit= caps the
// result.
func (h *Handlers) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, maxListLimit)
	}

	list, err := h.db.ListAnnouncements(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to list announcements: %v", err)
		writeJSONError(w, "Failed to list announcements", codeInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, list)
}

// GetAnnouncement returns one announcement.
func (h *Handlers) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	a := h.lookupAnnouncement(w, r)
	if a == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, a)
}

// UpdateTranscript replaces the transcript, for correcting recognition
// mistakes or filling in a failed transcription.
func (h *Handlers) UpdateTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req TranscriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", codeInvalidRequest, http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(req.Transcript)
	if text == "" {
		writeJSONError(w, "Transcript must not be empty", codeInvalidRequest, http.StatusBadRequest)
		return
	}

	err := h.db.UpdateTranscript(ctx, id, text)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Announcement not found", codeNotFound, http.StatusNotFound)
		return
	case errors.Is(err, database.ErrGenerationInProgress):
		writeJSONError(w, "A video is being generated for this announcement", codeGenerationInProgress, http.StatusConflict)
		return
	case err != nil:
		logging.Error("Failed to update transcript of %s: %v", id, err)
		writeJSONError(w, "Failed to update transcript", codeInternal, http.StatusInternalServerError)
		return
	}

	h.GetAnnouncement(w, r)
}

// DeleteAnnouncement removes an announcement and its files.
func (h *Handlers) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	a, err := h.db.DeleteAnnouncement(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Announcement not found", codeNotFound, http.StatusNotFound)
		return
	case errors.Is(err, database.ErrGenerationInProgress):
		writeJSONError(w, "A video is being generated for this announcement", codeGenerationInProgress, http.StatusConflict)
		return
	case err != nil:
		logging.Error("Failed to delete announcement %s: %v", id, err)
		writeJSONError(w, "Failed to delete announcement", codeInternal, http.StatusInternalServerError)
		return
	}

	if err := retention.RemoveFiles(a); err != nil {
		logging.Warn("Delete %s: %v", id, err)
	}

	logging.Info("Deleted announcement %s", id)
	writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "deleted"})
}
