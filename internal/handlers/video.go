package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"isl-announcer/internal/compositor"
	"isl-announcer/internal/database"
	"isl-announcer/internal/events"
	"isl-announcer/internal/filesystem"
	"isl-announcer/internal/logging"
)

// finishTimeout bounds the database update after a generation, which runs
// even when the client has gone away.
const finishTimeout = 10 * time.Second

// GenerateResponse is returned by GenerateVideo.
type GenerateResponse struct {
	Announcement *database.Announcement `json:"announcement"`
	Result       *compositor.Result     `json:"result"`
}

// GenerateErrorResponse is returned when generation fails.
type GenerateErrorResponse struct {
	errorResponse
	Stage  compositor.Stage   `json:"stage,omitempty"`
	Result *compositor.Result `json:"result,omitempty"`
}

func generateStatus(code string) int {
	switch code {
	case "media_dir_not_found":
		return http.StatusServiceUnavailable
	case "no_segments", "no_audio":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// progressPublisher forwards pipeline progress for id to websocket listeners.
func (h *Handlers) progressPublisher(id string) func(compositor.Progress) {
	return func(p compositor.Progress) {
		h.hub.Publish(events.Event{
			AnnouncementID: id,
			Stage:          string(p.Stage),
			Segment:        p.Segment,
			Total:          p.Total,
			Message:        p.Message,
		})
	}
}

func generationUpdate(res *compositor.Result, genErr error) database.GenerationUpdate {
	u := database.GenerationUpdate{Status: database.StatusGenerated}
	if res != nil {
		u.SegmentCount = len(res.Segments)
		u.WarningCount = len(res.Warnings)
		u.DurationMs = int64(res.Duration * 1000)
		if warnings, err := json.Marshal(res.Warnings); err == nil {
			u.Warnings = string(warnings)
		}
	}
	if genErr != nil {
		u.Status = database.StatusGenerationFailed
		u.Error = genErr.Error()
		u.ErrorCode = compositor.Code(genErr)
		return u
	}
	u.VideoPath = res.OutputPath
	return u
}

// GenerateVideo runs the pipeline for an announcement and waits for it to
// finish. Progress is published to the announcement's event stream. The
// request context cancels ffmpeg if the client disconnects.
func (h *Handlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	err := h.db.BeginGeneration(ctx, id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Announcement not found", codeNotFound, http.StatusNotFound)
		return
	case errors.Is(err, database.ErrGenerationInProgress):
		writeJSONError(w, "A video is already being generated for this announcement", codeGenerationInProgress, http.StatusConflict)
		return
	case errors.Is(err, database.ErrNoTranscript):
		writeJSONError(w, "Announcement has no transcript", codeNoTranscript, http.StatusUnprocessableEntity)
		return
	case err != nil:
		logging.Error("Failed to start generation for %s: %v", id, err)
		writeJSONError(w, "Failed to start generation", codeInternal, http.StatusInternalServerError)
		return
	}

	// From here on the row is "generating" and must always be finished.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	a, err := h.db.GetAnnouncement(ctx, id)
	if err != nil {
		genErr := fmt.Errorf("failed to load announcement: %w", err)
		if ferr := h.db.FinishGeneration(finishCtx, id, generationUpdate(nil, genErr)); ferr != nil {
			logging.Error("Failed to record generation failure for %s: %v", id, ferr)
		}
		writeJSONError(w, "Failed to load announcement", codeInternal, http.StatusInternalServerError)
		return
	}

	res, genErr := h.generator.Generate(ctx, compositor.Request{
		ID:         a.ID,
		Transcript: a.Transcript,
		AudioPath:  a.AudioPath,
		Progress:   h.progressPublisher(a.ID),
	})

	if err := h.db.FinishGeneration(finishCtx, id, generationUpdate(res, genErr)); err != nil {
		logging.Error("Failed to record generation result for %s: %v", id, err)
		writeJSONError(w, "Failed to record generation result", codeInternal, http.StatusInternalServerError)
		return
	}

	if genErr != nil {
		code := compositor.Code(genErr)
		resp := GenerateErrorResponse{
			errorResponse: errorResponse{Error: genErr.Error(), Code: code},
			Result:        res,
		}
		var stageErr *compositor.Error
		if errors.As(genErr, &stageErr) {
			resp.Stage = stageErr.Stage
		}
		writeJSONStatusCode(w, generateStatus(code), resp)
		return
	}

	updated, err := h.db.GetAnnouncement(finishCtx, id)
	if err != nil {
		logging.Error("Failed to reload announcement %s: %v", id, err)
		writeJSONError(w, "Failed to load announcement", codeInternal, http.StatusInternalServerError)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, GenerateResponse{Announcement: updated, Result: res})
}

// GetWarnings returns the warnings recorded by the last generation.
func (h *Handlers) GetWarnings(w http.ResponseWriter, r *http.Request) {
	a := h.lookupAnnouncement(w, r)
	if a == nil {
		return
	}

	warnings := []compositor.Warning{}
	if a.Warnings != "" {
		if err := json.Unmarshal([]byte(a.Warnings), &warnings); err != nil {
			logging.Warn("Announcement %s has unreadable warnings: %v", a.ID, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, warnings)
}

// GetVideo streams the generated MP4. Range requests are supported.
// ?download=1 asks the browser to save the file.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	a := h.lookupAnnouncement(w, r)
	if a == nil {
		return
	}
	if !a.HasVideo {
		writeJSONError(w, "No video has been generated for this announcement", codeNotFound, http.StatusNotFound)
		return
	}

	f, err := filesystem.OpenWithRetry(a.VideoPath, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Video for %s missing at %s: %v", a.ID, a.VideoPath, err)
		writeJSONError(w, "Video file not found", codeNotFound, http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, "Failed to read video", codeInternal, http.StatusInternalServerError)
		return
	}

	name := downloadName(a)
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-cache")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// downloadName derives an .mp4 file name from the uploaded audio name.
func downloadName(a *database.Announcement) string {
	base := a.OriginalName
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == '/' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = a.ID
	}
	return "isl-" + base + ".mp4"
}

// AnnouncementEvents upgrades to a websocket carrying generation progress.
func (h *Handlers) AnnouncementEvents(w http.ResponseWriter, r *http.Request) {
	a := h.lookupAnnouncement(w, r)
	if a == nil {
		return
	}
	h.hub.ServeWS(w, r, a.ID)
}
