package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"isl-announcer/internal/compositor"
	"isl-announcer/internal/database"
	"isl-announcer/internal/events"
	"isl-announcer/internal/speech"
)

func TestUploadTranscribes(t *testing.T) {
	env := newTestEnv(t, envOptions{transcriber: speech.Static("Train 42 arrives")})

	w := env.do(uploadRequest(t, "Platform Call.MP3", []byte("ID3 audio"), nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var a database.Announcement
	decodeBody(t, w, &a)
	if a.ID == "" || a.Status != database.StatusTranscribed || a.Transcript != "Train 42 arrives" {
		t.Errorf("announcement = %+v", a)
	}
	if a.OriginalName != "Platform Call.MP3" {
		t.Errorf("OriginalName = %q", a.OriginalName)
	}
	if strings.Contains(w.Body.String(), env.config.UploadDir) {
		t.Error("response leaks the upload path")
	}

	stored, err := env.db.GetAnnouncement(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAnnouncement() error = %v", err)
	}
	if filepath.Dir(stored.AudioPath) != env.config.UploadDir || filepath.Ext(stored.AudioPath) != ".mp3" {
		t.Errorf("AudioPath = %q", stored.AudioPath)
	}
	data, err := os.ReadFile(stored.AudioPath)
	if err != nil || string(data) != "ID3 audio" {
		t.Errorf("stored audio = %q, %v", data, err)
	}
}

type failingTranscriber struct{ err error }

func (f failingTranscriber) Transcribe(context.Context, string) (string, error) { return "", f.err }
func (f failingTranscriber) Name() string                                      { return "failing" }

func TestUploadTranscriptionFailures(t *testing.T) {
	tests := []struct {
		name        string
		transcriber speech.Transcriber
		status      int
		code        string
	}{
		{"unintelligible", speech.Static("   "), http.StatusUnprocessableEntity, "unintelligible_audio"},
		{"no backend", nil, http.StatusBadGateway, "speech_unreachable"},
		{"local failure", failingTranscriber{errors.New("failed to start ffmpeg")}, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{transcriber: tt.transcriber})

			w := env.do(uploadRequest(t, "call.wav", []byte("RIFF"), nil))
			assertError(t, w, tt.status, tt.code)

			var resp UploadResponse
			decodeBody(t, w, &resp)
			if resp.Announcement == nil {
				t.Fatal("response has no announcement")
			}
			if resp.Announcement.Status != database.StatusTranscriptionFailed || resp.Announcement.ErrorCode != tt.code {
				t.Errorf("announcement = %+v", resp.Announcement)
			}

			stored, err := env.db.GetAnnouncement(context.Background(), resp.Announcement.ID)
			if err != nil {
				t.Fatalf("failed announcement not stored: %v", err)
			}
			if stored.Transcript != "" {
				t.Errorf("Transcript = %q, want empty", stored.Transcript)
			}
		})
	}
}

func TestUploadTranscriptFieldOverridesSpeech(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	a := env.createAnnouncement(t, "train departs")
	if a.Transcript != "train departs" || a.Status != database.StatusTranscribed {
		t.Errorf("announcement = %+v", a)
	}
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		status   int
	}{
		{"wrong extension", "notes.txt", []byte("hello"), http.StatusBadRequest},
		{"video file", "clip.mp4", []byte("video"), http.StatusBadRequest},
		{"missing audio part", "", nil, http.StatusBadRequest},
		{"too large", "call.wav", bytes.Repeat([]byte("a"), 4096), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{transcriber: speech.Static("train"), maxUpload: 1024})

			w := env.do(uploadRequest(t, tt.filename, tt.data, nil))
			assertError(t, w, tt.status, "invalid_upload")

			list, err := env.db.ListAnnouncements(context.Background(), 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 0 {
				t.Errorf("rejected upload stored %d announcements", len(list))
			}
		})
	}
}

func TestUploadNotMultipart(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/announcements", strings.NewReader(`{"audio":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assertError(t, env.do(req), http.StatusBadRequest, "invalid_upload")
}

func TestListAndGetAnnouncements(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	first := env.createAnnouncement(t, "train arrives")
	second := env.createAnnouncement(t, "train departs")

	w := env.doJSON(http.MethodGet, "/api/announcements", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []database.Announcement
	decodeBody(t, w, &list)
	if len(list) != 2 {
		t.Fatalf("listed %d announcements, want 2", len(list))
	}

	w = env.doJSON(http.MethodGet, "/api/announcements?limit=1", nil)
	decodeBody(t, w, &list)
	if len(list) != 1 {
		t.Errorf("limit=1 listed %d", len(list))
	}

	for _, id := range []string{first.ID, second.ID} {
		w := env.doJSON(http.MethodGet, "/api/announcements/"+id, nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", id, w.Code)
		}
	}

	assertError(t, env.doJSON(http.MethodGet, "/api/announcements/missing", nil), http.StatusNotFound, "not_found")
}

func TestListAnnouncementsEmpty(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.doJSON(http.MethodGet, "/api/announcements", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestUpdateTranscript(t *testing.T) {
	env := newTestEnv(t, envOptions{transcriber: speech.Static("")})

	w := env.do(uploadRequest(t, "call.wav", []byte("RIFF"), nil))
	var resp UploadResponse
	decodeBody(t, w, &resp)
	id := resp.Announcement.ID

	w = env.doJSON(http.MethodPut, "/api/announcements/"+id+"/transcript", TranscriptRequest{Transcript: "  train 2 arrives "})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var a database.Announcement
	decodeBody(t, w, &a)
	if a.Transcript != "train 2 arrives" || a.Status != database.StatusTranscribed || a.ErrorCode != "" {
		t.Errorf("announcement = %+v", a)
	}

	assertError(t, env.doJSON(http.MethodPut, "/api/announcements/"+id+"/transcript", TranscriptRequest{Transcript: " "}),
		http.StatusBadRequest, "invalid_request")
	assertError(t, env.doJSON(http.MethodPut, "/api/announcements/missing/transcript", TranscriptRequest{Transcript: "train"}),
		http.StatusNotFound, "not_found")

	if err := env.db.BeginGeneration(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	assertError(t, env.doJSON(http.MethodPut, "/api/announcements/"+id+"/transcript", TranscriptRequest{Transcript: "train"}),
		http.StatusConflict, "generation_in_progress")
}

func TestGenerateVideo(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := env.createAnnouncement(t, "Train 42 arrives")

	progress, unsubscribe := env.hub.Subscribe(a.ID)
	defer unsubscribe()

	w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp GenerateResponse
	decodeBody(t, w, &resp)
	if resp.Result.Outcome != compositor.OutcomeSuccess || len(resp.Result.Segments) != 4 {
		t.Errorf("result = %+v", resp.Result)
	}
	if !resp.Announcement.HasVideo || resp.Announcement.Status != database.StatusGenerated {
		t.Errorf("announcement = %+v", resp.Announcement)
	}
	if resp.Announcement.SegmentCount != 4 || resp.Announcement.DurationMs != 7500 {
		t.Errorf("SegmentCount = %d DurationMs = %d, want 4 and 7500",
			resp.Announcement.SegmentCount, resp.Announcement.DurationMs)
	}

	stored, _ := env.db.GetAnnouncement(context.Background(), a.ID)
	if want := filepath.Join(env.config.OutputDir, a.ID+".mp4"); stored.VideoPath != want {
		t.Errorf("VideoPath = %q, want %q", stored.VideoPath, want)
	}

	var stages []string
	for len(progress) > 0 {
		ev := <-progress
		stages = append(stages, ev.Stage)
	}
	if len(stages) == 0 || stages[len(stages)-1] != string(compositor.StageDone) {
		t.Errorf("event stages = %v, want ending in done", stages)
	}
}

func TestGetVideo(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := env.createAnnouncement(t, "train arrives")

	assertError(t, env.doJSON(http.MethodGet, "/api/announcements/"+a.ID+"/video", nil), http.StatusNotFound, "not_found")

	if w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil); w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body %s", w.Code, w.Body.String())
	}

	w := env.doJSON(http.MethodGet, "/api/announcements/"+a.ID+"/video", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "final mp4 bytes" {
		t.Errorf("body = %q", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/announcements/"+a.ID+"/video?download=1", http.NoBody)
	req.Header.Set("Range", "bytes=0-4")
	w = env.do(req)
	if w.Code != http.StatusPartialContent || w.Body.String() != "final" {
		t.Errorf("range response = %d %q", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="isl-platform.mp4"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestGenerateVideoFailures(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		assertError(t, env.doJSON(http.MethodPost, "/api/announcements/missing/video", nil), http.StatusNotFound, "not_found")
	})

	t.Run("no transcript", func(t *testing.T) {
		env := newTestEnv(t, envOptions{transcriber: speech.Static("")})
		w := env.do(uploadRequest(t, "call.wav", []byte("RIFF"), nil))
		var resp UploadResponse
		decodeBody(t, w, &resp)

		assertError(t, env.doJSON(http.MethodPost, "/api/announcements/"+resp.Announcement.ID+"/video", nil),
			http.StatusUnprocessableEntity, "no_transcript")
	})

	t.Run("already generating", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		a := env.createAnnouncement(t, "train")
		if err := env.db.BeginGeneration(context.Background(), a.ID); err != nil {
			t.Fatal(err)
		}
		assertError(t, env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil),
			http.StatusConflict, "generation_in_progress")
	})

	t.Run("no segments", func(t *testing.T) {
		env := newTestEnv(t, envOptions{library: []string{"train.mp4"}})
		a := env.createAnnouncement(t, "platform change")

		w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil)
		assertError(t, w, http.StatusUnprocessableEntity, "no_segments")

		var resp GenerateErrorResponse
		decodeBody(t, w, &resp)
		if resp.Stage != compositor.StageResolving {
			t.Errorf("Stage = %q, want resolving", resp.Stage)
		}

		stored, _ := env.db.GetAnnouncement(context.Background(), a.ID)
		if stored.Status != database.StatusGenerationFailed || stored.ErrorCode != "no_segments" || stored.HasVideo {
			t.Errorf("stored = %+v", stored)
		}
		if stored.WarningCount != 2 {
			t.Errorf("WarningCount = %d, want 2 omitted parts", stored.WarningCount)
		}
	})

	t.Run("audio missing", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		a := env.createAnnouncement(t, "train")
		if err := os.Remove(a.AudioPath); err != nil {
			t.Fatal(err)
		}

		w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil)
		assertError(t, w, http.StatusUnprocessableEntity, "no_audio")

		stored, _ := env.db.GetAnnouncement(context.Background(), a.ID)
		if stored.Status != database.StatusGenerationFailed || stored.ErrorCode != "no_audio" {
			t.Errorf("stored = %+v", stored)
		}
	})

	t.Run("library missing", func(t *testing.T) {
		env := newTestEnv(t, envOptions{noLibrary: true})
		a := env.createAnnouncement(t, "train")
		assertError(t, env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil),
			http.StatusServiceUnavailable, "media_dir_not_found")
	})

	t.Run("encode failure", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		env.enc.concatErr = errors.New("ffmpeg exited with status 1")
		a := env.createAnnouncement(t, "train")

		assertError(t, env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil),
			http.StatusInternalServerError, "encode_failed")

		if _, err := os.Stat(filepath.Join(env.config.OutputDir, a.ID+".mp4")); !os.IsNotExist(err) {
			t.Error("output written despite encode failure")
		}
	})
}

func TestGetWarnings(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := env.createAnnouncement(t, "train to howrah")

	if w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil); w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body %s", w.Code, w.Body.String())
	}

	w := env.doJSON(http.MethodGet, "/api/announcements/"+a.ID+"/warnings", nil)
	var warnings []compositor.Warning
	decodeBody(t, w, &warnings)

	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %+v", len(warnings), warnings)
	}
	for _, warning := range warnings {
		if warning.Kind != compositor.WarningFallback {
			t.Errorf("warning kind = %q, want fallback", warning.Kind)
		}
	}
}

func TestGetVideoAfterFailedRegeneration(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := env.createAnnouncement(t, "train arrives")

	if w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil); w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body %s", w.Code, w.Body.String())
	}

	env.enc.concatErr = errors.New("ffmpeg exited with status 1")
	assertError(t, env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil),
		http.StatusInternalServerError, "encode_failed")

	stored, _ := env.db.GetAnnouncement(context.Background(), a.ID)
	if stored.Status != database.StatusGenerationFailed || !stored.HasVideo {
		t.Errorf("Status = %q HasVideo = %v, want failed with previous video", stored.Status, stored.HasVideo)
	}

	w := env.doJSON(http.MethodGet, "/api/announcements/"+a.ID+"/video", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "final mp4 bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestDeleteAnnouncement(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := env.createAnnouncement(t, "train arrives")

	if w := env.doJSON(http.MethodPost, "/api/announcements/"+a.ID+"/video", nil); w.Code != http.StatusOK {
		t.Fatalf("generate status = %d", w.Code)
	}
	stored, _ := env.db.GetAnnouncement(context.Background(), a.ID)

	w := env.doJSON(http.MethodDelete, "/api/announcements/"+a.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	for _, path := range []string{stored.AudioPath, stored.VideoPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s not removed", path)
		}
	}
	assertError(t, env.doJSON(http.MethodDelete, "/api/announcements/"+a.ID, nil), http.StatusNotFound, "not_found")
}

func TestDeleteWhileGenerating(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := env.createAnnouncement(t, "train")
	if err := env.db.BeginGeneration(context.Background(), a.ID); err != nil {
		t.Fatal(err)
	}

	assertError(t, env.doJSON(http.MethodDelete, "/api/announcements/"+a.ID, nil), http.StatusConflict, "generation_in_progress")
	if _, err := os.Stat(a.AudioPath); err != nil {
		t.Errorf("audio removed while generating: %v", err)
	}
}

func TestAnnouncementEventsNotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	assertError(t, env.doJSON(http.MethodGet, "/api/announcements/missing/events", nil), http.StatusNotFound, "not_found")
}

func TestProgressPublisher(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ch, unsubscribe := env.hub.Subscribe("a1")
	defer unsubscribe()

	env.h.progressPublisher("a1")(compositor.Progress{Stage: compositor.StageResolving, Segment: 2, Total: 5})

	ev := <-ch
	want := events.Event{AnnouncementID: "a1", Stage: "resolving", Segment: 2, Total: 5}
	ev.Time = want.Time
	if ev != want {
		t.Errorf("event = %+v, want %+v", ev, want)
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		original string
		want     string
	}{
		{"platform.wav", "isl-platform.mp4"},
		{"Howrah Express.m4a", "isl-Howrah Express.mp4"},
		{`bad"name.mp3`, "isl-bad_name.mp4"},
		{".wav", "isl-.wav.mp4"},
		{"", "isl-id1.mp4"},
	}

	for _, tt := range tests {
		got := downloadName(&database.Announcement{ID: "id1", OriginalName: tt.original})
		if got != tt.want {
			t.Errorf("downloadName(%q) = %q, want %q", tt.original, got, tt.want)
		}
	}
}
