package database

import "time"

// AnnouncementStatus is the lifecycle state of an announcement.
type AnnouncementStatus string

const (
	StatusTranscribed         AnnouncementStatus = "transcribed"
	StatusTranscriptionFailed AnnouncementStatus = "transcription_failed"
	StatusGenerating          AnnouncementStatus = "generating"
	StatusGenerated           AnnouncementStatus = "generated"
	StatusGenerationFailed    AnnouncementStatus = "generation_failed"
)

// AllStatuses lists every announcement status.
var AllStatuses = []AnnouncementStatus{
	StatusTranscribed,
	StatusTranscriptionFailed,
	StatusGenerating,
	StatusGenerated,
	StatusGenerationFailed,
}

// Announcement is one uploaded recording and the video generated from it.
type Announcement struct {
	ID           string             `json:"id"`
	OriginalName string             `json:"originalName"`
	AudioPath    string             `json:"-"`
	Transcript   string             `json:"transcript"`
	Status       AnnouncementStatus `json:"status"`
	Error        string             `json:"error,omitempty"`
	ErrorCode    string             `json:"errorCode,omitempty"`
	VideoPath    string             `json:"-"`
	HasVideo     bool               `json:"hasVideo"`
	SegmentCount int                `json:"segmentCount"`
	WarningCount int                `json:"warningCount"`
	// Warnings is the JSON-encoded warning list of the last generation.
	Warnings   string    `json:"-"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GenerationUpdate records the result of a generation attempt.
type GenerationUpdate struct {
	Status       AnnouncementStatus
	Error        string
	ErrorCode    string
	VideoPath    string
	SegmentCount int
	WarningCount int
	Warnings     string
	DurationMs   int64
}
