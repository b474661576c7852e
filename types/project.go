package types

import "time"

// ProjectStatus represents the project lifecycle state machine
type ProjectStatus string

const (
	StatusDraft           ProjectStatus = "draft"
	StatusParsing         ProjectStatus = "parsing"
	StatusAudioGenerating ProjectStatus = "audio_generating"
	StatusAudioReady      ProjectStatus = "audio_ready"
	StatusDirecting       ProjectStatus = "directing"
	StatusReadyForReview  ProjectStatus = "ready_for_review"
	StatusRendering       ProjectStatus = "rendering"
	StatusComplete        ProjectStatus = "complete"
	StatusFailed          ProjectStatus = "failed"
)

// Failure reasons recorded with StatusFailed
const (
	FailureError     = "error"
	FailureCancelled = "cancelled"
)

// Origin records who produced the current value of a facet
type Origin string

const (
	OriginAuto       Origin = "auto"
	OriginOverridden Origin = "overridden"
)

// FacetState tracks approval of one facet (audio or instructions) of a panel
type FacetState struct {
	Origin     Origin     `json:"origin"`
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// Resolution is the output frame size
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Project aggregates everything needed to turn one comic into a video
type Project struct {
	ID              string        `json:"id"`
	Title           string        `json:"title,omitempty"`
	SourceImagePath string        `json:"source_image_path"`
	SourceWidth     int           `json:"source_width"`
	SourceHeight    int           `json:"source_height"`
	Metadata        ComicMetadata `json:"metadata"`
	Layout          *ComicLayout  `json:"layout,omitempty"`
	AspectRatio     string        `json:"aspect_ratio"`
	Resolution      Resolution    `json:"resolution"`
	FPS             int           `json:"fps"`
	NarratorVoice   string        `json:"narrator_voice,omitempty"`
	BackgroundMusic string        `json:"background_music,omitempty"`
	Status          ProjectStatus `json:"status"`
	FailureReason   string        `json:"failure_reason,omitempty"`
	Error           string        `json:"error,omitempty"`
	FinalVideoPath  string        `json:"final_video_path,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/projects/:id
type StatusResponse struct {
	ProjectID      string        `json:"project_id"`
	Status         ProjectStatus `json:"status"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	Error          string        `json:"error,omitempty"`
	PanelCount     int           `json:"panel_count"`
	AudioApproved  int           `json:"audio_approved"`
	InstrApproved  int           `json:"instructions_approved"`
	FinalVideoPath string        `json:"final_video_path,omitempty"`
	Logs           []LogEntry    `json:"logs"`
}

// StatusEvent is published whenever a project changes status
type StatusEvent struct {
	ProjectID string        `json:"project_id"`
	Status    ProjectStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
