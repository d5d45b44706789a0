package entity

import "github.com/google/uuid"

// KeyframeJobMessage is the inbound message from the keyframes.extract queue.
type KeyframeJobMessage struct {
	JobID      uuid.UUID `json:"job_id"`
	UserID     string    `json:"user_id"`
	VideoKey   string    `json:"video_key"`
	FrameCount int       `json:"frame_count"`
	FileSize   int64     `json:"file_size"`
	UserEmail  string    `json:"user_email"`
}

// KeyframeStatusMessage is the outbound message published to the
// keyframes.status queue.
type KeyframeStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	VideoKey     string    `json:"video_key"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
