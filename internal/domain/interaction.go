package domain

import "time"

// Speaker identifies who produced an interaction record.
const (
	SpeakerUser   = "USER"
	SpeakerAI     = "AI"
	SpeakerSystem = "SYSTEM"
)

// InteractionRecord is one append-only entry in the tutoring log.
// Records are written for reporting and export, never read back for
// turn-time decisions.
type InteractionRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Trial     string    `json:"trial,omitempty"`
	Speaker   string    `json:"speaker"`
	Concept   string    `json:"concept"`
	Message   string    `json:"message"`
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`
}

// Recording holds metadata for an uploaded learner audio recording.
type Recording struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
