package models

import "time"

// Transcript kinds for archives.
const (
	TranscriptKindArena    = "arena"
	TranscriptKindBreakout = "breakout"
)

// Transcript is one line of live captioning for a room.
type Transcript struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"room_id" db:"room_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	UserEmail string    `json:"user_email" db:"user_email"`
	UserName  string    `json:"user_name" db:"user_name"`
	Text      string    `json:"text" db:"text"`
	IsFinal   bool      `json:"is_final" db:"is_final"`
	MessageID string    `json:"message_id,omitempty" db:"message_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TranscriptArchive stores a room's transcript after a reset.
type TranscriptArchive struct {
	ID             string       `json:"id" db:"id"`
	OriginalRoomID string       `json:"original_room_id" db:"original_room_id"`
	Kind           string       `json:"kind" db:"kind"`
	ArchivedBy     string       `json:"archived_by" db:"archived_by"`
	ArchivedAt     time.Time    `json:"archived_at" db:"archived_at"`
	Entries        []Transcript `json:"entries" db:"entries"`
}

// AddTranscriptRequest represents the request payload for a transcript line
type AddTranscriptRequest struct {
	Text      string `json:"text"`
	IsFinal   bool   `json:"is_final"`
	MessageID string `json:"message_id,omitempty"`
}

// ArchiveTranscriptsRequest represents the request payload for a transcript reset
type ArchiveTranscriptsRequest struct {
	Kind string `json:"kind"`
}
