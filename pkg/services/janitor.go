package services

import (
	"context"
	"errors"
	"log/slog"

	"arena-breakout-backend/pkg/livekit"
)

// RoomDeleter removes a room on the media server.
type RoomDeleter interface {
	DeleteRoom(ctx context.Context, room string) error
}

// JanitorResult is the outcome of an external cleanup.
type JanitorResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RoomJanitor deletes breakout rooms on the media server after local cleanup.
type RoomJanitor struct {
	rooms RoomDeleter
}

func NewRoomJanitor(rooms RoomDeleter) *RoomJanitor {
	return &RoomJanitor{rooms: rooms}
}

// DeleteExternalRoom never fails: provider errors are returned in the result.
// A room the provider no longer knows counts as deleted.
func (j *RoomJanitor) DeleteExternalRoom(ctx context.Context, roomID string) JanitorResult {
	if j == nil || j.rooms == nil {
		return JanitorResult{Error: livekit.ErrNotConfigured.Error()}
	}
	if roomID == "" {
		return JanitorResult{Error: "room id is required"}
	}

	err := j.rooms.DeleteRoom(ctx, roomID)
	switch {
	case err == nil:
		slog.Info("external room deleted", "room_id", roomID)
		return JanitorResult{Success: true}
	case livekit.IsNotFound(err):
		return JanitorResult{Success: true}
	case errors.Is(err, livekit.ErrNotConfigured):
		slog.Warn("external room cleanup skipped", "room_id", roomID, "error", err)
		return JanitorResult{Error: err.Error()}
	default:
		slog.Warn("external room cleanup failed", "room_id", roomID, "error", err)
		return JanitorResult{Error: err.Error()}
	}
}
