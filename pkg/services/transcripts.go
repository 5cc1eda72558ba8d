package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/models"
)

const (
	defaultTranscriptLimit = 100
	maxTranscriptLimit     = 500
)

// TranscriptService stores live captions per room.
type TranscriptService struct {
	db  database.DatabaseInterface
	now func() time.Time
}

// NewTranscriptService 创建字幕服务
func NewTranscriptService(db database.DatabaseInterface) *TranscriptService {
	return &TranscriptService{db: db, now: time.Now}
}

// Add appends one caption line spoken by caller.
func (s *TranscriptService) Add(ctx context.Context, caller *models.User, roomID string, req models.AddTranscriptRequest) (*models.Transcript, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if caller.Email == "" {
		return nil, unauthorized("an email identity is required to transcribe")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalidArgument("text is required")
	}
	if roomID == "" {
		return nil, invalidArgument("room id is required")
	}

	t := &models.Transcript{
		RoomID:    roomID,
		UserID:    caller.ID,
		UserEmail: caller.Email,
		UserName:  caller.DisplayName(),
		Text:      text,
		IsFinal:   req.IsFinal,
		MessageID: req.MessageID,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.db.AddTranscript(ctx, t); err != nil {
		return nil, fmt.Errorf("add transcript: %w", err)
	}
	return t, nil
}

// List returns up to limit lines older than before, oldest first.
func (s *TranscriptService) List(ctx context.Context, caller *models.User, roomID string, before *time.Time, limit int) ([]models.Transcript, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}
	limit = min(limit, maxTranscriptLimit)
	lines, err := s.db.ListTranscripts(ctx, roomID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return lines, nil
}

// Archive moves a room's transcript into an archive and clears it.
func (s *TranscriptService) Archive(ctx context.Context, caller *models.User, roomID, kind string) (int, error) {
	if caller == nil {
		return 0, unauthenticated()
	}
	if kind != models.TranscriptKindArena && kind != models.TranscriptKindBreakout {
		return 0, invalidArgument("kind must be arena or breakout")
	}
	arena, err := isArenaRoom(ctx, s.db, roomID)
	if err != nil {
		return 0, err
	}
	if arena {
		kind = models.TranscriptKindArena
	}
	if kind == models.TranscriptKindArena && !caller.Role.CanSendInvites() {
		return 0, unauthorized("only team members can reset the arena transcript")
	}

	n, err := s.db.ArchiveTranscripts(ctx, &models.TranscriptArchive{
		OriginalRoomID: roomID,
		Kind:           kind,
		ArchivedBy:     caller.ID,
		ArchivedAt:     s.now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("archive transcripts: %w", err)
	}
	return n, nil
}
