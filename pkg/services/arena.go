package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/models"
)

// ArenaService resolves the single persistent arena room.
type ArenaService struct {
	db  database.DatabaseInterface
	now func() time.Time
}

// NewArenaService 创建竞技场服务
func NewArenaService(db database.DatabaseInterface) *ArenaService {
	return &ArenaService{db: db, now: time.Now}
}

// GetArena returns the active arena, or nil when none was created yet.
func (s *ArenaService) GetArena(ctx context.Context) (*models.Room, error) {
	room, err := s.db.GetActiveArena(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active arena: %w", err)
	}
	return room, nil
}

// GetRoom looks a room up by id, active or not.
func (s *ArenaService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.db.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("room not found")
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// CreateArena replaces the active arena. Admin only.
func (s *ArenaService) CreateArena(ctx context.Context, caller *models.User, name string) (*models.Room, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !caller.Role.IsAdmin() {
		return nil, unauthorized("only admins can create the arena")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultArenaName
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	room := &models.Room{
		Name:       name,
		CreatedBy:  caller.ID,
		CreatedAt:  now,
		LastActive: now,
	}
	if err := s.db.CreateArena(ctx, room); err != nil {
		return nil, fmt.Errorf("create arena: %w", err)
	}
	slog.Info("arena created", "room_id", room.ID, "name", room.Name, "by", caller.ID)
	return room, nil
}

// Touch bumps lastActive. Failures are not fatal to callers.
func (s *ArenaService) Touch(ctx context.Context, roomID string) error {
	err := s.db.TouchRoom(ctx, roomID, s.now().UTC())
	if errors.Is(err, database.ErrNotFound) {
		return notFound("room not found")
	}
	return err
}

// isArenaRoom reports whether roomID names the active arena, by name or id.
func isArenaRoom(ctx context.Context, db database.DatabaseInterface, roomID string) (bool, error) {
	room, err := db.GetActiveArena(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get active arena: %w", err)
	}
	return roomID == room.Name || roomID == room.ID, nil
}
