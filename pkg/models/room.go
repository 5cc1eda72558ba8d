package models

import "time"

// RoomTypeArena is the only persisted room type.
const RoomTypeArena = "arena"

// DefaultArenaName is used when an admin creates the arena without a name.
const DefaultArenaName = "main-arena-permanent"

// Room is the persistent arena record.
type Room struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Type       string    `json:"type" db:"type"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedBy  string    `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	LastActive time.Time `json:"last_active" db:"last_active"`
}

// CreateArenaRequest represents the request payload for creating the arena
type CreateArenaRequest struct {
	Name string `json:"name"`
}
