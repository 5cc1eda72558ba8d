package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arena-breakout-backend/pkg/models"
)

var (
	// ErrNotFound is returned when a point lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique key is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// InvitationFilter selects invitations. Empty fields do not constrain.
type InvitationFilter struct {
	InviteeID string
	InviterID string
	// ParticipantID matches either side of the invitation.
	ParticipantID   string
	RoomID          string
	Statuses        []models.InvitationStatus
	ExcludeStatuses []models.InvitationStatus
	ExpiresBefore   *time.Time
	Limit           int
}

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error

	// Invitations
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitation(ctx context.Context, id string) (*models.Invitation, error)
	ListInvitations(ctx context.Context, filter InvitationFilter) ([]models.Invitation, error)
	CountInvitations(ctx context.Context, filter InvitationFilter) (int, error)
	// TransitionInvitation sets the status only if the current status is one of from.
	// It reports whether the row changed.
	TransitionInvitation(ctx context.Context, id string, from []models.InvitationStatus, to models.InvitationStatus, at time.Time) (bool, error)
	// DeleteInvitation removes the row, restricted to the given statuses when any are passed.
	DeleteInvitation(ctx context.Context, id string, from []models.InvitationStatus) (bool, error)
	DeleteInvitations(ctx context.Context, ids []string) (int, error)

	// Arena rooms
	GetActiveArena(ctx context.Context) (*models.Room, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	// CreateArena deactivates any active arena and inserts room as the active one atomically.
	CreateArena(ctx context.Context, room *models.Room) error
	TouchRoom(ctx context.Context, id string, at time.Time) error

	// Transcripts
	AddTranscript(ctx context.Context, t *models.Transcript) error
	ListTranscripts(ctx context.Context, roomID string, before *time.Time, limit int) ([]models.Transcript, error)
	// ArchiveTranscripts stores every transcript of the room in archive and deletes them.
	ArchiveTranscripts(ctx context.Context, archive *models.TranscriptArchive) (int, error)

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	PostgresDSN string
	SQLitePath  string
	Debug       bool
}

// NewDatabase 根据配置选择数据库实现: PostgreSQL > SQLite
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	if config.PostgresDSN != "" {
		slog.Info("using postgres database")
		db, err := NewPostgresDatabase(config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	if config.SQLitePath != "" {
		slog.Info("using sqlite database", "path", config.SQLitePath)
		db, err := NewSQLiteDatabase(config.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	return nil, fmt.Errorf("no database configured: set POSTGRES_DSN or SQLITE_PATH")
}
