package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"arena-breakout-backend/pkg/models"

	"github.com/google/uuid"
)

// dialect captures the differences between the supported SQL engines.
type dialect struct {
	name string
	// numbered placeholders ($1, $2) instead of ?
	numbered          bool
	migrations        fs.FS
	migrationRoot     string
	isUniqueViolation func(error) bool
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDatabase implements DatabaseInterface on database/sql for both PostgreSQL and SQLite.
type SQLDatabase struct {
	db      *sql.DB
	dialect dialect
}

func newSQLDatabase(ctx context.Context, db *sql.DB, d dialect) (*SQLDatabase, error) {
	if err := ApplyMigrations(ctx, db, d, d.migrations, d.migrationRoot); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLDatabase{db: db, dialect: d}, nil
}

// Dialect returns "postgres" or "sqlite".
func (s *SQLDatabase) Dialect() string {
	return s.dialect.name
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func (s *SQLDatabase) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDatabase) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDatabase) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func statusArgs(statuses []models.InvitationStatus) []any {
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return args
}

// ---- users ----

const userColumns = `id, email, name, role, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	var role string
	var createdAt, updatedAt int64
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

// CreateUser 创建用户
func (s *SQLDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	_, err := s.exec(ctx, s.db,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, string(user.Role), toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID 根据ID获取用户
func (s *SQLDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *SQLDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns users ordered by email; an empty role lists everyone.
func (s *SQLDatabase) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY email`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdateUserRole 更新用户角色
func (s *SQLDatabase) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.exec(ctx, s.db, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- invitations ----

const invitationColumns = `id, inviter_id, invitee_id, room_id, status, created_at, expires_at, updated_at`

func scanInvitation(row interface{ Scan(dest ...any) error }) (*models.Invitation, error) {
	var inv models.Invitation
	var status string
	var createdAt, expiresAt, updatedAt int64
	if err := row.Scan(&inv.ID, &inv.InviterID, &inv.InviteeID, &inv.RoomID, &status, &createdAt, &expiresAt, &updatedAt); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status)
	inv.CreatedAt = fromMillis(createdAt)
	inv.ExpiresAt = fromMillis(expiresAt)
	inv.UpdatedAt = fromMillis(updatedAt)
	return &inv, nil
}

// CreateInvitation inserts inv. ID is generated when empty.
func (s *SQLDatabase) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.UpdatedAt.IsZero() {
		inv.UpdatedAt = inv.CreatedAt
	}
	_, err := s.exec(ctx, s.db,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InviterID, inv.InviteeID, inv.RoomID, string(inv.Status),
		toMillis(inv.CreatedAt), toMillis(inv.ExpiresAt), toMillis(inv.UpdatedAt),
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetInvitation 根据ID获取邀请
func (s *SQLDatabase) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inv, err := scanInvitation(s.queryRow(ctx, s.db, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func invitationWhere(f InvitationFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.InviteeID != "" {
		clauses = append(clauses, "invitee_id = ?")
		args = append(args, f.InviteeID)
	}
	if f.InviterID != "" {
		clauses = append(clauses, "inviter_id = ?")
		args = append(args, f.InviterID)
	}
	if f.ParticipantID != "" {
		clauses = append(clauses, "(inviter_id = ? OR invitee_id = ?)")
		args = append(args, f.ParticipantID, f.ParticipantID)
	}
	if f.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(f.Statuses))+")")
		args = append(args, statusArgs(f.Statuses)...)
	}
	if len(f.ExcludeStatuses) > 0 {
		clauses = append(clauses, "status NOT IN ("+placeholders(len(f.ExcludeStatuses))+")")
		args = append(args, statusArgs(f.ExcludeStatuses)...)
	}
	if f.ExpiresBefore != nil {
		clauses = append(clauses, "expires_at < ?")
		args = append(args, toMillis(*f.ExpiresBefore))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListInvitations returns matching invitations, newest first.
func (s *SQLDatabase) ListInvitations(ctx context.Context, filter InvitationFilter) ([]models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	where, args := invitationWhere(filter)
	query := `SELECT ` + invitationColumns + ` FROM invitations` + where + ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}

// CountInvitations 统计符合条件的邀请数量
func (s *SQLDatabase) CountInvitations(ctx context.Context, filter InvitationFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	where, args := invitationWhere(filter)
	var n int
	if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM invitations`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count invitations: %w", err)
	}
	return n, nil
}

// TransitionInvitation is a compare-and-set on status.
func (s *SQLDatabase) TransitionInvitation(ctx context.Context, id string, from []models.InvitationStatus, to models.InvitationStatus, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(from) == 0 {
		return false, fmt.Errorf("transition requires at least one source status")
	}
	args := []any{string(to), toMillis(at), id}
	args = append(args, statusArgs(from)...)
	res, err := s.exec(ctx, s.db,
		`UPDATE invitations SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteInvitation deletes the row only while its status is one of from.
func (s *SQLDatabase) DeleteInvitation(ctx context.Context, id string, from []models.InvitationStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	query := `DELETE FROM invitations WHERE id = ?`
	args := []any{id}
	if len(from) > 0 {
		query += ` AND status IN (` + placeholders(len(from)) + `)`
		args = append(args, statusArgs(from)...)
	}
	res, err := s.exec(ctx, s.db, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

const deleteBatchSize = 500

// DeleteInvitations removes the given rows and returns how many existed.
func (s *SQLDatabase) DeleteInvitations(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	total := 0
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		res, err := s.exec(ctx, s.db, `DELETE FROM invitations WHERE id IN (`+placeholders(len(batch))+`)`, args...)
		if err != nil {
			return total, fmt.Errorf("failed to delete invitations: %w", err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

// ---- rooms ----

const roomColumns = `id, name, type, is_active, created_by, created_at, last_active`

func scanRoom(row interface{ Scan(dest ...any) error }) (*models.Room, error) {
	var r models.Room
	var createdAt, lastActive int64
	if err := row.Scan(&r.ID, &r.Name, &r.Type, &r.IsActive, &r.CreatedBy, &createdAt, &lastActive); err != nil {
		return nil, err
	}
	r.CreatedAt = fromMillis(createdAt)
	r.LastActive = fromMillis(lastActive)
	return &r, nil
}

// GetActiveArena 获取当前活跃的竞技场
func (s *SQLDatabase) GetActiveArena(ctx context.Context) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := scanRoom(s.queryRow(ctx, s.db,
		`SELECT `+roomColumns+` FROM rooms WHERE type = ? AND is_active = ? ORDER BY created_at DESC LIMIT 1`,
		models.RoomTypeArena, true,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active arena: %w", err)
	}
	return r, nil
}

// GetRoom 根据ID获取房间
func (s *SQLDatabase) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := scanRoom(s.queryRow(ctx, s.db, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return r, nil
}

const createArenaAttempts = 3

// CreateArena 在事务中停用旧的竞技场并插入新的活动竞技场
func (s *SQLDatabase) CreateArena(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.Type = models.RoomTypeArena
	room.IsActive = true

	var err error
	for attempt := 0; attempt < createArenaAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := s.exec(ctx, tx,
				`UPDATE rooms SET is_active = ? WHERE type = ? AND is_active = ?`,
				false, models.RoomTypeArena, true,
			); err != nil {
				return err
			}
			_, err := s.exec(ctx, tx,
				`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				room.ID, room.Name, room.Type, room.IsActive, room.CreatedBy,
				toMillis(room.CreatedAt), toMillis(room.LastActive),
			)
			return err
		})
		if err == nil {
			return nil
		}
		// A concurrent creator committed between our deactivate and insert.
		if !s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("failed to create arena: %w", err)
		}
	}
	return fmt.Errorf("failed to create arena after %d attempts: %w", createArenaAttempts, err)
}

// TouchRoom 更新房间最后活跃时间
func (s *SQLDatabase) TouchRoom(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.exec(ctx, s.db, `UPDATE rooms SET last_active = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- transcripts ----

const transcriptColumns = `id, room_id, user_id, user_email, user_name, text, is_final, message_id, created_at`

func scanTranscript(row interface{ Scan(dest ...any) error }) (*models.Transcript, error) {
	var t models.Transcript
	var createdAt int64
	if err := row.Scan(&t.ID, &t.RoomID, &t.UserID, &t.UserEmail, &t.UserName, &t.Text, &t.IsFinal, &t.MessageID, &createdAt); err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

// AddTranscript 添加一条字幕
func (s *SQLDatabase) AddTranscript(ctx context.Context, t *models.Transcript) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.exec(ctx, s.db,
		`INSERT INTO transcriptions (`+transcriptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RoomID, t.UserID, t.UserEmail, t.UserName, t.Text, t.IsFinal, t.MessageID, toMillis(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add transcript: %w", err)
	}
	return nil
}

func (s *SQLDatabase) listTranscripts(ctx context.Context, q querier, roomID string, before *time.Time, limit int) ([]models.Transcript, error) {
	query := `SELECT ` + transcriptColumns + ` FROM transcriptions WHERE room_id = ?`
	args := []any{roomID}
	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, toMillis(*before))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, q, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	out := []models.Transcript{}
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}

	// oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListTranscripts returns the newest limit lines before the cursor, oldest first.
func (s *SQLDatabase) ListTranscripts(ctx context.Context, roomID string, before *time.Time, limit int) ([]models.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.listTranscripts(ctx, s.db, roomID, before, limit)
}

// ArchiveTranscripts copies the room transcript into an archive row and clears it in one transaction.
func (s *SQLDatabase) ArchiveTranscripts(ctx context.Context, archive *models.TranscriptArchive) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if archive.ID == "" {
		archive.ID = uuid.NewString()
	}

	count := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entries, err := s.listTranscripts(ctx, tx, archive.OriginalRoomID, nil, 0)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		payload, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to encode transcripts: %w", err)
		}
		if _, err := s.exec(ctx, tx,
			`INSERT INTO transcript_archives (id, original_room_id, kind, archived_by, archived_at, entries) VALUES (?, ?, ?, ?, ?, ?)`,
			archive.ID, archive.OriginalRoomID, archive.Kind, archive.ArchivedBy, toMillis(archive.ArchivedAt), string(payload),
		); err != nil {
			return fmt.Errorf("failed to insert transcript archive: %w", err)
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM transcriptions WHERE room_id = ?`, archive.OriginalRoomID); err != nil {
			return fmt.Errorf("failed to clear transcripts: %w", err)
		}
		archive.Entries = entries
		count = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// HealthCheck 健康检查
func (s *SQLDatabase) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *SQLDatabase) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
