package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/realtime"

	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db     *database.SQLDatabase
	hub    *realtime.Hub
	clock  *fakeClock
	svc    *BreakoutService
	admin  *models.User
	team   *models.User
	team2  *models.User
	client *models.User
	other  *models.User
}

func openStore(t *testing.T) *database.SQLDatabase {
	t.Helper()
	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "arena.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db database.DatabaseInterface, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email[:len(email)-len("@example.com")], Role: role}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{db: openStore(t), hub: realtime.NewHub(), clock: newFakeClock()}
	f.admin = seedUser(t, f.db, "admin@example.com", models.RoleAdmin)
	f.team = seedUser(t, f.db, "team@example.com", models.RoleTeamMember)
	f.team2 = seedUser(t, f.db, "team2@example.com", models.RoleTeamMember)
	f.client = seedUser(t, f.db, "client@example.com", models.RoleClient)
	f.other = seedUser(t, f.db, "other@example.com", models.RoleClient)

	opts = append([]Option{WithClock(f.clock.Now)}, opts...)
	f.svc = NewBreakoutService(f.db, f.hub, opts...)
	return f
}

// invite creates a pending invitation from team to client in room.
func (f *fixture) invite(t *testing.T, room string) *models.Invitation {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), f.team, f.client.ID, room)
	require.NoError(t, err)
	return inv
}

// accepted creates and accepts an invitation in room.
func (f *fixture) accepted(t *testing.T, room string) *models.Invitation {
	t.Helper()
	inv := f.invite(t, room)
	_, err := f.svc.Respond(context.Background(), f.client, inv.ID, models.ResponseAccept)
	require.NoError(t, err)
	inv.Status = models.InvitationAccepted
	return inv
}

func (f *fixture) status(t *testing.T, id string) models.InvitationStatus {
	t.Helper()
	inv, err := f.db.GetInvitation(context.Background(), id)
	require.NoError(t, err)
	return inv.Status
}

// fakeDeleter records DeleteRoom calls.
type fakeDeleter struct {
	mu    sync.Mutex
	rooms []string
	err   error
}

func (d *fakeDeleter) DeleteRoom(_ context.Context, room string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms = append(d.rooms, room)
	return d.err
}
