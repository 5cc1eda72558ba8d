package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/livekit"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twitchtv/twirp"
)

func requireCode(t *testing.T, err error, code Code, msgAndArgs ...any) *Error {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	var se *Error
	require.True(t, errors.As(err, &se), "want *services.Error, got %T: %v", err, err)
	require.Equal(t, code, se.Code, msgAndArgs...)
	return se
}

func TestNewRoomIDGenerator(t *testing.T) {
	gen := NewRoomIDGenerator()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := gen()
		require.True(t, strings.HasPrefix(id, models.BreakoutRoomPrefix))
		suffix := strings.TrimPrefix(id, models.BreakoutRoomPrefix)
		assert.Len(t, suffix, 7)
		assert.Equal(t, strings.ToLower(suffix), suffix)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, f.team, f.client.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, f.team.ID, inv.InviterID)
	assert.Equal(t, f.client.ID, inv.InviteeID)
	assert.True(t, strings.HasPrefix(inv.RoomID, models.BreakoutRoomPrefix))
	assert.Equal(t, f.clock.Now(), inv.CreatedAt)

	stored, err := f.db.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), stored.ExpiresAt.UnixMilli()-stored.CreatedAt.UnixMilli())

	named, err := f.svc.Create(ctx, f.admin, f.client.ID, "breakout-xyz")
	require.NoError(t, err)
	assert.Equal(t, "breakout-xyz", named.RoomID)
}

func TestCreateExpiryIsExactWithSubMillisecondClock(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(123456789 * time.Nanosecond)

	inv := f.invite(t, "")
	stored, err := f.db.GetInvitation(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), stored.ExpiresAt.UnixMilli()-stored.CreatedAt.UnixMilli())
}

func TestCreateRoleGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.client, f.other.ID, "")
	requireCode(t, err, CodeUnauthorized)
	assert.ErrorIs(t, err, ErrUnauthorized)

	guest := &models.User{ID: "g", Role: models.RoleGuest}
	_, err = f.svc.Create(ctx, guest, f.client.ID, "")
	requireCode(t, err, CodeUnauthorized)

	_, err = f.svc.Create(ctx, nil, f.client.ID, "")
	requireCode(t, err, CodeUnauthenticated)
	assert.ErrorIs(t, err, ErrUnauthorized)

	n, err := f.db.CountInvitations(ctx, database.InvitationFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "rejected creates must not write")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		invitee string
		room    string
		code    Code
	}{
		{"missing invitee", "", "", CodeInvalidArgument},
		{"self", f.team.ID, "", CodeInvalidArgument},
		{"unknown invitee", "nobody", "", CodeNotFound},
		{"invitee not a client", f.team2.ID, "", CodeInvalidArgument},
		{"bad room name", f.client.ID, "room with spaces", CodeInvalidArgument},
		{"room name too long", f.client.ID, strings.Repeat("a", 65), CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.team, tt.invitee, tt.room)
			requireCode(t, err, tt.code)
		})
	}
}

func TestRespondAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "")

	res, err := f.svc.Respond(ctx, f.client, inv.ID, models.ResponseAccept)
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Status)
	assert.Equal(t, inv.RoomID, res.RoomID)
	assert.Equal(t, f.team.ID, res.InviterID)
	assert.Equal(t, f.client.ID, res.InviteeID)
	assert.Equal(t, models.InvitationAccepted, f.status(t, inv.ID))

	_, err = f.svc.Respond(ctx, f.client, inv.ID, models.ResponseAccept)
	se := requireCode(t, err, CodeAlreadyHandled)
	assert.Equal(t, models.InvitationAccepted, se.Status)
}

func TestRespondDeclineDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "")

	res, err := f.svc.Respond(ctx, f.client, inv.ID, models.ResponseDecline)
	require.NoError(t, err)
	assert.Equal(t, "declined", res.Status)

	_, err = f.db.GetInvitation(ctx, inv.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.Respond(ctx, f.client, inv.ID, models.ResponseDecline)
	requireCode(t, err, CodeNotFound)
}

func TestRespondAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "")

	_, err := f.svc.Respond(ctx, f.other, inv.ID, models.ResponseAccept)
	requireCode(t, err, CodeUnauthorized)

	_, err = f.svc.Respond(ctx, f.team, inv.ID, models.ResponseAccept)
	requireCode(t, err, CodeUnauthorized, "the inviter cannot answer their own invitation")

	_, err = f.svc.Respond(ctx, f.client, "missing", models.ResponseAccept)
	requireCode(t, err, CodeNotFound)

	_, err = f.svc.Respond(ctx, f.client, inv.ID, models.InviteResponse("maybe"))
	requireCode(t, err, CodeInvalidArgument)

	assert.Equal(t, models.InvitationPending, f.status(t, inv.ID))
}

func TestRespondAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "")

	f.clock.Advance(models.InviteTTL + time.Second)

	_, err := f.svc.Respond(ctx, f.client, inv.ID, models.ResponseAccept)
	se := requireCode(t, err, CodeAlreadyHandled)
	assert.Equal(t, models.InvitationExpired, se.Status)
	assert.Equal(t, models.InvitationExpired, f.status(t, inv.ID))
}

func TestRespondConcurrentAcceptAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "")

	responses := []models.InviteResponse{models.ResponseAccept, models.ResponseDecline, models.ResponseAccept, models.ResponseDecline}
	var wg sync.WaitGroup
	errs := make([]error, len(responses))
	for i, r := range responses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Respond(ctx, f.client, inv.ID, r)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var se *Error
		require.True(t, errors.As(err, &se))
		assert.Contains(t, []Code{CodeAlreadyHandled, CodeNotFound}, se.Code)
	}
	assert.Equal(t, 1, wins, "exactly one response may apply")
}

func TestMarkOngoing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.invite(t, "")
	_, err := f.svc.MarkOngoing(ctx, f.client, pending.ID)
	se := requireCode(t, err, CodeAlreadyHandled)
	assert.Equal(t, models.InvitationPending, se.Status)

	inv := f.accepted(t, "")

	_, err = f.svc.MarkOngoing(ctx, f.other, inv.ID)
	requireCode(t, err, CodeUnauthorized)

	got, err := f.svc.MarkOngoing(ctx, f.client, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationOngoing, got.Status)

	got, err = f.svc.MarkOngoing(ctx, f.team, inv.ID)
	require.NoError(t, err, "re-entering an ongoing session is a no-op")
	assert.Equal(t, models.InvitationOngoing, got.Status)
	assert.Equal(t, models.InvitationOngoing, f.status(t, inv.ID))

	_, err = f.svc.MarkOngoing(ctx, f.client, "missing")
	requireCode(t, err, CodeNotFound)
}

func TestCompleteForRoomDeletesOnlyLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const room = "breakout-mixed"

	a := f.accepted(t, room)
	b := f.accepted(t, room)
	_, err := f.svc.MarkOngoing(ctx, f.client, b.ID)
	require.NoError(t, err)

	pending := f.invite(t, room)
	expiring := f.invite(t, room)
	_, err = f.db.TransitionInvitation(ctx, expiring.ID, []models.InvitationStatus{models.InvitationPending}, models.InvitationExpired, f.clock.Now())
	require.NoError(t, err)
	elsewhere := f.accepted(t, "breakout-other")

	deleted, err := f.svc.CompleteForRoom(ctx, f.client, room)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, id := range []string{a.ID, b.ID} {
		_, err := f.db.GetInvitation(ctx, id)
		assert.ErrorIs(t, err, database.ErrNotFound)
	}
	assert.Equal(t, models.InvitationPending, f.status(t, pending.ID))
	assert.Equal(t, models.InvitationExpired, f.status(t, expiring.ID))
	assert.Equal(t, models.InvitationAccepted, f.status(t, elsewhere.ID))
}

func TestCompleteForRoomErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteForRoom(ctx, f.team, "breakout-empty")
	requireCode(t, err, CodeNoActiveSession)

	f.invite(t, "breakout-pending")
	_, err = f.svc.CompleteForRoom(ctx, f.team, "breakout-pending")
	requireCode(t, err, CodeNoActiveSession, "pending invitations are not a live session")

	inv := f.accepted(t, "breakout-live")
	_, err = f.svc.CompleteForRoom(ctx, f.other, "breakout-live")
	requireCode(t, err, CodeUnauthorized)
	assert.Equal(t, models.InvitationAccepted, f.status(t, inv.ID))

	_, err = f.svc.CompleteForRoom(ctx, nil, "breakout-live")
	requireCode(t, err, CodeUnauthenticated)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.invite(t, "")
	acceptedOld := f.accepted(t, "")
	f.clock.Advance(5 * time.Minute)
	fresh := f.invite(t, "")
	f.clock.Advance(5*time.Minute + time.Millisecond)

	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.InvitationExpired, f.status(t, old.ID))
	assert.Equal(t, models.InvitationAccepted, f.status(t, acceptedOld.ID), "only pending rows expire")
	assert.Equal(t, models.InvitationPending, f.status(t, fresh.ID))

	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "sweeping is idempotent")
}

func TestSweepExpiredConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.invite(t, "")
	}
	f.clock.Advance(models.InviteTTL + time.Second)

	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.svc.SweepExpired(ctx)
			assert.NoError(t, err)
			counts[i] = n
		}()
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 5, total)
}

func TestExistsForRoomReflectsDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exists, err := f.svc.ExistsForRoom(ctx, "breakout-x")
	require.NoError(t, err)
	assert.False(t, exists)

	inv := f.invite(t, "breakout-x")
	exists, err = f.svc.ExistsForRoom(ctx, "breakout-x")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = f.svc.Respond(ctx, f.client, inv.ID, models.ResponseDecline)
	require.NoError(t, err)
	exists, err = f.svc.ExistsForRoom(ctx, "breakout-x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBreakoutScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, f.team, f.client.ID, "breakout-xyz")
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.client, inv.ID, models.ResponseAccept)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, f.status(t, inv.ID))

	for _, ender := range []*models.User{f.team, f.client} {
		t.Run("ended by "+ender.Email, func(t *testing.T) {
			if ender == f.client {
				again, err := f.svc.Create(ctx, f.team, f.client.ID, "breakout-xyz")
				require.NoError(t, err)
				_, err = f.svc.Respond(ctx, f.client, again.ID, models.ResponseAccept)
				require.NoError(t, err)
			}
			deleted, err := f.svc.CompleteForRoom(ctx, ender, "breakout-xyz")
			require.NoError(t, err)
			assert.Equal(t, 1, deleted)

			n, err := f.db.CountInvitations(ctx, database.InvitationFilter{RoomID: "breakout-xyz"})
			require.NoError(t, err)
			assert.Zero(t, n)

			exists, err := f.svc.ExistsForRoom(ctx, "breakout-xyz")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestEndSessionRunsJanitor(t *testing.T) {
	deleter := &fakeDeleter{}
	f := newFixture(t, WithJanitor(NewRoomJanitor(deleter)))
	ctx := context.Background()
	inv := f.accepted(t, "breakout-end")

	res, err := f.svc.EndSession(ctx, f.team, inv.RoomID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedCount)
	require.NotNil(t, res.External)
	assert.True(t, res.External.Success)
	assert.Equal(t, []string{"breakout-end"}, deleter.rooms)
}

func TestEndSessionSurvivesProviderOutage(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("connection refused")}
	f := newFixture(t, WithJanitor(NewRoomJanitor(deleter)))
	ctx := context.Background()
	inv := f.accepted(t, "breakout-down")

	res, err := f.svc.EndSession(ctx, f.client, inv.RoomID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedCount)
	assert.False(t, res.External.Success)
	assert.Contains(t, res.External.Error, "connection refused")

	exists, err := f.svc.ExistsForRoom(ctx, inv.RoomID)
	require.NoError(t, err)
	assert.False(t, exists, "local cleanup is not blocked by the provider")
}

func TestEndSessionDoesNotCallJanitorOnError(t *testing.T) {
	deleter := &fakeDeleter{}
	f := newFixture(t, WithJanitor(NewRoomJanitor(deleter)))

	_, err := f.svc.EndSession(context.Background(), f.team, "breakout-none")
	requireCode(t, err, CodeNoActiveSession)
	assert.Empty(t, deleter.rooms)
}

func TestListPendingForMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.invite(t, "")
	f.accepted(t, "")
	f.clock.Advance(100 * time.Second)

	list, err := f.svc.ListPendingForMe(ctx, f.client)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)
	require.NotNil(t, list[0].Inviter)
	assert.Equal(t, f.team.Email, list[0].Inviter.Email)
	assert.Equal(t, int64(500), list[0].SecondsRemaining)

	list, err = f.svc.ListPendingForMe(ctx, f.other)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListSentByMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live := f.accepted(t, "")
	stale := f.invite(t, "")
	_, err := f.db.TransitionInvitation(ctx, stale.ID, []models.InvitationStatus{models.InvitationPending}, models.InvitationExpired, f.clock.Now())
	require.NoError(t, err)

	list, err := f.svc.ListSentByMe(ctx, f.team, false, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)
	require.NotNil(t, list[0].Invitee)
	assert.Equal(t, f.client.ID, list[0].Invitee.ID)

	list, err = f.svc.ListSentByMe(ctx, f.team, true, false)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListSentByMe(ctx, f.team2, true, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRoomParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.accepted(t, "breakout-p")
	f.invite(t, "breakout-p")

	users, err := f.svc.RoomParticipants(ctx, f.client, "breakout-p")
	require.NoError(t, err)
	ids := []string{}
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{f.team.ID, f.client.ID}, ids)

	_, err = f.svc.RoomParticipants(ctx, f.other, "breakout-p")
	requireCode(t, err, CodeUnauthorized)

	users, err = f.svc.RoomParticipants(ctx, f.admin, "breakout-p")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestGetInvitationVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "")

	for _, u := range []*models.User{f.team, f.client, f.admin} {
		got, err := f.svc.GetInvitation(ctx, u, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, inv.ID, got.ID)
	}
	_, err := f.svc.GetInvitation(ctx, f.other, inv.ID)
	requireCode(t, err, CodeUnauthorized)
}

func TestLifecyclePublishesInvalidations(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const room = "breakout-events"
	roomSub, err := f.hub.Subscribe(ctx, realtime.RoomTopic(room))
	require.NoError(t, err)
	clientSub, err := f.hub.Subscribe(ctx, realtime.UserTopic(f.client.ID))
	require.NoError(t, err)

	next := func(sub *realtime.Subscription) realtime.Event {
		t.Helper()
		select {
		case ev := <-sub.C:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return realtime.Event{}
		}
	}

	inv := f.invite(t, room)
	ev := next(clientSub)
	assert.Equal(t, realtime.KindCreated, ev.Kind)
	assert.Equal(t, inv.ID, ev.InvitationID)
	assert.Equal(t, realtime.KindCreated, next(roomSub).Kind)

	_, err = f.svc.Respond(ctx, f.client, inv.ID, models.ResponseAccept)
	require.NoError(t, err)
	ev = next(roomSub)
	assert.Equal(t, realtime.KindUpdated, ev.Kind)
	assert.Equal(t, string(models.InvitationAccepted), ev.Status)
	next(clientSub)

	_, err = f.svc.CompleteForRoom(ctx, f.team, room)
	require.NoError(t, err)
	assert.Equal(t, realtime.KindDeleted, next(roomSub).Kind)
}

func TestJanitorResults(t *testing.T) {
	ctx := context.Background()

	res := NewRoomJanitor(&fakeDeleter{}).DeleteExternalRoom(ctx, "r")
	assert.Equal(t, JanitorResult{Success: true}, res)

	res = NewRoomJanitor(&fakeDeleter{err: twirp.NotFoundError("room not found")}).DeleteExternalRoom(ctx, "r")
	assert.True(t, res.Success, "already deleted rooms count as cleaned up")

	res = NewRoomJanitor(&fakeDeleter{err: livekit.ErrNotConfigured}).DeleteExternalRoom(ctx, "r")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	var nilJanitor *RoomJanitor
	res = nilJanitor.DeleteExternalRoom(ctx, "r")
	assert.False(t, res.Success)

	res = NewRoomJanitor(&fakeDeleter{}).DeleteExternalRoom(ctx, "")
	assert.False(t, res.Success)
}

func TestCleanupExternalRoom(t *testing.T) {
	deleter := &fakeDeleter{}
	f := newFixture(t, WithJanitor(NewRoomJanitor(deleter)))
	ctx := context.Background()

	res, err := f.svc.CleanupExternalRoom(ctx, f.team, "breakout-abc")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"breakout-abc"}, deleter.rooms)

	_, err = f.svc.CleanupExternalRoom(ctx, f.client, "breakout-abc")
	requireCode(t, err, CodeUnauthorized)

	_, err = f.svc.CleanupExternalRoom(ctx, f.team, "../etc")
	requireCode(t, err, CodeInvalidArgument)

	bare := newFixture(t)
	res, err = bare.svc.CleanupExternalRoom(ctx, bare.team, "breakout-abc")
	require.NoError(t, err)
	assert.False(t, res.Success, "no janitor configured")
}

func TestCleanupExternalRoomGuards(t *testing.T) {
	deleter := &fakeDeleter{}
	f := newFixture(t, WithJanitor(NewRoomJanitor(deleter)))
	ctx := context.Background()

	f.accepted(t, "breakout-live1")
	se := requireCode(t, mustCleanup(f, f.team2, "breakout-live1"), CodeAlreadyHandled)
	assert.Equal(t, models.InvitationAccepted, se.Status)
	se = requireCode(t, mustCleanup(f, f.admin, "breakout-live1"), CodeAlreadyHandled)
	assert.Equal(t, models.InvitationAccepted, se.Status)
	assert.Empty(t, deleter.rooms, "live room must not reach the media server")

	_, err := f.svc.CompleteForRoom(ctx, f.client, "breakout-live1")
	require.NoError(t, err)
	res, err := f.svc.CleanupExternalRoom(ctx, f.team2, "breakout-live1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	arena, err := NewArenaService(f.db).CreateArena(ctx, f.admin, "")
	require.NoError(t, err)
	requireCode(t, mustCleanup(f, f.team, arena.Name), CodeUnauthorized)
	requireCode(t, mustCleanup(f, f.team2, arena.ID), CodeUnauthorized)
	assert.Equal(t, []string{"breakout-live1"}, deleter.rooms)

	res, err = f.svc.CleanupExternalRoom(ctx, f.admin, arena.Name)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"breakout-live1", arena.Name}, deleter.rooms)
}

func mustCleanup(f *fixture, caller *models.User, room string) error {
	_, err := f.svc.CleanupExternalRoom(context.Background(), caller, room)
	return err
}

func TestCreateRefusesForeignRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.invite(t, "breakout-private")

	_, err := f.svc.Create(ctx, f.team2, f.other.ID, "breakout-private")
	requireCode(t, err, CodeInvalidArgument)
	invs, err := f.db.ListInvitations(ctx, database.InvitationFilter{RoomID: "breakout-private"})
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, f.team.ID, invs[0].InviterID)

	// the owner may add more guests to the same room
	more, err := f.svc.Create(ctx, f.team, f.other.ID, "breakout-private")
	require.NoError(t, err)
	assert.Equal(t, "breakout-private", more.RoomID)

	arena, err := NewArenaService(f.db).CreateArena(ctx, f.admin, "")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.team, f.client.ID, arena.Name)
	requireCode(t, err, CodeInvalidArgument)
	_, err = f.svc.Create(ctx, f.admin, f.client.ID, arena.Name)
	requireCode(t, err, CodeInvalidArgument)
}
