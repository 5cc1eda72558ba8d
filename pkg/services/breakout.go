package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/realtime"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/sync/errgroup"
)

const (
	roomIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	roomIDLength   = 7
	// lookups fanned out when enriching invitation lists
	enrichConcurrency = 8
)

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewRoomIDGenerator returns ids like "breakout-k3x9a0q".
func NewRoomIDGenerator() func() string {
	gen, err := nanoid.CustomASCII(roomIDAlphabet, roomIDLength)
	if err != nil {
		panic(fmt.Sprintf("room id generator: %v", err))
	}
	return func() string { return models.BreakoutRoomPrefix + gen() }
}

// BreakoutService owns the invitation lifecycle.
//
//	pending  -> accepted | (deleted on decline) | expired
//	accepted -> ongoing  | (deleted on completion)
//	ongoing  -> (deleted on completion)
//
// A breakout room exists exactly as long as some invitation names it.
type BreakoutService struct {
	db        database.DatabaseInterface
	broker    realtime.Broker
	janitor   *RoomJanitor
	now       func() time.Time
	newRoomID func() string
}

// Option configures a service.
type Option func(*BreakoutService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *BreakoutService) { s.now = now }
}

// WithRoomIDGenerator overrides breakout room id generation.
func WithRoomIDGenerator(gen func() string) Option {
	return func(s *BreakoutService) { s.newRoomID = gen }
}

// WithJanitor enables external room cleanup in EndSession.
func WithJanitor(j *RoomJanitor) Option {
	return func(s *BreakoutService) { s.janitor = j }
}

// NewBreakoutService creates the lifecycle engine. broker may be nil.
func NewBreakoutService(db database.DatabaseInterface, broker realtime.Broker, opts ...Option) *BreakoutService {
	s := &BreakoutService{
		db:        db,
		broker:    broker,
		now:       time.Now,
		newRoomID: NewRoomIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BreakoutService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create sends an invitation from caller to inviteeID. roomID is generated when empty.
func (s *BreakoutService) Create(ctx context.Context, caller *models.User, inviteeID, roomID string) (*models.Invitation, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !caller.Role.CanSendInvites() {
		return nil, unauthorized("only team members can send invitations")
	}
	inviteeID = strings.TrimSpace(inviteeID)
	if inviteeID == "" {
		return nil, invalidArgument("invitee_id is required")
	}
	if inviteeID == caller.ID {
		return nil, invalidArgument("cannot invite yourself")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID != "" && !roomNamePattern.MatchString(roomID) {
		return nil, invalidArgument("room_id must be 1-64 letters, digits, '-' or '_'")
	}

	invitee, err := s.db.GetUserByID(ctx, inviteeID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("invitee not found")
		}
		return nil, fmt.Errorf("load invitee: %w", err)
	}
	if invitee.Role != models.RoleClient {
		return nil, invalidArgument("invitations can only be sent to clients")
	}

	if roomID == "" {
		roomID = s.newRoomID()
	} else if err := s.checkRoomOwner(ctx, caller, roomID); err != nil {
		return nil, err
	}
	now := s.clock()
	inv := &models.Invitation{
		ID:        uuid.NewString(),
		InviterID: caller.ID,
		InviteeID: invitee.ID,
		RoomID:    roomID,
		Status:    models.InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(models.InviteTTL),
		UpdatedAt: now,
	}
	if err := s.db.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	slog.Info("invitation created", "invite_id", inv.ID, "room_id", inv.RoomID, "inviter_id", inv.InviterID, "invitee_id", inv.InviteeID)
	s.publish(ctx, realtime.KindCreated, inv)
	return inv, nil
}

// checkRoomOwner keeps a caller-chosen room id from joining someone else's breakout or the arena.
func (s *BreakoutService) checkRoomOwner(ctx context.Context, caller *models.User, roomID string) error {
	arena, err := isArenaRoom(ctx, s.db, roomID)
	if err != nil {
		return err
	}
	if arena {
		return invalidArgument("room_id is reserved for the arena")
	}
	existing, err := s.db.ListInvitations(ctx, database.InvitationFilter{RoomID: roomID})
	if err != nil {
		return fmt.Errorf("list room invitations: %w", err)
	}
	for i := range existing {
		if existing[i].InviterID != caller.ID {
			return invalidArgument("room_id is already used by another breakout")
		}
	}
	return nil
}

// Respond records the invitee's answer. Accept patches to accepted, decline deletes the row.
func (s *BreakoutService) Respond(ctx context.Context, caller *models.User, invitationID string, response models.InviteResponse) (*models.RespondResult, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !response.Valid() {
		return nil, invalidArgument("response must be accept or decline")
	}

	inv, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != caller.ID {
		return nil, unauthorized("only the invitee can respond")
	}
	if inv.Status != models.InvitationPending {
		return nil, alreadyHandled(inv.Status)
	}

	now := s.clock()
	if inv.IsPastExpiry(now) {
		if ok, err := s.db.TransitionInvitation(ctx, inv.ID, []models.InvitationStatus{models.InvitationPending}, models.InvitationExpired, now); err != nil {
			return nil, fmt.Errorf("expire invitation: %w", err)
		} else if ok {
			inv.Status = models.InvitationExpired
			s.publish(ctx, realtime.KindUpdated, inv)
		}
		return nil, s.lostRace(ctx, inv.ID)
	}

	result := &models.RespondResult{
		InvitationID: inv.ID,
		RoomID:       inv.RoomID,
		InviterID:    inv.InviterID,
		InviteeID:    inv.InviteeID,
	}

	switch response {
	case models.ResponseAccept:
		ok, err := s.db.TransitionInvitation(ctx, inv.ID, []models.InvitationStatus{models.InvitationPending}, models.InvitationAccepted, now)
		if err != nil {
			return nil, fmt.Errorf("accept invitation: %w", err)
		}
		if !ok {
			return nil, s.lostRace(ctx, inv.ID)
		}
		inv.Status = models.InvitationAccepted
		result.Status = string(models.InvitationAccepted)
		s.publish(ctx, realtime.KindUpdated, inv)

	case models.ResponseDecline:
		ok, err := s.db.DeleteInvitation(ctx, inv.ID, []models.InvitationStatus{models.InvitationPending})
		if err != nil {
			return nil, fmt.Errorf("decline invitation: %w", err)
		}
		if !ok {
			return nil, s.lostRace(ctx, inv.ID)
		}
		result.Status = "declined"
		s.publish(ctx, realtime.KindDeleted, inv)
	}

	slog.Info("invitation answered", "invite_id", inv.ID, "room_id", inv.RoomID, "status", result.Status)
	return result, nil
}

// lostRace reports the state another writer left the row in.
func (s *BreakoutService) lostRace(ctx context.Context, invitationID string) error {
	current, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	return alreadyHandled(current.Status)
}

// MarkOngoing moves accepted to ongoing when a participant joins the media room.
// Calling it again on an ongoing invitation is a no-op.
func (s *BreakoutService) MarkOngoing(ctx context.Context, caller *models.User, invitationID string) (*models.Invitation, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	inv, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !inv.HasParticipant(caller.ID) {
		return nil, unauthorized("only participants can join this breakout")
	}

	switch inv.Status {
	case models.InvitationOngoing:
		return inv, nil
	case models.InvitationAccepted:
	default:
		return nil, alreadyHandled(inv.Status)
	}

	now := s.clock()
	ok, err := s.db.TransitionInvitation(ctx, inv.ID, []models.InvitationStatus{models.InvitationAccepted}, models.InvitationOngoing, now)
	if err != nil {
		return nil, fmt.Errorf("mark invitation ongoing: %w", err)
	}
	if !ok {
		current, err := s.getInvitation(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.InvitationOngoing {
			return current, nil
		}
		return nil, alreadyHandled(current.Status)
	}

	inv.Status = models.InvitationOngoing
	inv.UpdatedAt = now
	slog.Info("breakout ongoing", "invite_id", inv.ID, "room_id", inv.RoomID)
	s.publish(ctx, realtime.KindUpdated, inv)
	return inv, nil
}

// CompleteForRoom deletes every live invitation for roomID and returns how many were removed.
// Any participant of one of them may end the session for everyone.
func (s *BreakoutService) CompleteForRoom(ctx context.Context, caller *models.User, roomID string) (int, error) {
	if caller == nil {
		return 0, unauthenticated()
	}
	live, err := s.db.ListInvitations(ctx, database.InvitationFilter{RoomID: roomID, Statuses: models.LiveStatuses})
	if err != nil {
		return 0, fmt.Errorf("list room invitations: %w", err)
	}
	if len(live) == 0 {
		return 0, &Error{Code: CodeNoActiveSession, Message: "no active session for room " + roomID}
	}

	participant := false
	ids := make([]string, len(live))
	for i := range live {
		ids[i] = live[i].ID
		if live[i].HasParticipant(caller.ID) {
			participant = true
		}
	}
	if !participant {
		return 0, unauthorized("only participants can end this breakout")
	}

	deleted, err := s.db.DeleteInvitations(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete room invitations: %w", err)
	}

	slog.Info("breakout completed", "room_id", roomID, "deleted", deleted, "by", caller.ID)
	for i := range live {
		s.publish(ctx, realtime.KindDeleted, &live[i])
	}
	return deleted, nil
}

// EndSessionResult combines local and external cleanup.
type EndSessionResult struct {
	DeletedCount int            `json:"deleted_count"`
	External     *JanitorResult `json:"external,omitempty"`
}

// EndSession completes the room, then removes it from the media server.
// External failures are reported in the result, never returned.
func (s *BreakoutService) EndSession(ctx context.Context, caller *models.User, roomID string) (*EndSessionResult, error) {
	deleted, err := s.CompleteForRoom(ctx, caller, roomID)
	if err != nil {
		return nil, err
	}
	result := &EndSessionResult{DeletedCount: deleted}
	if s.janitor != nil {
		external := s.janitor.DeleteExternalRoom(ctx, roomID)
		result.External = &external
	}
	return result, nil
}

// CleanupExternalRoom deletes roomID on the media server without touching invitations.
// Team members only, since after completion no participant list remains to check.
// Rooms with an accepted or ongoing invitation are refused, and the arena room is admin only.
func (s *BreakoutService) CleanupExternalRoom(ctx context.Context, caller *models.User, roomID string) (*JanitorResult, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !caller.Role.CanSendInvites() {
		return nil, unauthorized("only team members can delete media rooms")
	}
	if !roomNamePattern.MatchString(roomID) {
		return nil, invalidArgument("invalid room id")
	}

	live, err := s.db.ListInvitations(ctx, database.InvitationFilter{RoomID: roomID, Statuses: models.LiveStatuses, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("list live invitations: %w", err)
	}
	if len(live) > 0 {
		return nil, &Error{Code: CodeAlreadyHandled, Message: "room still has a live session", Status: live[0].Status}
	}
	arena, err := isArenaRoom(ctx, s.db, roomID)
	if err != nil {
		return nil, err
	}
	if arena && !caller.Role.IsAdmin() {
		return nil, unauthorized("only admins can delete the arena media room")
	}

	result := s.janitor.DeleteExternalRoom(ctx, roomID)
	return &result, nil
}

// SweepExpired moves pending invitations past their expiry to expired.
func (s *BreakoutService) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock()
	stale, err := s.db.ListInvitations(ctx, database.InvitationFilter{
		Statuses:      []models.InvitationStatus{models.InvitationPending},
		ExpiresBefore: &now,
	})
	if err != nil {
		return 0, fmt.Errorf("list expired invitations: %w", err)
	}

	expired := 0
	for i := range stale {
		ok, err := s.db.TransitionInvitation(ctx, stale[i].ID, []models.InvitationStatus{models.InvitationPending}, models.InvitationExpired, now)
		if err != nil {
			return expired, fmt.Errorf("expire invitation %s: %w", stale[i].ID, err)
		}
		if !ok {
			continue
		}
		expired++
		stale[i].Status = models.InvitationExpired
		s.publish(ctx, realtime.KindUpdated, &stale[i])
	}
	if expired > 0 {
		slog.Info("expired invitations swept", "count", expired)
	}
	return expired, nil
}

// ExistsForRoom reports whether any invitation still names roomID.
func (s *BreakoutService) ExistsForRoom(ctx context.Context, roomID string) (bool, error) {
	n, err := s.db.CountInvitations(ctx, database.InvitationFilter{RoomID: roomID})
	if err != nil {
		return false, fmt.Errorf("count room invitations: %w", err)
	}
	return n > 0, nil
}

// GetInvitation returns an invitation visible to caller.
func (s *BreakoutService) GetInvitation(ctx context.Context, caller *models.User, invitationID string) (*models.Invitation, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	inv, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !inv.HasParticipant(caller.ID) && !caller.Role.IsAdmin() {
		return nil, unauthorized("not a participant of this invitation")
	}
	return inv, nil
}

// ListPendingForMe returns invitations waiting on caller's answer, newest first.
func (s *BreakoutService) ListPendingForMe(ctx context.Context, caller *models.User) ([]models.PendingInvitation, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	invs, err := s.db.ListInvitations(ctx, database.InvitationFilter{
		InviteeID: caller.ID,
		Statuses:  []models.InvitationStatus{models.InvitationPending},
	})
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}

	inviterIDs := make([]string, len(invs))
	for i := range invs {
		inviterIDs[i] = invs[i].InviterID
	}
	users, err := s.userSummaries(ctx, inviterIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	out := make([]models.PendingInvitation, len(invs))
	for i := range invs {
		out[i] = models.PendingInvitation{
			Invitation:       invs[i],
			Inviter:          users[invs[i].InviterID],
			SecondsRemaining: invs[i].SecondsRemaining(now),
		}
	}
	return out, nil
}

// ListSentByMe returns invitations caller sent. Expired and completed rows are opt-in.
func (s *BreakoutService) ListSentByMe(ctx context.Context, caller *models.User, includeExpired, includeCompleted bool) ([]models.SentInvitation, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	filter := database.InvitationFilter{InviterID: caller.ID}
	if !includeExpired {
		filter.ExcludeStatuses = append(filter.ExcludeStatuses, models.InvitationExpired)
	}
	if !includeCompleted {
		filter.ExcludeStatuses = append(filter.ExcludeStatuses, models.InvitationCompleted)
	}
	invs, err := s.db.ListInvitations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sent invitations: %w", err)
	}

	inviteeIDs := make([]string, len(invs))
	for i := range invs {
		inviteeIDs[i] = invs[i].InviteeID
	}
	users, err := s.userSummaries(ctx, inviteeIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.SentInvitation, len(invs))
	for i := range invs {
		out[i] = models.SentInvitation{Invitation: invs[i], Invitee: users[invs[i].InviteeID]}
	}
	return out, nil
}

// RoomParticipants lists the users on accepted or ongoing invitations for roomID.
func (s *BreakoutService) RoomParticipants(ctx context.Context, caller *models.User, roomID string) ([]models.UserSummary, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	all, err := s.db.ListInvitations(ctx, database.InvitationFilter{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("list room invitations: %w", err)
	}

	member := caller.Role.IsAdmin()
	var ids []string
	for i := range all {
		if all[i].HasParticipant(caller.ID) {
			member = true
		}
		if all[i].Status.IsLive() {
			ids = append(ids, all[i].InviterID, all[i].InviteeID)
		}
	}
	if !member {
		return nil, unauthorized("not a participant of this breakout")
	}

	users, err := s.userSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	seen := make(map[string]bool, len(users))
	for _, id := range ids {
		if u, ok := users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *BreakoutService) getInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := s.db.GetInvitation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("invitation not found")
		}
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	return inv, nil
}

// userSummaries loads distinct users concurrently. Unknown ids are left out.
func (s *BreakoutService) userSummaries(ctx context.Context, ids []string) (map[string]*models.UserSummary, error) {
	out := make(map[string]*models.UserSummary, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			u, err := s.db.GetUserByID(gctx, id)
			if errors.Is(err, database.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load user %s: %w", id, err)
			}
			mu.Lock()
			out[id] = u.Summary()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// publish fans an invalidation out to the room and both participants.
// Failures are logged: watchers re-query on their next event or reconnect.
func (s *BreakoutService) publish(ctx context.Context, kind string, inv *models.Invitation) {
	if s.broker == nil {
		return
	}
	now := s.clock()
	for _, topic := range []string{realtime.RoomTopic(inv.RoomID), realtime.UserTopic(inv.InviterID), realtime.UserTopic(inv.InviteeID)} {
		err := s.broker.Publish(ctx, realtime.Event{
			Topic:        topic,
			Kind:         kind,
			InvitationID: inv.ID,
			RoomID:       inv.RoomID,
			Status:       string(inv.Status),
			At:           now,
		})
		if err != nil {
			slog.Warn("publish invitation event failed", "topic", topic, "invite_id", inv.ID, "error", err)
		}
	}
}
