package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/livekit"
	"arena-breakout-backend/pkg/models"

	nanoid "github.com/jaevor/go-nanoid"
)

const guestIdentityPrefix = "public-"

// TokenResponse is handed to clients joining a media room.
type TokenResponse struct {
	Token        string `json:"token"`
	ServerURL    string `json:"server_url,omitempty"`
	Room         string `json:"room"`
	Identity     string `json:"identity"`
	CanPublish   bool   `json:"can_publish"`
	CanSubscribe bool   `json:"can_subscribe"`
}

// IssueTokenRequest is an explicit grant request.
type IssueTokenRequest struct {
	Room         string `json:"room"`
	Identity     string `json:"identity,omitempty"`
	CanPublish   bool   `json:"can_publish"`
	CanSubscribe bool   `json:"can_subscribe"`
	Metadata     string `json:"metadata,omitempty"`
}

// TokenService decides who may enter which media room with which grants.
type TokenService struct {
	db        database.DatabaseInterface
	issuer    *livekit.TokenIssuer
	arena     *ArenaService
	serverURL string
	guestID   func() string
}

// NewTokenService 创建令牌服务
func NewTokenService(db database.DatabaseInterface, issuer *livekit.TokenIssuer, arena *ArenaService, serverURL string) *TokenService {
	gen, err := nanoid.CustomASCII(roomIDAlphabet, 5)
	if err != nil {
		panic(fmt.Sprintf("guest id generator: %v", err))
	}
	return &TokenService{
		db:        db,
		issuer:    issuer,
		arena:     arena,
		serverURL: serverURL,
		guestID:   func() string { return guestIdentityPrefix + gen() },
	}
}

// identityOf is the media identity of u: the email, falling back to the id.
func identityOf(u *models.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

func participantMetadata(name string, role models.Role) string {
	b, _ := json.Marshal(struct {
		Name string      `json:"name"`
		Role models.Role `json:"role"`
	}{name, role})
	return string(b)
}

func (s *TokenService) mint(g livekit.Grant) (*TokenResponse, error) {
	token, err := s.issuer.Issue(g)
	if err != nil {
		if errors.Is(err, livekit.ErrNotConfigured) {
			return nil, configurationError(err)
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &TokenResponse{
		Token:        token,
		ServerURL:    s.serverURL,
		Room:         g.Room,
		Identity:     g.Identity,
		CanPublish:   g.CanPublish,
		CanSubscribe: g.CanSubscribe,
	}, nil
}

// IssueToken mints a token with explicit grants. Admins and team members only.
func (s *TokenService) IssueToken(ctx context.Context, caller *models.User, req IssueTokenRequest) (*TokenResponse, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	if !caller.Role.CanSendInvites() {
		return nil, unauthorized("only team members can request custom grants")
	}
	room := strings.TrimSpace(req.Room)
	if room == "" {
		return nil, invalidArgument("room is required")
	}
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		identity = identityOf(caller)
	}
	metadata := req.Metadata
	if metadata == "" {
		metadata = participantMetadata(caller.DisplayName(), caller.Role)
	}
	return s.mint(livekit.Grant{
		Identity:     identity,
		Name:         caller.DisplayName(),
		Room:         room,
		Metadata:     metadata,
		CanPublish:   req.CanPublish,
		CanSubscribe: req.CanSubscribe,
	})
}

// IssueArenaToken grants the active arena. caller may be nil for anonymous guests,
// who get a random public identity and may only subscribe.
func (s *TokenService) IssueArenaToken(ctx context.Context, caller *models.User) (*TokenResponse, error) {
	arena, err := s.arena.GetArena(ctx)
	if err != nil {
		return nil, err
	}
	if arena == nil {
		return nil, notFound("no active arena")
	}

	if caller == nil {
		return s.mint(livekit.Grant{
			Identity:     s.guestID(),
			Name:         "Guest",
			Room:         arena.Name,
			Metadata:     participantMetadata("Guest", models.RoleGuest),
			CanPublish:   false,
			CanSubscribe: true,
		})
	}

	return s.mint(livekit.Grant{
		Identity:     identityOf(caller),
		Name:         caller.DisplayName(),
		Room:         arena.Name,
		Metadata:     participantMetadata(caller.DisplayName(), caller.Role),
		CanPublish:   caller.Role.CanPublishInArena(),
		CanSubscribe: true,
	})
}

// IssueBreakoutToken grants a breakout room to a participant of a pending,
// accepted or ongoing invitation for it. This check is independent of the lifecycle engine.
func (s *TokenService) IssueBreakoutToken(ctx context.Context, caller *models.User, roomID string) (*TokenResponse, error) {
	if caller == nil {
		return nil, unauthenticated()
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, invalidArgument("room id is required")
	}

	n, err := s.db.CountInvitations(ctx, database.InvitationFilter{
		RoomID:        roomID,
		ParticipantID: caller.ID,
		Statuses:      models.JoinableStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("check invitation: %w", err)
	}
	if n == 0 {
		return nil, &Error{Code: CodeNotInvited, Message: "no invitation for room " + roomID}
	}

	return s.mint(livekit.Grant{
		Identity:     identityOf(caller),
		Name:         caller.DisplayName(),
		Room:         roomID,
		Metadata:     participantMetadata(caller.DisplayName(), caller.Role),
		CanPublish:   true,
		CanSubscribe: true,
	})
}
