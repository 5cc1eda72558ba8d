package models

import "time"

// InviteTTL is how long a pending invitation stays answerable.
const InviteTTL = 600 * time.Second

// BreakoutRoomPrefix prefixes every generated breakout room id.
const BreakoutRoomPrefix = "breakout-"

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationOngoing   InvitationStatus = "ongoing"
	InvitationCompleted InvitationStatus = "completed"
	InvitationExpired   InvitationStatus = "expired"
)

// LiveStatuses are the statuses of an invitation whose session is running or about to.
var LiveStatuses = []InvitationStatus{InvitationAccepted, InvitationOngoing}

// JoinableStatuses grant a breakout media token.
var JoinableStatuses = []InvitationStatus{InvitationPending, InvitationAccepted, InvitationOngoing}

// Valid reports whether s is a storable status.
func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationOngoing, InvitationCompleted, InvitationExpired:
		return true
	}
	return false
}

// IsLive is true for accepted and ongoing.
func (s InvitationStatus) IsLive() bool {
	return s == InvitationAccepted || s == InvitationOngoing
}

// InviteResponse is the invitee's answer.
type InviteResponse string

const (
	ResponseAccept  InviteResponse = "accept"
	ResponseDecline InviteResponse = "decline"
)

// Valid reports whether r is accept or decline.
func (r InviteResponse) Valid() bool {
	return r == ResponseAccept || r == ResponseDecline
}

// Invitation is a request from a team member to a client to meet in a breakout room.
// The breakout room has no row of its own: it exists while any invitation names it.
type Invitation struct {
	ID        string           `json:"id" db:"id"`
	InviterID string           `json:"inviter_id" db:"inviter_id"`
	InviteeID string           `json:"invitee_id" db:"invitee_id"`
	RoomID    string           `json:"room_id" db:"room_id"`
	Status    InvitationStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	ExpiresAt time.Time        `json:"expires_at" db:"expires_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// HasParticipant reports whether userID is the inviter or the invitee.
func (i *Invitation) HasParticipant(userID string) bool {
	return userID != "" && (i.InviterID == userID || i.InviteeID == userID)
}

// IsPastExpiry is true once now has passed ExpiresAt.
func (i *Invitation) IsPastExpiry(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// SecondsRemaining until expiry, floored at zero.
func (i *Invitation) SecondsRemaining(now time.Time) int64 {
	d := i.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// CreateInvitationRequest represents the request payload for sending an invite
type CreateInvitationRequest struct {
	InviteeID string `json:"invitee_id"`
	RoomID    string `json:"room_id,omitempty"`
}

// RespondInvitationRequest represents the invitee's answer payload
type RespondInvitationRequest struct {
	Response InviteResponse `json:"response"`
}

// RespondResult is returned after an invitation is answered.
type RespondResult struct {
	InvitationID string `json:"invitation_id"`
	Status       string `json:"status"`
	RoomID       string `json:"room_id"`
	InviterID    string `json:"inviter_id"`
	InviteeID    string `json:"invitee_id"`
}

// PendingInvitation is an invitation addressed to the caller with the inviter's details.
type PendingInvitation struct {
	Invitation
	Inviter          *UserSummary `json:"inviter,omitempty"`
	SecondsRemaining int64        `json:"time_remaining"`
}

// SentInvitation is an invitation sent by the caller with the invitee's details.
type SentInvitation struct {
	Invitation
	Invitee *UserSummary `json:"invitee,omitempty"`
}
