// Package livekit mints access tokens for the media provider and talks to its room service.
package livekit

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/auth"
)

// ErrNotConfigured is returned when the API key, secret or server URL is missing.
var ErrNotConfigured = errors.New("livekit: server credentials are not configured")

// AccessClaims is the decoded view of an access token.
type AccessClaims struct {
	Name     string           `json:"name,omitempty"`
	Metadata string           `json:"metadata,omitempty"`
	Video    *auth.VideoGrant `json:"video,omitempty"`
	jwt.RegisteredClaims
}

// Grant describes who joins which room with which permissions.
type Grant struct {
	Identity     string
	Name         string
	Room         string
	Metadata     string
	CanPublish   bool
	CanSubscribe bool
}

// TokenIssuer signs access tokens with the API secret.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewTokenIssuer creates an issuer. Missing credentials surface on first use.
func NewTokenIssuer(apiKey, apiSecret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl}
}

// Configured reports whether tokens can be signed.
func (i *TokenIssuer) Configured() bool {
	return i != nil && i.apiKey != "" && i.apiSecret != ""
}

// Issue signs a join token for g.
// Publish and subscribe are always set explicitly: the media server reads an absent flag as true.
func (i *TokenIssuer) Issue(g Grant) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}
	if g.Identity == "" {
		return "", errors.New("livekit: identity is required")
	}
	if g.Room == "" {
		return "", errors.New("livekit: room is required")
	}

	grant := &auth.VideoGrant{RoomJoin: true, Room: g.Room}
	grant.SetCanPublish(g.CanPublish)
	grant.SetCanSubscribe(g.CanSubscribe)

	token, err := auth.NewAccessToken(i.apiKey, i.apiSecret).
		SetVideoGrant(grant).
		SetIdentity(g.Identity).
		SetName(g.Name).
		SetMetadata(g.Metadata).
		SetValidFor(i.ttl).
		ToJWT()
	if err != nil {
		return "", fmt.Errorf("sign livekit token: %w", err)
	}
	return token, nil
}

// Verify parses a token signed with this issuer's key and secret.
func (i *TokenIssuer) Verify(token string) (*AccessClaims, error) {
	if !i.Configured() {
		return nil, ErrNotConfigured
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(i.apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("verify livekit token: %w", err)
	}
	return claims, nil
}
