package livekit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"
)

const roomServiceTimeout = 10 * time.Second

// IsNotFound reports whether err says the room does not exist.
func IsNotFound(err error) bool {
	var te twirp.Error
	return errors.As(err, &te) && te.Code() == twirp.NotFound
}

// RoomClient calls the media server's room service.
type RoomClient struct {
	rooms *lksdk.RoomServiceClient
}

// NewRoomClient accepts ws(s):// or http(s):// server URLs.
// Without a URL or credentials every call fails with ErrNotConfigured.
func NewRoomClient(serverURL, apiKey, apiSecret string) *RoomClient {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" || apiKey == "" || apiSecret == "" {
		return &RoomClient{}
	}
	return &RoomClient{rooms: lksdk.NewRoomServiceClient(serverURL, apiKey, apiSecret)}
}

// DeleteRoom disconnects everyone from room and removes it on the media server.
func (c *RoomClient) DeleteRoom(ctx context.Context, room string) error {
	if c == nil || c.rooms == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, roomServiceTimeout)
	defer cancel()

	if _, err := c.rooms.DeleteRoom(ctx, &lkproto.DeleteRoomRequest{Room: room}); err != nil {
		return fmt.Errorf("livekit: delete room %s: %w", room, err)
	}
	return nil
}
