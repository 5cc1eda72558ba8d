package livekit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	lkproto "github.com/livekit/protocol/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twitchtv/twirp"
	"google.golang.org/protobuf/proto"
)

const deleteRoomPath = "/twirp/livekit.RoomService/DeleteRoom"

func TestDeleteRoomRequestShape(t *testing.T) {
	issuer := testIssuer()

	var gotRoom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, deleteRoomPath, r.URL.Path)

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := issuer.Verify(token)
		if assert.NoError(t, err) && assert.NotNil(t, claims.Video) {
			assert.True(t, claims.Video.RoomCreate)
		}

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req lkproto.DeleteRoomRequest
		assert.NoError(t, proto.Unmarshal(body, &req))
		gotRoom = req.GetRoom()

		w.Header().Set("Content-Type", "application/protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRoomClient(srv.URL, "APIkey123", "supersecretsupersecretsupersecret")
	require.NoError(t, client.DeleteRoom(context.Background(), "breakout-abc1234"))
	assert.Equal(t, "breakout-abc1234", gotRoom)
}

func TestDeleteRoomErrors(t *testing.T) {
	t.Run("twirp not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"not_found","msg":"room not found"}`))
		}))
		defer srv.Close()

		err := NewRoomClient(srv.URL, "key", "secret").DeleteRoom(context.Background(), "gone")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewRoomClient(srv.URL, "key", "secret").DeleteRoom(context.Background(), "r")
		require.Error(t, err)
		assert.False(t, IsNotFound(err))
	})

	t.Run("not configured", func(t *testing.T) {
		err := NewRoomClient("", "key", "secret").DeleteRoom(context.Background(), "r")
		assert.ErrorIs(t, err, ErrNotConfigured)

		err = NewRoomClient("https://lk.example.com", "", "").DeleteRoom(context.Background(), "r")
		assert.ErrorIs(t, err, ErrNotConfigured)

		var nilClient *RoomClient
		assert.ErrorIs(t, nilClient.DeleteRoom(context.Background(), "r"), ErrNotConfigured)
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(twirp.NotFoundError("room not found")))
	assert.False(t, IsNotFound(twirp.InternalError("boom")))
	assert.False(t, IsNotFound(ErrNotConfigured))
}
