package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/realtime"
	"arena-breakout-backend/pkg/services"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	chiRoute "github.com/go-chi/chi/v5"
)

const (
	watchPingInterval = 30 * time.Second
	watchWriteTimeout = 10 * time.Second
)

// Watch message types.
const (
	MsgTypeRoomState    = "room_state"
	MsgTypeSessionEnded = "session_ended"
	MsgTypeInvitations  = "invitations"
)

// RoomStateMessage is pushed to room watchers on connect and after each change.
type RoomStateMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Exists bool   `json:"exists"`
}

// InvitationsMessage is a snapshot of the caller's pending and sent invitations.
type InvitationsMessage struct {
	Type    string                     `json:"type"`
	Pending []models.PendingInvitation `json:"pending"`
	Sent    []models.SentInvitation    `json:"sent"`
}

// WatchHandler 通过WebSocket推送邀请与房间变化
// 事件只作为失效信号，每次收到后重新查询并推送完整状态
type WatchHandler struct {
	breakout *services.BreakoutService
	broker   realtime.Broker
	origins  []string
}

// NewWatchHandler 创建WebSocket推送处理器
func NewWatchHandler(breakout *services.BreakoutService, broker realtime.Broker, origins []string) *WatchHandler {
	return &WatchHandler{breakout: breakout, broker: broker, origins: origins}
}

// pushFunc writes the current state. done ends the watch.
type pushFunc func(ctx context.Context, conn *websocket.Conn) (done bool, err error)

// serve subscribes before the first push so no change between query and subscribe is lost.
func (h *WatchHandler) serve(w http.ResponseWriter, r *http.Request, topic string, push pushFunc) {
	sub, err := h.broker.Subscribe(r.Context(), topic)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Debug("watch: websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// 客户端不发送消息，CloseRead 负责处理控制帧并在断开时取消 ctx
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		done, err := push(ctx, conn)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("watch: push failed", "topic", topic, "error", err)
			}
			return
		}
		if done {
			return
		}

		if !h.wait(ctx, conn, sub, ticker) {
			conn.Close(websocket.StatusGoingAway, "")
			return
		}
	}
}

// wait blocks until the next event, pinging meanwhile. It reports false when the watch should stop.
func (h *WatchHandler) wait(ctx context.Context, conn *websocket.Conn, sub *realtime.Subscription, ticker *time.Ticker) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-sub.Done():
			return false
		case <-sub.C:
			return true
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return false
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, v)
}

// GET /api/breakout/rooms/{roomId}/watch
// 房间不存在时推送 session_ended 并正常关闭
func (h *WatchHandler) WatchRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	roomID := chiRoute.URLParam(r, "roomId")

	h.serve(w, r, realtime.RoomTopic(roomID), func(ctx context.Context, conn *websocket.Conn) (bool, error) {
		exists, err := h.breakout.ExistsForRoom(ctx, roomID)
		if err != nil {
			return false, err
		}
		if err := writeJSON(ctx, conn, RoomStateMessage{Type: MsgTypeRoomState, RoomID: roomID, Exists: exists}); err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}

		if err := writeJSON(ctx, conn, RoomStateMessage{Type: MsgTypeSessionEnded, RoomID: roomID}); err != nil {
			return false, err
		}
		_ = conn.Close(websocket.StatusNormalClosure, "session ended")
		return true, nil
	})
}

// GET /api/breakout/invitations/watch
func (h *WatchHandler) WatchInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}

	h.serve(w, r, realtime.UserTopic(user.ID), func(ctx context.Context, conn *websocket.Conn) (bool, error) {
		pending, err := h.breakout.ListPendingForMe(ctx, user)
		if err != nil {
			return false, err
		}
		sent, err := h.breakout.ListSentByMe(ctx, user, false, false)
		if err != nil {
			return false, err
		}
		return false, writeJSON(ctx, conn, InvitationsMessage{Type: MsgTypeInvitations, Pending: pending, Sent: sent})
	})
}
