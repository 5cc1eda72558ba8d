package handlers

import (
	"net/http"

	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/services"
	"arena-breakout-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// BreakoutHandler 分组讨论邀请与房间处理器
type BreakoutHandler struct {
	breakout *services.BreakoutService
	tokens   *services.TokenService
}

// NewBreakoutHandler 创建分组讨论处理器
func NewBreakoutHandler(breakout *services.BreakoutService, tokens *services.TokenService) *BreakoutHandler {
	return &BreakoutHandler{breakout: breakout, tokens: tokens}
}

// POST /api/breakout/invitations
func (h *BreakoutHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.CreateInvitationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	inv, err := h.breakout.Create(r.Context(), user, req.InviteeID, req.RoomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, inv)
}

// GET /api/breakout/invitations/pending
func (h *BreakoutHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.breakout.ListPendingForMe(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"invitations": list, "total": len(list)})
}

// GET /api/breakout/invitations/sent?include_expired=&include_completed=
func (h *BreakoutHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.breakout.ListSentByMe(r.Context(), user,
		utils.GetBoolQueryParam(r, "include_expired"),
		utils.GetBoolQueryParam(r, "include_completed"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"invitations": list, "total": len(list)})
}

// GET /api/breakout/invitations/{id}
func (h *BreakoutHandler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	inv, err := h.breakout.GetInvitation(r.Context(), user, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, inv)
}

// POST /api/breakout/invitations/{id}/respond
func (h *BreakoutHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.RespondInvitationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.breakout.Respond(r.Context(), user, chiRoute.URLParam(r, "id"), req.Response)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// POST /api/breakout/invitations/{id}/ongoing
func (h *BreakoutHandler) MarkOngoing(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	inv, err := h.breakout.MarkOngoing(r.Context(), user, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, inv)
}

// Sweep expires stale invitations. Served both to signed-in users and to the cron route.
func (h *BreakoutHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.breakout.SweepExpired(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"expired_count": n})
}

// GET /api/breakout/rooms/{roomId}/exists
func (h *BreakoutHandler) RoomExists(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	roomID := chiRoute.URLParam(r, "roomId")
	exists, err := h.breakout.ExistsForRoom(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"room_id": roomID, "exists": exists})
}

// GET /api/breakout/rooms/{roomId}/participants
func (h *BreakoutHandler) RoomParticipants(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	users, err := h.breakout.RoomParticipants(r.Context(), user, chiRoute.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"participants": users})
}

// POST /api/breakout/rooms/{roomId}/token
func (h *BreakoutHandler) RoomToken(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	res, err := h.tokens.IssueBreakoutToken(r.Context(), user, chiRoute.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// POST /api/breakout/rooms/{roomId}/complete
func (h *BreakoutHandler) CompleteRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	res, err := h.breakout.EndSession(r.Context(), user, chiRoute.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// DELETE /api/breakout/rooms/{roomId}/external
func (h *BreakoutHandler) DeleteExternalRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	res, err := h.breakout.CleanupExternalRoom(r.Context(), user, chiRoute.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}
