package handlers

import (
	"net/http"

	"arena-breakout-backend/pkg/middleware"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/services"
	"arena-breakout-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// ArenaHandler 竞技场与媒体令牌处理器
type ArenaHandler struct {
	arena  *services.ArenaService
	tokens *services.TokenService
}

// NewArenaHandler 创建竞技场处理器
func NewArenaHandler(arena *services.ArenaService, tokens *services.TokenService) *ArenaHandler {
	return &ArenaHandler{arena: arena, tokens: tokens}
}

// GET /api/arena
func (h *ArenaHandler) GetArena(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	room, err := h.arena.GetArena(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"arena": room})
}

// POST /api/arena
func (h *ArenaHandler) CreateArena(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.CreateArenaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	room, err := h.arena.CreateArena(r.Context(), user, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, room)
}

// POST /api/arena/{id}/touch
func (h *ArenaHandler) Touch(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	if err := h.arena.Touch(r.Context(), chiRoute.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/rooms/{id}
func (h *ArenaHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	room, err := h.arena.GetRoom(r.Context(), chiRoute.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, room)
}

// POST /api/livekit/arena-token
// 未登录用户也可获取只读令牌
func (h *ArenaHandler) ArenaToken(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())
	res, err := h.tokens.IssueArenaToken(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// POST /api/livekit/token
func (h *ArenaHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req services.IssueTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.tokens.IssueToken(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}
