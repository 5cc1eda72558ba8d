package handlers

import (
	"net/http"

	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/services"
	"arena-breakout-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// UserHandler 用户目录处理器
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler 创建用户目录处理器
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/users?role=client
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	role, err := models.ParseRole(utils.GetQueryParam(r, "role", string(models.RoleClient)))
	if err != nil {
		utils.WriteValidationErrorResponse(w, "Invalid role", err.Error())
		return
	}
	list, err := h.users.List(r.Context(), user, role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]any{"users": list, "total": len(list)})
}

// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := h.users.Create(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, created)
}

// PUT /api/users/{id}/role
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.users.UpdateRole(r.Context(), user, chiRoute.URLParam(r, "id"), req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, updated)
}
